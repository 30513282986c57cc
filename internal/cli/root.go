// Package cli provides the command-line interface of the cache warmer.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/williampepple1/isr-cache-warmer/internal/cachewarmer"
	"github.com/williampepple1/isr-cache-warmer/internal/config"
	werrors "github.com/williampepple1/isr-cache-warmer/internal/errors"
	"github.com/williampepple1/isr-cache-warmer/internal/source"
	"github.com/williampepple1/isr-cache-warmer/internal/warmer"
)

// Version information (set at build time).
var Version = "0.1.0"

// NewRootCmd creates the root command. The exit code of a completed run is
// stored in exitCode.
func NewRootCmd(exitCode *int) *cobra.Command {
	var (
		cfgFile string
		verbose bool
	)

	rootCmd := &cobra.Command{
		Use:   "cache-warmer",
		Short: "Pre-render engine specification pages after a deployment",
		Long: `cache-warmer reads every engine from the catalog database, builds the
{base}/{brand}/{engine}-specs page URLs and requests them with bounded
concurrency so the incremental static regeneration cache is populated before
real traffic arrives.

The exit code is 0 when every page was warmed (or there was nothing to warm)
and 1 when any page failed or the catalog could not be read.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			if verbose {
				cfg.Log.Level = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			code, err := run(cmd.Context(), cfg, cmd.OutOrStdout(), newLogger(cmd.ErrOrStderr(), cfg.Log.Level))
			*exitCode = code
			return err
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (YAML)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	flags.String("base-url", config.DefaultBaseURL, "Base URL of the deployed site (env BASE_URL)")
	flags.IntP("concurrency", "c", config.DefaultConcurrency, "Maximum concurrent requests (env CONCURRENCY)")
	flags.Duration("timeout", config.DefaultTimeout, "Per-request timeout")
	flags.Int("checkpoint", config.DefaultCheckpoint, "Print a progress line every N completed pages")
	flags.Float64("rate-limit", 0, "Maximum requests per second, 0 for no limit")
	flags.Bool("inspect", false, "Extract the title of warmed pages")
	flags.String("source", config.DefaultSourceKind, "Record source (postgres|file)")
	flags.String("dsn", "", "Database connection string (env DATABASE_URL)")
	flags.String("input", "", "Record file for the file source, one brand/engine per line")
	flags.StringP("output", "o", "", "Write results to this file")
	flags.String("output-format", config.DefaultOutputFormat, "Results file format (json|yaml)")
	flags.Bool("browser", false, "Warm pages in headless Chrome")
	flags.String("log-level", config.DefaultLogLevel, "Log level (debug|info|warn|error)")

	_ = rootCmd.RegisterFlagCompletionFunc("source", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.SourcePostgres, config.SourceFile}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("output-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}

// run wires the components for one warming pass.
func run(ctx context.Context, cfg *config.AppConfig, out io.Writer, logger *slog.Logger) (int, error) {
	src, err := source.New(&cfg.Source)
	if err != nil {
		return werrors.GetExitCode(err), err
	}

	runID := uuid.NewString()
	w, err := warmer.New(cfg, runID, logger)
	if err != nil {
		return werrors.ExitFailure, werrors.Wrap("failed to create warmer", err)
	}
	defer func() { _ = w.Close() }()

	outcome, err := cachewarmer.New(cfg, src, w, runID, out, logger).Run(ctx)
	return outcome.ExitCode, err
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exitCode := werrors.ExitSuccess
	rootCmd := NewRootCmd(&exitCode)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return werrors.GetExitCode(err)
	}
	return exitCode
}
