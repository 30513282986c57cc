// Package cachewarmer runs a complete warming pass: enumerate records, build
// page URLs, warm them with bounded concurrency and report the outcome.
package cachewarmer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/williampepple1/isr-cache-warmer/internal/config"
	werrors "github.com/williampepple1/isr-cache-warmer/internal/errors"
	"github.com/williampepple1/isr-cache-warmer/internal/pages"
	"github.com/williampepple1/isr-cache-warmer/internal/report"
	"github.com/williampepple1/isr-cache-warmer/internal/source"
	"github.com/williampepple1/isr-cache-warmer/internal/warmer"
	"github.com/williampepple1/isr-cache-warmer/internal/worker"
	"github.com/williampepple1/isr-cache-warmer/pkg/models"
)

// Phase is a step of a run. A run moves through the phases in order, once.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseEnumerating Phase = "enumerating"
	PhaseWarming     Phase = "warming"
	PhaseReporting   Phase = "reporting"
	PhaseTerminated  Phase = "terminated"
)

// Outcome is the result of a run.
type Outcome struct {
	RunID    string
	Results  []models.WarmResult
	Summary  models.RunSummary
	ExitCode int
}

// CacheWarmer coordinates one warming run.
type CacheWarmer struct {
	cfg    *config.AppConfig
	source source.Source
	warmer warmer.Warmer
	runID  string
	out    io.Writer
	logger *slog.Logger
	phase  Phase
}

// New creates a cache warmer. Progress and summary lines go to out.
func New(cfg *config.AppConfig, src source.Source, w warmer.Warmer, runID string, out io.Writer, logger *slog.Logger) *CacheWarmer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if out == nil {
		out = io.Discard
	}
	return &CacheWarmer{
		cfg:    cfg,
		source: src,
		warmer: w,
		runID:  runID,
		out:    out,
		logger: logger.With(slog.String("run_id", runID)),
		phase:  PhaseIdle,
	}
}

// Phase returns the current phase.
func (c *CacheWarmer) Phase() Phase {
	return c.phase
}

func (c *CacheWarmer) enter(phase Phase) {
	c.logger.Debug("phase change", slog.String("from", string(c.phase)), slog.String("to", string(phase)))
	c.phase = phase
}

// Run performs the run. Only enumeration faults are returned as errors; item
// failures are reported through the outcome's summary and exit code.
func (c *CacheWarmer) Run(ctx context.Context) (Outcome, error) {
	outcome := Outcome{RunID: c.runID}
	if c.phase != PhaseIdle {
		return outcome, werrors.Wrap("run already started", fmt.Errorf("phase %s", c.phase))
	}
	defer c.enter(PhaseTerminated)

	c.enter(PhaseEnumerating)
	records, err := c.source.Records(ctx)
	if err != nil {
		outcome.ExitCode = werrors.GetExitCode(err)
		return outcome, err
	}
	c.logger.Info("records enumerated", slog.Int("count", len(records)))

	urls := pages.BuildAll(c.cfg.Warmer.BaseURL, records)
	if len(urls) == 0 {
		_, _ = fmt.Fprintln(c.out, "No pages to warm")
	} else {
		_, _ = fmt.Fprintf(c.out, "Warming %d pages at %s with %d workers\n",
			len(urls), c.cfg.Warmer.BaseURL, c.cfg.Warmer.Concurrency)
	}

	c.enter(PhaseWarming)
	start := time.Now()
	progress := report.NewProgress(c.out, c.logger, c.cfg.Warmer.Checkpoint)
	results := worker.Run[string, models.WarmResult](ctx, urls, worker.Options{
		Concurrency: c.cfg.Warmer.Concurrency,
		Limiter:     worker.NewLimiter(c.cfg.Warmer.RateLimit, c.cfg.Warmer.Burst),
	}, c.warmer.Warm, progress.Update)
	elapsed := time.Since(start)

	c.enter(PhaseReporting)
	summary := report.Summarize(results, elapsed)
	report.PrintSummary(c.out, summary)
	c.save(results, summary)

	c.logger.Info("run finished",
		slog.Int("total", summary.Total),
		slog.Int("success", summary.Success),
		slog.Int("failure", summary.Failure),
		slog.Duration("elapsed", summary.Elapsed),
	)

	outcome.Results = results
	outcome.Summary = summary
	outcome.ExitCode = report.ExitCode(summary)
	return outcome, nil
}

// save writes the results file when one is configured. A write failure is
// logged and does not change the exit code.
func (c *CacheWarmer) save(results []models.WarmResult, summary models.RunSummary) {
	writer := report.NewResultWriter(&c.cfg.IO)
	if !writer.Enabled() {
		return
	}
	doc := report.Document{
		RunID:   c.runID,
		BaseURL: c.cfg.Warmer.BaseURL,
		Summary: summary,
		Results: results,
	}
	if err := writer.SaveToFile(doc); err != nil {
		c.logger.Error("failed to save results", slog.String("file", c.cfg.IO.OutputFile), slog.Any("error", err))
		return
	}
	_, _ = fmt.Fprintf(c.out, "Results saved to %s\n", c.cfg.IO.OutputFile)
}
