package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	werrors "github.com/williampepple1/isr-cache-warmer/internal/errors"
)

// EnvPrefix namespaces the generic environment overrides,
// e.g. CACHE_WARMER_WARMER_TIMEOUT=10s sets warmer.timeout.
const EnvPrefix = "CACHE_WARMER_"

// envAliases are the short environment variables a deployment pipeline sets.
var envAliases = map[string]string{
	"BASE_URL":     "warmer.base_url",
	"CONCURRENCY":  "warmer.concurrency",
	"DATABASE_URL": "source.dsn",
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"base-url":      "warmer.base_url",
	"concurrency":   "warmer.concurrency",
	"timeout":       "warmer.timeout",
	"checkpoint":    "warmer.checkpoint",
	"rate-limit":    "warmer.rate_limit",
	"inspect":       "warmer.inspect",
	"source":        "source.kind",
	"dsn":           "source.dsn",
	"input":         "source.input_file",
	"output":        "io.output_file",
	"output-format": "io.output_format",
	"browser":       "browser.enabled",
	"log-level":     "log.level",
}

// AppConfig holds the complete application configuration
type AppConfig struct {
	Warmer  WarmerConfig  `koanf:"warmer"`
	Source  SourceConfig  `koanf:"source"`
	IO      IOConfig      `koanf:"io"`
	Proxies ProxyConfig   `koanf:"proxies"`
	Browser BrowserConfig `koanf:"browser"`
	Log     LogConfig     `koanf:"log"`
}

// WarmerConfig holds the warm request configuration
type WarmerConfig struct {
	BaseURL     string            `koanf:"base_url"`
	Concurrency int               `koanf:"concurrency"`
	Timeout     time.Duration     `koanf:"timeout"`
	UserAgent   string            `koanf:"user_agent"`
	Headers     map[string]string `koanf:"headers"`
	Checkpoint  int               `koanf:"checkpoint"`
	// RateLimit caps requests per second across all workers. Zero disables it.
	RateLimit float64           `koanf:"rate_limit"`
	Burst     int               `koanf:"burst"`
	Inspect   bool              `koanf:"inspect"`
	Selectors map[string]string `koanf:"selectors"`
}

// SourceConfig holds the record source configuration
type SourceConfig struct {
	Kind            string `koanf:"kind"`
	Driver          string `koanf:"driver"`
	DSN             string `koanf:"dsn"`
	Table           string `koanf:"table"`
	NamespaceColumn string `koanf:"namespace_column"`
	ItemColumn      string `koanf:"item_column"`
	InputFile       string `koanf:"input_file"`
}

// IOConfig holds the results file configuration
type IOConfig struct {
	OutputFile   string `koanf:"output_file"`
	OutputFormat string `koanf:"output_format"`
}

// ProxyConfig holds the proxy configuration
type ProxyConfig struct {
	Enabled bool     `koanf:"enabled"`
	Rotate  bool     `koanf:"rotate"`
	List    []string `koanf:"list"`
	Auth    struct {
		Username string `koanf:"username"`
		Password string `koanf:"password"`
	} `koanf:"auth"`
}

// BrowserConfig holds the headless browser configuration
type BrowserConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Headless bool          `koanf:"headless"`
	WaitTime time.Duration `koanf:"wait_time"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `koanf:"level"`
}

func defaults() map[string]any {
	return map[string]any{
		"warmer.base_url":         DefaultBaseURL,
		"warmer.concurrency":      DefaultConcurrency,
		"warmer.timeout":          DefaultTimeout,
		"warmer.user_agent":       DefaultUserAgent,
		"warmer.checkpoint":       DefaultCheckpoint,
		"warmer.rate_limit":       0.0,
		"warmer.burst":            1,
		"warmer.inspect":          false,
		"warmer.selectors":        DefaultSelectors,
		"source.kind":             DefaultSourceKind,
		"source.driver":           DefaultDriver,
		"source.table":            DefaultTable,
		"source.namespace_column": DefaultNamespaceColumn,
		"source.item_column":      DefaultItemColumn,
		"io.output_format":        DefaultOutputFormat,
		"proxies.rotate":          true,
		"browser.headless":        true,
		"browser.wait_time":       2 * time.Second,
		"log.level":               DefaultLogLevel,
	}
}

// Load builds the configuration from defaults, an optional YAML file, the
// environment and explicitly set flags, in increasing order of precedence.
func Load(cfgFile string, flags *pflag.FlagSet) (*AppConfig, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, werrors.Configf("error reading config file %s: %v", cfgFile, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, werrors.Configf("unable to decode config: %v", err)
	}
	return &cfg, nil
}

// envValue skips empty variables so an exported but blank value keeps the
// default.
func envValue(name, value string) (string, interface{}) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return envKey(name), value
}

// envKey maps an environment variable name to a config key. Unknown
// variables map to "" and are skipped.
func envKey(name string) string {
	if key, ok := envAliases[name]; ok {
		return key
	}
	if !strings.HasPrefix(name, EnvPrefix) {
		return ""
	}
	rest := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	section, key, ok := strings.Cut(rest, "_")
	if !ok || key == "" {
		return ""
	}
	return section + "." + key
}

// Validate checks the settings every run needs. The database connection
// string is checked by the record source so the empty-DSN failure is raised
// at enumeration time.
func (c *AppConfig) Validate() error {
	if c.Warmer.Concurrency < 1 {
		return werrors.Configf("concurrency must be at least 1, got %d", c.Warmer.Concurrency)
	}
	if c.Warmer.Timeout <= 0 {
		return werrors.Configf("timeout must be positive, got %s", c.Warmer.Timeout)
	}
	u, err := url.Parse(c.Warmer.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return werrors.Configf("base url must be an absolute http(s) url, got %q", c.Warmer.BaseURL)
	}
	switch c.Source.Kind {
	case SourcePostgres, SourceFile:
	default:
		return werrors.Configf("unknown source kind %q", c.Source.Kind)
	}
	switch c.IO.OutputFormat {
	case "json", "yaml":
	default:
		return werrors.Configf("unsupported output format: %s", c.IO.OutputFormat)
	}
	if c.Warmer.RateLimit < 0 {
		return werrors.Configf("rate limit must not be negative, got %v", c.Warmer.RateLimit)
	}
	return nil
}
