// Package warmer issues the requests that populate the page cache.
package warmer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/williampepple1/isr-cache-warmer/internal/config"
	"github.com/williampepple1/isr-cache-warmer/pkg/models"
)

// RunHeader carries the run ID on every warm request.
const RunHeader = "X-Cache-Warm-Run"

// cacheHeaders report whether the platform served the page from cache.
var cacheHeaders = []string{"X-Nextjs-Cache", "X-Vercel-Cache", "X-Cache"}

// Warmer warms a single URL. Warm never panics and never fails: every fault
// is recorded in the returned result.
type Warmer interface {
	Warm(ctx context.Context, url string) models.WarmResult
	Close() error
}

// New creates a warmer based on the configuration
func New(cfg *config.AppConfig, runID string, logger *slog.Logger) (Warmer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Browser.Enabled {
		return NewBrowserWarmer(cfg, logger)
	}
	return NewHTTPWarmer(cfg, runID, logger)
}

// errorMessage turns a request fault into the text stored in a result.
func errorMessage(err error, timeout time.Duration) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("The operation was aborted: no response within %s", timeout)
	case errors.Is(err, context.Canceled):
		return "The operation was aborted: run cancelled"
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return "Unknown error"
}

func failure(result models.WarmResult, start time.Time, message string) models.WarmResult {
	result.Success = false
	result.StatusCode = 0
	result.Error = message
	result.DurationMs = time.Since(start).Milliseconds()
	result.Timestamp = time.Now()
	return result
}

func isSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}
