package report

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/williampepple1/isr-cache-warmer/pkg/models"
)

// Progress prints per-item progress. Failures are printed as they happen;
// successes only show up in checkpoint lines every Checkpoint completions and
// on the last one.
type Progress struct {
	out        io.Writer
	logger     *slog.Logger
	checkpoint int

	success int
	failure int
}

// NewProgress creates a progress reporter. A checkpoint below one reports
// every completion.
func NewProgress(out io.Writer, logger *slog.Logger, checkpoint int) *Progress {
	if checkpoint < 1 {
		checkpoint = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Progress{out: out, logger: logger, checkpoint: checkpoint}
}

// Update records one completed item. The worker package serializes calls.
func (p *Progress) Update(completed, total int, result models.WarmResult) {
	if result.Success {
		p.success++
	} else {
		p.failure++
		p.printFailure(completed, total, result)
	}

	if completed%p.checkpoint == 0 || completed == total {
		pct := float64(completed) / float64(total) * 100
		_, _ = fmt.Fprintf(p.out, "[%d/%d] %.1f%% success=%d failed=%d last=%s (%dms)\n",
			completed, total, pct, p.success, p.failure, result.URL, result.DurationMs)
	}
}

func (p *Progress) printFailure(completed, total int, result models.WarmResult) {
	reason := result.Error
	if result.HasStatus() {
		reason = fmt.Sprintf("HTTP %d", result.StatusCode)
	}
	_, _ = fmt.Fprintf(p.out, "[%d/%d] FAILED %s: %s (%dms)\n",
		completed, total, result.URL, reason, result.DurationMs)
	p.logger.Warn("page warm failed",
		slog.String("url", result.URL),
		slog.Int("status", result.StatusCode),
		slog.String("error", result.Error),
		slog.Int64("duration_ms", result.DurationMs),
	)
}

// Counts returns the running success and failure tallies.
func (p *Progress) Counts() (success, failure int) {
	return p.success, p.failure
}
