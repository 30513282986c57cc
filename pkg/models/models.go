package models

import (
	"time"
)

// Record identifies one page to warm: a namespace (the manufacturer slug)
// and an item code (the engine code).
type Record struct {
	Namespace string `json:"namespace" yaml:"namespace"`
	ItemCode  string `json:"item_code" yaml:"item_code"`
}

// WarmResult represents the outcome of warming a single URL.
// StatusCode is zero when no response was received and Error is empty on success.
type WarmResult struct {
	URL         string            `json:"url" yaml:"url"`
	Success     bool              `json:"success" yaml:"success"`
	StatusCode  int               `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Error       string            `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMs  int64             `json:"duration_ms" yaml:"duration_ms"`
	CacheStatus string            `json:"cache_status,omitempty" yaml:"cache_status,omitempty"`
	Extracted   map[string]string `json:"extracted,omitempty" yaml:"extracted,omitempty"`
	Timestamp   time.Time         `json:"timestamp" yaml:"timestamp"`
}

// HasStatus reports whether a response was received.
func (r WarmResult) HasStatus() bool {
	return r.StatusCode != 0
}

// RunSummary aggregates the results of a whole run.
type RunSummary struct {
	Total   int           `json:"total" yaml:"total"`
	Success int           `json:"success" yaml:"success"`
	Failure int           `json:"failure" yaml:"failure"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// Average returns the run's wall clock duration divided by the item count.
// Items run concurrently, so this is a throughput figure rather than the mean
// of individual durations.
func (s RunSummary) Average() time.Duration {
	if s.Total == 0 {
		return 0
	}
	return s.Elapsed / time.Duration(s.Total)
}
