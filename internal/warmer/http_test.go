package warmer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williampepple1/isr-cache-warmer/internal/config"
	"github.com/williampepple1/isr-cache-warmer/internal/testutil"
)

func testConfig(timeout time.Duration) *config.AppConfig {
	return &config.AppConfig{
		Warmer: config.WarmerConfig{
			BaseURL:     "http://localhost:3000",
			Concurrency: 4,
			Timeout:     timeout,
			UserAgent:   config.DefaultUserAgent,
			Selectors:   config.DefaultSelectors,
		},
	}
}

func newWarmer(t *testing.T, cfg *config.AppConfig, runID string) *HTTPWarmer {
	t.Helper()
	w, err := NewHTTPWarmer(cfg, runID, testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w
}

func TestHTTPWarmer_Success(t *testing.T) {
	var gotUA, gotRun, gotCustom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		gotRun = r.Header.Get(RunHeader)
		gotCustom = r.Header.Get("X-Deploy")
		w.Header().Set("X-Nextjs-Cache", "MISS")
		_, _ = w.Write([]byte("<html><head><title>N47D20A</title></head></html>"))
	}))
	defer srv.Close()

	cfg := testConfig(time.Second)
	cfg.Warmer.Headers = map[string]string{"X-Deploy": "abc123"}
	w := newWarmer(t, cfg, "run-1")

	result := w.Warm(context.Background(), srv.URL+"/bmw/n47d20a-specs")

	assert.True(t, result.Success)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Empty(t, result.Error)
	assert.Equal(t, srv.URL+"/bmw/n47d20a-specs", result.URL)
	assert.GreaterOrEqual(t, result.DurationMs, int64(0))
	assert.Equal(t, "MISS", result.CacheStatus)
	assert.Nil(t, result.Extracted)
	assert.False(t, result.Timestamp.IsZero())

	assert.Equal(t, config.DefaultUserAgent, gotUA)
	assert.Equal(t, "run-1", gotRun)
	assert.Equal(t, "abc123", gotCustom)
}

func TestHTTPWarmer_StatusOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		success bool
	}{
		{name: "ok", status: http.StatusOK, success: true},
		{name: "no content", status: http.StatusNoContent, success: true},
		{name: "not found", status: http.StatusNotFound, success: false},
		{name: "service unavailable", status: http.StatusServiceUnavailable, success: false},
		{name: "server error", status: http.StatusInternalServerError, success: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			result := newWarmer(t, testConfig(time.Second), "").Warm(context.Background(), srv.URL)

			assert.Equal(t, tt.success, result.Success)
			assert.Equal(t, tt.status, result.StatusCode)
			assert.Empty(t, result.Error)
		})
	}
}

func TestHTTPWarmer_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	timeout := 100 * time.Millisecond
	result := newWarmer(t, testConfig(timeout), "").Warm(context.Background(), srv.URL)

	assert.False(t, result.Success)
	assert.False(t, result.HasStatus())
	assert.Contains(t, result.Error, "The operation was aborted")
	assert.GreaterOrEqual(t, result.DurationMs, timeout.Milliseconds())
	assert.Less(t, result.DurationMs, int64(5000))
}

func TestHTTPWarmer_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	result := newWarmer(t, testConfig(time.Second), "").Warm(context.Background(), addr)

	assert.False(t, result.Success)
	assert.Zero(t, result.StatusCode)
	assert.NotEmpty(t, result.Error)
}

func TestHTTPWarmer_InvalidURL(t *testing.T) {
	result := newWarmer(t, testConfig(time.Second), "").Warm(context.Background(), "http://bad host/")

	assert.False(t, result.Success)
	assert.Zero(t, result.StatusCode)
	assert.NotEmpty(t, result.Error)
}

func TestHTTPWarmer_CancelledRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	result := newWarmer(t, testConfig(time.Second), "").Warm(ctx, srv.URL)

	assert.False(t, result.Success)
	assert.Equal(t, "The operation was aborted: run cancelled", result.Error)
}

func TestHTTPWarmer_Inspect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><head><title>BMW N47D20A</title></head><body><h1>N47</h1></body></html>"))
	}))
	defer srv.Close()

	cfg := testConfig(time.Second)
	cfg.Warmer.Inspect = true
	cfg.Warmer.Selectors = map[string]string{"title": "title", "heading": "h1"}

	result := newWarmer(t, cfg, "").Warm(context.Background(), srv.URL)

	require.True(t, result.Success)
	assert.Equal(t, map[string]string{"title": "BMW N47D20A", "heading": "N47"}, result.Extracted)
}

func TestHTTPWarmer_ProxyConfigError(t *testing.T) {
	cfg := testConfig(time.Second)
	cfg.Proxies.Enabled = true
	cfg.Proxies.List = []string{"://bad"}

	_, err := NewHTTPWarmer(cfg, "", nil)
	assert.Error(t, err)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "The operation was aborted: no response within 30s",
		errorMessage(context.DeadlineExceeded, 30*time.Second))
	assert.Equal(t, "Unknown error", errorMessage(emptyError{}, time.Second))
	assert.Equal(t, "boom", errorMessage(assertError("boom"), time.Second))
}

func TestNewSelectsHTTPWarmer(t *testing.T) {
	w, err := New(testConfig(time.Second), "run", nil)
	require.NoError(t, err)
	defer w.Close()
	assert.IsType(t, &HTTPWarmer{}, w)
}

type emptyError struct{}

func (emptyError) Error() string { return "" }

type assertError string

func (e assertError) Error() string { return string(e) }
