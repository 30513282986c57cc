package cachewarmer

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/williampepple1/isr-cache-warmer/internal/config"
	werrors "github.com/williampepple1/isr-cache-warmer/internal/errors"
	"github.com/williampepple1/isr-cache-warmer/internal/testutil"
	"github.com/williampepple1/isr-cache-warmer/internal/warmer"
	"github.com/williampepple1/isr-cache-warmer/pkg/models"
)

type staticSource struct {
	records []models.Record
	err     error
}

func (s staticSource) Records(context.Context) ([]models.Record, error) {
	return s.records, s.err
}

// site is a test server that tracks hits and the in-flight high-water mark.
type site struct {
	*httptest.Server
	hits      *atomic.Int32
	inFlight  *atomic.Int32
	highWater *atomic.Int32
}

func newSite(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *site {
	t.Helper()
	s := &site{
		hits:      atomic.NewInt32(0),
		inFlight:  atomic.NewInt32(0),
		highWater: atomic.NewInt32(0),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Inc()
		current := s.inFlight.Inc()
		defer s.inFlight.Dec()
		for {
			seen := s.highWater.Load()
			if current <= seen || s.highWater.CompareAndSwap(seen, current) {
				break
			}
		}
		handler(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func runConfig(baseURL string, concurrency int, timeout time.Duration) *config.AppConfig {
	return &config.AppConfig{
		Warmer: config.WarmerConfig{
			BaseURL:     baseURL,
			Concurrency: concurrency,
			Timeout:     timeout,
			UserAgent:   config.DefaultUserAgent,
			Checkpoint:  config.DefaultCheckpoint,
		},
		IO: config.IOConfig{OutputFormat: "json"},
	}
}

func records(n int) []models.Record {
	recs := make([]models.Record, n)
	for i := range recs {
		recs[i] = models.Record{Namespace: "bmw", ItemCode: "engine" + strings.Repeat("x", i)}
	}
	return recs
}

func newCacheWarmer(t *testing.T, cfg *config.AppConfig, src staticSource, out *bytes.Buffer) *CacheWarmer {
	t.Helper()
	w, err := warmer.NewHTTPWarmer(cfg, "run-test", testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return New(cfg, src, w, "run-test", out, testutil.NewTestLogger(t))
}

func TestRun_EmptyRecordSet(t *testing.T) {
	s := newSite(t, func(w http.ResponseWriter, _ *http.Request) {})
	var out bytes.Buffer

	cw := newCacheWarmer(t, runConfig(s.URL, 10, time.Second), staticSource{records: []models.Record{}}, &out)
	outcome, err := cw.Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, s.hits.Load())
	assert.Empty(t, outcome.Results)
	assert.Equal(t, models.RunSummary{Total: 0, Success: 0, Failure: 0, Elapsed: outcome.Summary.Elapsed}, outcome.Summary)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.Contains(t, out.String(), "No pages to warm")
	assert.Equal(t, PhaseTerminated, cw.Phase())
}

func TestRun_AllSucceedWithinConcurrencyCeiling(t *testing.T) {
	s := newSite(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})
	var out bytes.Buffer
	recs := records(25)

	outcome, err := newCacheWarmer(t, runConfig(s.URL, 10, time.Second), staticSource{records: recs}, &out).
		Run(context.Background())

	require.NoError(t, err)
	require.Len(t, outcome.Results, 25)
	for i, r := range outcome.Results {
		assert.True(t, r.Success)
		assert.Equal(t, http.StatusOK, r.StatusCode)
		assert.Equal(t, s.URL+"/bmw/"+recs[i].ItemCode+"-specs", r.URL)
	}
	assert.Equal(t, models.RunSummary{Total: 25, Success: 25, Elapsed: outcome.Summary.Elapsed}, outcome.Summary)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.Equal(t, int32(25), s.hits.Load())
	assert.LessOrEqual(t, s.highWater.Load(), int32(10))
	assert.Contains(t, out.String(), "[25/25]")
}

func TestRun_OneItemTimesOut(t *testing.T) {
	s := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/bmw/slow") {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	var out bytes.Buffer
	recs := []models.Record{
		{Namespace: "bmw", ItemCode: "n47d20a"},
		{Namespace: "bmw", ItemCode: "slow"},
		{Namespace: "bmw", ItemCode: "b47d20a"},
	}
	timeout := 150 * time.Millisecond

	outcome, err := newCacheWarmer(t, runConfig(s.URL, 3, timeout), staticSource{records: recs}, &out).
		Run(context.Background())

	require.NoError(t, err)
	require.Len(t, outcome.Results, 3)
	assert.True(t, outcome.Results[0].Success)
	assert.True(t, outcome.Results[2].Success)

	slow := outcome.Results[1]
	assert.False(t, slow.Success)
	assert.Zero(t, slow.StatusCode)
	assert.Contains(t, slow.Error, "The operation was aborted")
	assert.GreaterOrEqual(t, slow.DurationMs, timeout.Milliseconds())

	assert.Equal(t, 2, outcome.Summary.Success)
	assert.Equal(t, 1, outcome.Summary.Failure)
	assert.Equal(t, 1, outcome.ExitCode)
	assert.Contains(t, out.String(), "FAILED "+s.URL+"/bmw/slow-specs")
}

func TestRun_ServiceUnavailable(t *testing.T) {
	s := newSite(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	var out bytes.Buffer

	outcome, err := newCacheWarmer(t, runConfig(s.URL, 10, time.Second),
		staticSource{records: []models.Record{{Namespace: "bmw", ItemCode: "n47d20a"}}}, &out).
		Run(context.Background())

	require.NoError(t, err)
	require.Len(t, outcome.Results, 1)
	assert.False(t, outcome.Results[0].Success)
	assert.Equal(t, http.StatusServiceUnavailable, outcome.Results[0].StatusCode)
	assert.Empty(t, outcome.Results[0].Error)
	assert.Equal(t, 1, outcome.ExitCode)
	assert.Contains(t, out.String(), "HTTP 503")
}

func TestRun_EnumerationFailure(t *testing.T) {
	s := newSite(t, func(w http.ResponseWriter, _ *http.Request) {})
	var out bytes.Buffer
	src := staticSource{err: werrors.Enumeration("failed to query records", assert.AnError)}

	cw := newCacheWarmer(t, runConfig(s.URL, 10, time.Second), src, &out)
	outcome, err := cw.Run(context.Background())

	require.Error(t, err)
	assert.True(t, werrors.IsKind(err, werrors.KindEnumeration))
	assert.Equal(t, 1, outcome.ExitCode)
	assert.Empty(t, outcome.Results)
	assert.Zero(t, s.hits.Load())
	assert.Equal(t, PhaseTerminated, cw.Phase())
}

func TestRun_IsSinglePass(t *testing.T) {
	s := newSite(t, func(w http.ResponseWriter, _ *http.Request) {})
	var out bytes.Buffer

	cw := newCacheWarmer(t, runConfig(s.URL, 2, time.Second), staticSource{records: records(2)}, &out)
	_, err := cw.Run(context.Background())
	require.NoError(t, err)

	_, err = cw.Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(2), s.hits.Load())
}

func TestRun_SavesResultsFile(t *testing.T) {
	s := newSite(t, func(w http.ResponseWriter, _ *http.Request) {})
	var out bytes.Buffer
	cfg := runConfig(s.URL, 2, time.Second)
	cfg.IO.OutputFile = filepath.Join(t.TempDir(), "warm.json")

	outcome, err := newCacheWarmer(t, cfg, staticSource{records: records(3)}, &out).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.ExitCode)

	data, err := os.ReadFile(cfg.IO.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id": "run-test"`)
	assert.Contains(t, out.String(), "Results saved to")
}
