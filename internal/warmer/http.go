package warmer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/williampepple1/isr-cache-warmer/internal/config"
	"github.com/williampepple1/isr-cache-warmer/internal/extraction"
	"github.com/williampepple1/isr-cache-warmer/internal/proxy"
	"github.com/williampepple1/isr-cache-warmer/pkg/models"
)

// HTTPWarmer warms pages with plain GET requests.
type HTTPWarmer struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	headers   map[string]string
	extractor *extraction.Extractor
	logger    *slog.Logger
}

// NewHTTPWarmer creates an HTTP warmer. runID is sent in RunHeader when set.
func NewHTTPWarmer(cfg *config.AppConfig, runID string, logger *slog.Logger) (*HTTPWarmer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	timeout := cfg.Warmer.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	userAgent := cfg.Warmer.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   max(cfg.Warmer.Concurrency, 2),
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	proxies, err := proxy.NewManager(&cfg.Proxies)
	if err != nil {
		return nil, err
	}
	if proxies != nil {
		proxies.ApplyToTransport(transport)
	}

	headers := make(map[string]string, len(cfg.Warmer.Headers)+1)
	for k, v := range cfg.Warmer.Headers {
		headers[k] = v
	}
	if runID != "" {
		headers[RunHeader] = runID
	}

	var extractor *extraction.Extractor
	if cfg.Warmer.Inspect {
		extractor = extraction.NewExtractor(cfg.Warmer.Selectors)
	}

	return &HTTPWarmer{
		// The per-request context carries the deadline.
		client:    &http.Client{Transport: transport},
		timeout:   timeout,
		userAgent: userAgent,
		headers:   headers,
		extractor: extractor,
		logger:    logger,
	}, nil
}

// Warm issues a single GET against url and records the outcome.
func (w *HTTPWarmer) Warm(ctx context.Context, url string) (result models.WarmResult) {
	start := time.Now()
	result = models.WarmResult{URL: url}

	defer func() {
		if r := recover(); r != nil {
			result = failure(models.WarmResult{URL: url}, start, fmt.Sprintf("panic while warming: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return failure(result, start, errorMessage(err, w.timeout))
	}
	req.Header.Set("User-Agent", w.userAgent)
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return failure(result, start, errorMessage(contextErr(ctx, err), w.timeout))
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.Success = isSuccessStatus(resp.StatusCode)
	result.CacheStatus = cacheStatus(resp.Header)

	if result.Success && w.extractor != nil && isHTML(resp.Header) {
		extracted, err := w.extractor.Extract(resp.Body)
		if err != nil {
			w.logger.Debug("page inspection failed", slog.String("url", url), slog.Any("error", err))
		} else {
			result.Extracted = extracted
		}
	}

	// Draining lets the connection be reused and waits for the render to finish.
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		w.logger.Debug("failed to drain response body", slog.String("url", url), slog.Any("error", err))
	}

	result.DurationMs = time.Since(start).Milliseconds()
	result.Timestamp = time.Now()
	return result
}

// Close releases idle connections.
func (w *HTTPWarmer) Close() error {
	w.client.CloseIdleConnections()
	return nil
}

func cacheStatus(h http.Header) string {
	for _, name := range cacheHeaders {
		if v := h.Get(name); v != "" {
			return v
		}
	}
	return ""
}

func isHTML(h http.Header) bool {
	ct := h.Get("Content-Type")
	return ct == "" || strings.Contains(strings.ToLower(ct), "html")
}
