package warmer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/williampepple1/isr-cache-warmer/internal/config"
	"github.com/williampepple1/isr-cache-warmer/internal/extraction"
	"github.com/williampepple1/isr-cache-warmer/pkg/models"
)

// BrowserWarmer renders pages in headless Chrome, so client side data
// fetching is warmed along with the HTML. One browser process serves the
// whole run and every warm gets its own tab.
type BrowserWarmer struct {
	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	startOnce     sync.Once
	startErr      error

	timeout     time.Duration
	waitTime    time.Duration
	extractor   *extraction.Extractor
	logger      *slog.Logger
}

// NewBrowserWarmer prepares the browser. Chrome is launched by the first warm.
func NewBrowserWarmer(cfg *config.AppConfig, logger *slog.Logger) (*BrowserWarmer, error) {
	timeout := cfg.Warmer.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	userAgent := cfg.Warmer.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Browser.Headless),
		chromedp.UserAgent(userAgent),
	)
	if len(cfg.Proxies.List) > 0 && cfg.Proxies.Enabled {
		opts = append(opts, chromedp.ProxyServer(cfg.Proxies.List[0]))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	var extractor *extraction.Extractor
	if cfg.Warmer.Inspect {
		extractor = extraction.NewExtractor(cfg.Warmer.Selectors)
	}

	return &BrowserWarmer{
		cancelAlloc:   cancelAlloc,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		timeout:       timeout,
		waitTime:    cfg.Browser.WaitTime,
		extractor:   extractor,
		logger:      logger,
	}, nil
}

// start launches Chrome once. A launch failure fails every warm.
func (b *BrowserWarmer) start() error {
	b.startOnce.Do(func() {
		b.startErr = chromedp.Run(b.browserCtx)
	})
	return b.startErr
}

// Warm navigates a new tab to url and records the document response.
func (b *BrowserWarmer) Warm(ctx context.Context, url string) (result models.WarmResult) {
	start := time.Now()
	result = models.WarmResult{URL: url}

	defer func() {
		if r := recover(); r != nil {
			result = failure(models.WarmResult{URL: url}, start, fmt.Sprintf("panic while warming: %v", r))
		}
	}()

	if err := b.start(); err != nil {
		return failure(result, start, errorMessage(err, b.timeout))
	}

	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()
	tabCtx, cancel := context.WithTimeout(tabCtx, b.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(url))
	if err != nil {
		return failure(result, start, errorMessage(contextErr(tabCtx, err), b.timeout))
	}

	if resp == nil {
		return failure(result, start, "no document response")
	}
	result.StatusCode = int(resp.Status)
	for name, value := range resp.Headers {
		for _, want := range cacheHeaders {
			if strings.EqualFold(name, want) && result.CacheStatus == "" {
				result.CacheStatus = fmt.Sprint(value)
			}
		}
	}
	result.Success = isSuccessStatus(result.StatusCode)

	if result.Success {
		tasks := []chromedp.Action{}
		if b.waitTime > 0 {
			tasks = append(tasks, chromedp.Sleep(b.waitTime))
		}
		var html string
		if b.extractor != nil {
			tasks = append(tasks, chromedp.OuterHTML("html", &html))
		}
		if len(tasks) > 0 {
			if err := chromedp.Run(tabCtx, tasks...); err != nil {
				return failure(result, start, errorMessage(contextErr(tabCtx, err), b.timeout))
			}
		}
		if b.extractor != nil {
			extracted, err := b.extractor.Extract(strings.NewReader(html))
			if err != nil {
				b.logger.Debug("page inspection failed", slog.String("url", url), slog.Any("error", err))
			} else {
				result.Extracted = extracted
			}
		}
	}

	result.DurationMs = time.Since(start).Milliseconds()
	result.Timestamp = time.Now()
	return result
}

// Close shuts the browser down.
func (b *BrowserWarmer) Close() error {
	b.cancelBrowser()
	b.cancelAlloc()
	return nil
}

// contextErr prefers the context's error so timeouts are reported as aborts.
func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
