// Package worker runs an operation over a list of items with a fixed number
// of concurrent workers.
package worker

import (
	"context"
	"sync"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Operation processes a single item. It must be total: any fault has to be
// encoded into the returned value. A panicking operation breaks the one
// result per item guarantee of Run.
type Operation[T, R any] func(ctx context.Context, item T) R

// ProgressFunc is called once per completed item with the number of items
// completed so far, the total, and the result that was just recorded.
type ProgressFunc[R any] func(completed, total int, result R)

// Options configures a run.
type Options struct {
	// Concurrency is the maximum number of operations in flight. Values below
	// one are treated as one.
	Concurrency int
	// Limiter, when set, paces operation starts across all workers.
	Limiter *rate.Limiter
}

// NewLimiter returns a limiter allowing rps operations per second, or nil
// when rps is not positive.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

type pool[T, R any] struct {
	items      []T
	results    []R
	op         Operation[T, R]
	onProgress ProgressFunc[R]
	limiter    *rate.Limiter

	cursor *atomic.Int64

	mu        sync.Mutex
	completed int
}

// Run applies op to every item with at most opts.Concurrency operations in
// flight and returns the results index-aligned with items once all of them
// have settled.
//
// Each worker claims the next unprocessed index from a shared cursor, so a
// slow item only occupies its own worker. Progress callbacks are serialized
// and follow completion order, not input order.
func Run[T, R any](ctx context.Context, items []T, opts Options, op Operation[T, R], onProgress ProgressFunc[R]) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	workers := opts.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	p := &pool[T, R]{
		items:      items,
		results:    results,
		op:         op,
		onProgress: onProgress,
		limiter:    opts.Limiter,
		cursor:     atomic.NewInt64(0),
	}

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			p.work(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// work processes items until the cursor passes the end of the list.
func (p *pool[T, R]) work(ctx context.Context) {
	total := len(p.items)
	for {
		idx := int(p.cursor.Inc() - 1)
		if idx >= total {
			return
		}

		if p.limiter != nil {
			// A cancelled wait leaves ctx done; op records the failure itself.
			_ = p.limiter.Wait(ctx)
		}

		result := p.op(ctx, p.items[idx])
		p.results[idx] = result
		p.report(total, result)
	}
}

func (p *pool[T, R]) report(total int, result R) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed++
	if p.onProgress != nil {
		p.onProgress(p.completed, total, result)
	}
}
