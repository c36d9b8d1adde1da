// Package asyncx holds the small set of concurrency helpers the services
// share: a bounded worker pool and retry with exponential backoff.
package asyncx

import (
	"context"
	"sync"
	"time"
)

// ─── Worker Pool ──────────────────────────────────────────────────────────────

// Result holds the outcome of a single settled async operation.
type Result[T any] struct {
	Value T
	Err   error
}

// OK reports whether the result carries no error.
func (r Result[T]) OK() bool { return r.Err == nil }

// Pool processes items using at most workers goroutines and returns one
// Result per item in the original order. A failing item never stops the
// others; items not started before ctx is done settle with ctx.Err().
func Pool[T any, R any](
	ctx context.Context,
	workers int,
	items []T,
	fn func(context.Context, T) (R, error),
) []Result[R] {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}

	type indexed struct {
		i    int
		item T
	}

	work := make(chan indexed, len(items))
	for i, item := range items {
		work <- indexed{i: i, item: item}
	}
	close(work)

	results := make([]Result[R], len(items))

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for w := range work {
				if err := ctx.Err(); err != nil {
					results[w.i] = Result[R]{Err: err}
					continue
				}
				v, err := fn(ctx, w.item)
				results[w.i] = Result[R]{Value: v, Err: err}
			}
		}()
	}
	wg.Wait()

	return results
}

// ─── Retry ────────────────────────────────────────────────────────────────────

// RetryPolicy configures RetryWithBackoff.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	// Retryable decides whether an error is worth another attempt.
	// Nil retries every error.
	Retryable func(error) bool
}

// RetryWithBackoff calls fn up to p.Attempts times, doubling the delay after
// each failed attempt. It stops early on success, on a non-retryable error,
// or when ctx is done.
func RetryWithBackoff[T any](ctx context.Context, p RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero  T
		err   error
		val   T
		delay = p.InitialDelay
	)
	attempts := max(p.Attempts, 1)

	for i := range attempts {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}

		val, err = fn(ctx)
		if err == nil {
			return val, nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return zero, err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return zero, err
}
