package loader

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BatchCall is one unit of work in a batch.
type BatchCall func(ctx context.Context) (any, error)

// BatchResult is the settled outcome of one call, at its input index.
type BatchResult struct {
	Index int
	Value any
	Err   error
}

// BatchOptions tunes BatchAPICallsParallel.
type BatchOptions struct {
	// MaxConcurrent is the window size; defaults to 3.
	MaxConcurrent int
	// OnProgress, if set, runs after every completed call with the
	// number settled so far and the total.
	OnProgress func(done, total int)
}

// BatchAPICallsParallel runs calls in fixed-size concurrency windows.
// Each window settles fully, successes and failures alike, before the
// next one starts, and results come back at their input index.
func BatchAPICallsParallel(ctx context.Context, calls []BatchCall, opts BatchOptions) []BatchResult {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}

	results := make([]BatchResult, len(calls))

	var progressMu sync.Mutex
	done := 0
	report := func() {
		if opts.OnProgress == nil {
			return
		}
		progressMu.Lock()
		done++
		n := done
		progressMu.Unlock()
		opts.OnProgress(n, len(calls))
	}

	for windowStart := 0; windowStart < len(calls); windowStart += maxConcurrent {
		windowEnd := windowStart + maxConcurrent
		if windowEnd > len(calls) {
			windowEnd = len(calls)
		}

		var g errgroup.Group
		for i := windowStart; i < windowEnd; i++ {
			i := i
			g.Go(func() error {
				value, err := calls[i](ctx)
				results[i] = BatchResult{Index: i, Value: value, Err: err}
				report()
				// Errors live in the result slot; never cancel the window
				return nil
			})
		}
		_ = g.Wait()
	}

	return results
}
