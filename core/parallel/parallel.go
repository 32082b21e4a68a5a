// Package parallel provides the bounded worker pool used by cross-validation
// and ensemble fitting.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// MaxWorkers caps the pool size regardless of the number of CPU cores.
const MaxWorkers = 8

// Workers resolves a requested pool size. Zero or negative means one worker
// per CPU core; the result is always within [1, MaxWorkers].
func Workers(requested int) int {
	n := requested
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > MaxWorkers {
		n = MaxWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

// ForEach calls fn for every index in [0, items) on at most workers
// goroutines. The first error cancels the context handed to the remaining
// calls and is returned. Indices not yet started when ctx is cancelled are
// skipped.
func ForEach(ctx context.Context, items, workers int, fn func(ctx context.Context, i int) error) error {
	if items == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Workers(workers))
	for i := 0; i < items; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Parallelize divides items into contiguous chunks, one per worker, and
// executes fn(start, end) for each chunk in parallel.
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := Workers(0)
	if numWorkers > items {
		numWorkers = items
	}

	// ceiling division
	chunkSize := (items + numWorkers - 1) / numWorkers

	var g errgroup.Group
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}
		s, e := start, end
		g.Go(func() error {
			fn(s, e)
			return nil
		})
	}
	_ = g.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when
// items does not exceed threshold.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
