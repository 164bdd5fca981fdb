// Package parallel provides range-partitioning helpers for embarrassingly
// parallel per-row work, such as batch evaluation of a compiled model where
// every sample is independent.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits [0, items) into contiguous chunks, one per worker, and
// runs fn(start, end) for each chunk on its own goroutine. It blocks until
// every chunk has been processed. The worker count is capped at GOMAXPROCS
// and at items, so small inputs never spawn idle goroutines.
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeWorkers(items, runtime.GOMAXPROCS(0), fn)
}

// ParallelizeWorkers is Parallelize with an explicit worker count.
// A non-positive count falls back to GOMAXPROCS.
func ParallelizeWorkers(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > items {
		workers = items
	}
	if workers == 1 {
		fn(0, items)
		return
	}

	// Ceiling division keeps the chunks balanced to within one item.
	chunk := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunk {
		end := start + chunk
		if end > items {
			end = items
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially when items is at or below
// threshold, avoiding goroutine overhead for batches too small to benefit.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	Parallelize(items, fn)
}
