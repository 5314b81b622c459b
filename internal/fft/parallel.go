// SPDX-License-Identifier: MIT
package fft

import "golang.org/x/sync/errgroup"

// parallelThreshold is the number of independent points below which the
// goroutine overhead outweighs the work.
const parallelThreshold = 8192

// parallelFor splits [0, n) into one contiguous range per worker, runs fn on
// each range concurrently and returns once every range is done.
func parallelFor(workers, n int, fn func(lo, hi int)) {
	if workers < 2 || n < 2 {
		fn(0, n)
		return
	}
	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}
