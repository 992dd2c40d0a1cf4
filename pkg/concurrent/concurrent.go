// Package concurrent carries the small fan-out helpers shared by the
// scheduler and by intra-system iteration.
package concurrent

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ForEach runs action for every index in [0, n) concurrently, bounded by
// workers goroutines (unbounded when workers <= 0). It waits for all
// started work to finish and returns the first error encountered.
func ForEach(n, workers int, action func(i int) error) error {
	g := errgroup.Group{}
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			return action(i)
		})
	}
	return g.Wait()
}

// ForEachSerial runs action for every index in [0, n) on the calling
// goroutine, stopping at the first error.
func ForEachSerial(n int, action func(i int) error) error {
	for i := 0; i < n; i++ {
		if err := action(i); err != nil {
			return err
		}
	}
	return nil
}

// Safely invokes fn, converting a panic into an error so one failing task
// cannot tear down its siblings mid-flight.
func Safely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
