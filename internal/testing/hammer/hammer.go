// Package hammer runs a test body from many goroutines at once, so data races
// and missing locks show up under -race.
package hammer

import (
	"runtime"
	"sync"
	"testing"
)

// Hammer invokes a test concurrently in P goroutines N times per goroutine.
//
// Here's an example:
//
//	P := 8               // max count of goroutines
//	N := 100             // work per goroutine
//	if testing.Short() { // Adjust down if `-test.short`
//		P = 4
//		N = 10
//	}
//
//	hammer.New(t, P, N).Run(func(p, n int) error {
//		_, err := mod.Fibonacci(ctx, int32(n))
//		return err
//	})
type Hammer struct {
	t testing.TB
	// P is the count of goroutines.
	P int
	// N is the work per goroutine.
	N int
}

// New returns a Hammer of P goroutines looping N times each.
func New(t testing.TB, P, N int) *Hammer {
	return &Hammer{t: t, P: P, N: N}
}

// Run releases all goroutines at the same time and returns when they finish.
//
// A goroutine stops at its first error, which is reported with t.Errorf. A
// panic is reported the same way. Check t.Failed afterwards to stop early.
func (h *Hammer) Run(test func(p, n int) error) {
	defer runtime.GOMAXPROCS(runtime.GOMAXPROCS(max(h.P/2, 1))) // Ensure goroutines have to switch cores.

	var ready, done sync.WaitGroup
	start := make(chan struct{})

	ready.Add(h.P)
	done.Add(h.P)
	for p := 0; p < h.P; p++ {
		go func() {
			defer done.Done()
			defer func() {
				if recovered := recover(); recovered != nil {
					h.t.Errorf("goroutine %d: %v", p, recovered)
				}
			}()

			ready.Done()
			<-start
			for n := 0; n < h.N; n++ {
				if err := test(p, n); err != nil {
					h.t.Errorf("goroutine %d, iteration %d: %v", p, n, err)
					return
				}
			}
		}()
	}

	ready.Wait()
	close(start)
	done.Wait()
}
