package util

import "sync"

// Go runs f in a goroutine tracked by wg.
func Go(wg *sync.WaitGroup, f func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		f()
	}()
}

// Parallel runs f(0) through f(n-1) each in its own goroutine and waits for
// all of them.
func Parallel(n int, f func(i int)) {
	var wg sync.WaitGroup
	for i := range n {
		Go(&wg, func() { f(i) })
	}
	wg.Wait()
}
