// Package transportinit models the "global transport refcount" spec.md §5
// describes: a process-wide counted initialization primitive guarding a
// shared transport library's one-time init/teardown, incremented under
// lock on open and decremented on close, with init called only on 0→1
// and teardown only on N→0.
//
// Go's net/http client needs no such global init/teardown, but the
// primitive is still implemented here (rather than left as an ad-hoc
// global, per spec.md §9's design note) so every HTTP/Swift stream open
// goes through the same acquire/release helper a real curl-backed
// transport would need.
package transportinit

import "sync"

var (
	mu       sync.Mutex
	refcount int
	initFn   func()
	cleanFn  func()
)

// SetHooks installs the init/cleanup callbacks invoked on 0→1 / N→0
// transitions. Tests may call this to observe the transitions; production
// code may leave it unset, in which case Acquire/Release just track the
// refcount.
func SetHooks(init, cleanup func()) {
	mu.Lock()
	defer mu.Unlock()
	initFn = init
	cleanFn = cleanup
}

// Acquire increments the refcount, calling the init hook on the 0→1
// transition.
func Acquire() {
	mu.Lock()
	defer mu.Unlock()
	refcount++
	if refcount == 1 && initFn != nil {
		initFn()
	}
}

// Release decrements the refcount, calling the cleanup hook on the N→0
// transition. Release without a matching Acquire is a no-op below zero.
func Release() {
	mu.Lock()
	defer mu.Unlock()
	if refcount == 0 {
		return
	}
	refcount--
	if refcount == 0 && cleanFn != nil {
		cleanFn()
	}
}

// Count returns the current refcount; exposed for tests.
func Count() int {
	mu.Lock()
	defer mu.Unlock()
	return refcount
}
