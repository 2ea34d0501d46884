// Package tracker records which contexts are currently active, to detect
// make-current / swap mismatches. Purely diagnostic: it never changes
// behavior, and its lock is independent of any share-group lock.
package tracker

import "sync"

var (
	mu     sync.Mutex
	active = make(map[any]bool)
)

// Set records whether ctx is active and returns the previous value.
func Set(ctx any, on bool) bool {
	mu.Lock()
	defer mu.Unlock()
	was := active[ctx]
	active[ctx] = on
	return was
}

// Forget drops all state for ctx. Called when a context is destroyed.
func Forget(ctx any) {
	mu.Lock()
	defer mu.Unlock()
	delete(active, ctx)
}

// Active reports whether ctx is currently recorded as active.
func Active(ctx any) bool {
	mu.Lock()
	defer mu.Unlock()
	return active[ctx]
}
