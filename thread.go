package glctx

import (
	"runtime"
	"sync"
)

// Thread represents an OS thread that runs rendering work.
//
// Native contexts are bound to OS threads, not goroutines. A Thread is
// created with AttachThread on a goroutine pinned via runtime.LockOSThread
// and stands in for that thread everywhere calling-thread identity matters:
// it holds the thread's single current-context slot and the queue of work
// other threads have posted to it.
//
// The slot accessors are safe to call from any goroutine; Flush and Detach
// must be called from the owning goroutine.
type Thread struct {
	mu       sync.Mutex
	current  *Context
	tasks    []func()
	detached bool
}

var (
	threadsMu sync.Mutex
	threads   = make(map[*Thread]struct{})
)

// AttachThread pins the calling goroutine to its OS thread and returns the
// Thread handle representing it. The handle stays valid until Detach.
//
// Every goroutine that makes contexts current needs its own Thread.
func AttachThread() *Thread {
	runtime.LockOSThread()
	t := &Thread{}

	threadsMu.Lock()
	threads[t] = struct{}{}
	threadsMu.Unlock()

	Logger().Debug("glctx: thread attached")
	return t
}

// Detach runs any remaining posted work, clears the current-context slot,
// and releases the OS thread pin. The Thread must not be used afterwards.
//
// Contexts affined to this thread should be destroyed first; a context left
// current at Detach is logged as a likely leak.
func (t *Thread) Detach() {
	t.Flush()

	t.mu.Lock()
	if t.detached {
		t.mu.Unlock()
		return
	}
	t.detached = true
	leaked := t.current
	t.current = nil
	t.mu.Unlock()

	if leaked != nil {
		Logger().Warn("glctx: thread detached with a context still current")
	}

	threadsMu.Lock()
	delete(threads, t)
	threadsMu.Unlock()

	runtime.UnlockOSThread()
}

// Current returns the context current on this thread, or nil.
func (t *Thread) Current() *Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// setCurrent stores ctx in the thread's slot and returns the previously
// current context.
func (t *Thread) setCurrent(ctx *Context) *Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.current
	t.current = ctx
	return prev
}

// post queues fn to run on this thread. Used for work that must not run on
// the calling thread, such as finalizing a share group affined elsewhere.
// If the thread has already detached, fn runs inline: the thread's native
// state is gone, so there is no cross-thread hazard left to avoid.
func (t *Thread) post(fn func()) {
	t.mu.Lock()
	if t.detached {
		t.mu.Unlock()
		fn()
		return
	}
	t.tasks = append(t.tasks, fn)
	t.mu.Unlock()
}

// Flush runs work posted to this thread. It is called automatically by
// MakeCurrent, DoneCurrent and Detach; call it directly on threads that stay
// current on one context for long stretches.
//
// Flush must be called from the goroutine that called AttachThread.
func (t *Thread) Flush() {
	for {
		t.mu.Lock()
		tasks := t.tasks
		t.tasks = nil
		t.mu.Unlock()

		if len(tasks) == 0 {
			return
		}
		for _, fn := range tasks {
			fn()
		}
	}
}

// LiveThreads returns the number of attached threads. Diagnostic only.
func LiveThreads() int {
	threadsMu.Lock()
	defer threadsMu.Unlock()
	return len(threads)
}
