package glctx

import "sync/atomic"

// globalShare holds the application-wide sharing anchor. A single slot,
// set once before any dependent contexts are created.
var globalShare atomic.Pointer[Context]

// SetGlobalShareContext installs ctx as the application-wide sharing
// anchor: every context subsequently created without an explicit share
// target shares with it. The slot can be set once; later calls are ignored
// with a warning. Pass the anchor before creating any other contexts.
//
// Reports whether ctx was installed.
func SetGlobalShareContext(ctx *Context) bool {
	if ctx == nil {
		return false
	}
	if !globalShare.CompareAndSwap(nil, ctx) {
		Logger().Warn("glctx: global share context already set; ignoring")
		return false
	}
	return true
}

// GlobalShareContext returns the application-wide sharing anchor, or nil if
// none was set.
func GlobalShareContext() *Context {
	return globalShare.Load()
}

// resetGlobalShareContext clears the slot. Tests only.
func resetGlobalShareContext() {
	globalShare.Store(nil)
}
