package glctx

import "sync/atomic"

// ResourceCleanup is implemented once per kind of GPU object tracked by a
// SharedResource (texture, buffer, shader, ...).
//
// FreeResource issues the native deletion call; glctx guarantees that ctx is
// a live member of the resource's share group and current on the calling
// thread at that moment. InvalidateResource marks the object's identifiers
// unusable without touching the driver; it runs when the last context of the
// group is destroyed before the resource was freed. Both must tolerate being
// effectively unreachable afterwards; neither is ever called twice.
type ResourceCleanup interface {
	FreeResource(ctx *Context)
	InvalidateResource()
}

// SharedResource tracks one GPU object shared between the contexts of a
// ShareGroup and frees it at a safe moment.
//
// A SharedResource is never reused: call Free when the object is no longer
// needed and drop all references. Freeing twice, or freeing after the
// owning group disappeared, is a no-op.
type SharedResource struct {
	cleanup ResourceCleanup

	// group is the owning share group; nil once the resource has been
	// freed, invalidated, or orphaned by group teardown. The resource
	// never keeps the group alive.
	group atomic.Pointer[ShareGroup]

	// done flips exactly once, immediately before FreeResource or
	// InvalidateResource runs (or the resource is silently dropped).
	done atomic.Bool

	// pending is guarded by the owning group's mutex.
	pending bool
}

// NewSharedResource registers cleanup with group and returns the tracking
// handle. The concrete GPU object should already exist.
func NewSharedResource(group *ShareGroup, cleanup ResourceCleanup) *SharedResource {
	r := &SharedResource{cleanup: cleanup}
	r.group.Store(group)
	group.register(r)
	return r
}

// Cleanup returns the per-kind cleanup value the resource was created with.
func (r *SharedResource) Cleanup() ResourceCleanup { return r.cleanup }

// Group returns the owning share group, or nil once the resource has been
// freed or orphaned.
func (r *SharedResource) Group() *ShareGroup { return r.group.Load() }

// Free schedules the resource for deletion.
//
// th identifies the calling thread and may be nil. If th's current context
// belongs to the resource's group, the native free runs synchronously before
// Free returns. Otherwise the resource waits in the group's pending queue
// and is freed the next time any member context becomes current, on
// whichever thread that happens.
//
// Free is idempotent: only the first call has any effect.
func (r *SharedResource) Free(th *Thread) {
	g := r.group.Load()
	if g == nil || r.done.Load() {
		// Orphaned or already freed; nothing to delete natively.
		return
	}
	if !g.moveToPending(r) {
		return
	}
	if th == nil {
		return
	}
	if cur := th.Current(); cur != nil && cur.group == g {
		g.deletePending(cur)
	}
}

// FreeFunc is the native deletion callback of a ResourceGuard.
type FreeFunc func(ctx *Context, id uint32)

// ResourceGuard is a convenience SharedResource kind tracking a single GPU
// object named by a uint32 identifier, with a callback that deletes it.
//
//	tex := createTexture(ctx)
//	guard := glctx.NewResourceGuard(ctx, tex, func(c *glctx.Context, id uint32) {
//	    deleteTexture(c, id)
//	})
//	// ... later, from any goroutine:
//	guard.Free(th)
type ResourceGuard struct {
	id   uint32
	free FreeFunc
	res  *SharedResource
}

// NewResourceGuard registers id with ctx's share group. The context must
// have been created.
func NewResourceGuard(ctx *Context, id uint32, free FreeFunc) *ResourceGuard {
	g := &ResourceGuard{id: id, free: free}
	g.res = NewSharedResource(ctx.ShareGroup(), g)
	return g
}

// ID returns the guarded identifier, or 0 once freed or invalidated.
func (g *ResourceGuard) ID() uint32 { return g.id }

// Free schedules the guarded object for deletion. See SharedResource.Free.
func (g *ResourceGuard) Free(th *Thread) { g.res.Free(th) }

// Resource returns the underlying tracking handle.
func (g *ResourceGuard) Resource() *SharedResource { return g.res }

// FreeResource implements ResourceCleanup.
func (g *ResourceGuard) FreeResource(ctx *Context) {
	if g.id != 0 {
		g.free(ctx, g.id)
		g.id = 0
	}
}

// InvalidateResource implements ResourceCleanup.
func (g *ResourceGuard) InvalidateResource() {
	g.id = 0
}
