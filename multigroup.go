package glctx

import (
	"sync"
	"sync/atomic"
)

// MultiGroupResource tracks a shared singleton that is needed once per share
// group, like a glyph cache or a gradient cache. An instance of the payload
// is created lazily for each group on first request and torn down with the
// group.
//
// Do not call Free on SharedResources owned by a MultiGroupResource; the
// registry manages their lifetime.
type MultiGroupResource struct {
	mu     sync.Mutex
	groups []*ShareGroup

	// active counts payload instances currently alive across all groups.
	// Diagnostic only: a nonzero value at Close indicates a leak upstream.
	active atomic.Int64
}

// NewMultiGroupResource returns an empty registry.
func NewMultiGroupResource() *MultiGroupResource {
	return &MultiGroupResource{}
}

// Value returns the instance associated with ctx's share group, or nil if
// none has been created yet.
func (m *MultiGroupResource) Value(ctx *Context) *SharedResource {
	g := ctx.group
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resources == nil {
		return nil
	}
	return g.resources[m]
}

// Acquire returns the instance associated with ctx's share group, creating
// it with factory if absent. At most one instance exists per group.
//
// The factory runs with the group's lock held and must not call back into
// the group (no resource creation, no frees).
func (m *MultiGroupResource) Acquire(ctx *Context, factory func(*Context) ResourceCleanup) *SharedResource {
	g := ctx.group
	if g == nil {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dead {
		return nil
	}
	if r, ok := g.resources[m]; ok {
		return r
	}

	r := &SharedResource{cleanup: factory(ctx)}
	r.group.Store(g)
	g.registerLocked(r)
	g.resources[m] = r

	m.mu.Lock()
	m.groups = append(m.groups, g)
	m.mu.Unlock()
	m.active.Add(1)

	return r
}

// Resources returns the per-group instances currently tracked. Diagnostic.
func (m *MultiGroupResource) Resources() []*SharedResource {
	m.mu.Lock()
	groups := make([]*ShareGroup, len(m.groups))
	copy(groups, m.groups)
	m.mu.Unlock()

	var out []*SharedResource
	for _, g := range groups {
		g.mu.Lock()
		if g.resources != nil {
			if r, ok := g.resources[m]; ok {
				out = append(out, r)
			}
		}
		g.mu.Unlock()
	}
	return out
}

// ActiveInstances returns the number of live payload instances. Diagnostic.
func (m *MultiGroupResource) ActiveInstances() int64 {
	return m.active.Load()
}

// Close releases every per-group instance still associated with the
// registry. Instances whose group still has live contexts are queued for
// native deletion and drained on the group's next make-current; a leak
// warning is logged if any instance could not be accounted for.
func (m *MultiGroupResource) Close() {
	m.mu.Lock()
	groups := m.groups
	m.groups = nil
	m.mu.Unlock()

	for _, g := range groups {
		r := g.takeResource(m)
		if r == nil {
			continue
		}
		r.Free(nil)
		m.active.Add(-1)
	}

	if n := m.active.Load(); n != 0 {
		Logger().Warn("glctx: per-group resources still live at shutdown; "+
			"a consumer (surface, canvas) likely outlived its context",
			"count", n)
	}
}

// cleanup is called by a ShareGroup during teardown, with the group's lock
// held: the payload is invalidated (never natively freed; no context
// remains) and the group association dropped.
func (m *MultiGroupResource) cleanup(g *ShareGroup, r *SharedResource) {
	if !r.done.Swap(true) {
		r.cleanup.InvalidateResource()
	}
	r.group.Store(nil)

	m.mu.Lock()
	for i, mg := range m.groups {
		if mg == g {
			m.groups = append(m.groups[:i], m.groups[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	m.active.Add(-1)
}

// MultiGroupValue returns the typed payload for ctx's share group, creating
// it with factory if absent. It is the generic convenience over
// [MultiGroupResource.Acquire]:
//
//	cache := glctx.MultiGroupValue(caches, ctx, newGlyphCache)
func MultiGroupValue[T ResourceCleanup](m *MultiGroupResource, ctx *Context, factory func(*Context) T) T {
	var zero T
	r := m.Acquire(ctx, func(c *Context) ResourceCleanup { return factory(c) })
	if r == nil {
		return zero
	}
	v, ok := r.Cleanup().(T)
	if !ok {
		return zero
	}
	return v
}
