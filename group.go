// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package glctx

import "sync"

// ShareGroup is the set of contexts sharing GPU resources with each other.
//
// Groups are created and managed by Context instances: a context without a
// share target gets a fresh group, and contexts sharing with it join that
// group. The group owns the queue of resources awaiting deletion and the
// table of per-group singletons managed by MultiGroupResource values.
//
// All bookkeeping is guarded by a single mutex. The mutex is never held
// while a native free callback runs.
type ShareGroup struct {
	mu        sync.Mutex
	shares    []*Context // join order
	refs      int
	repr      *Context // member used to run deferred deletions
	live      []*SharedResource
	pending   []*SharedResource
	resources map[*MultiGroupResource]*SharedResource
	thread    *Thread // affinity: the first member's thread
	dead      bool
}

func newShareGroup(th *Thread) *ShareGroup {
	return &ShareGroup{
		resources: make(map[*MultiGroupResource]*SharedResource),
		thread:    th,
	}
}

// Shares returns the member contexts in join order.
func (g *ShareGroup) Shares() []*Context {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Context, len(g.shares))
	copy(out, g.shares)
	return out
}

// Representative returns the member context the group would use to run
// deferred deletions, or nil for a torn-down group.
func (g *ShareGroup) Representative() *Context {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.repr
}

// CurrentGroup returns the share group of the context current on th,
// or nil if no context is current there.
func CurrentGroup(th *Thread) *ShareGroup {
	if cur := th.Current(); cur != nil {
		return cur.group
	}
	return nil
}

func (g *ShareGroup) add(ctx *Context) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refs++
	g.shares = append(g.shares, ctx)
	if g.repr == nil {
		g.repr = ctx
	}
}

// remove takes ctx out of the group. When the last member leaves, the
// group's resources are torn down synchronously; the group finalizer runs
// on the group's affinity thread, posted there when the call happens
// elsewhere.
func (g *ShareGroup) remove(ctx *Context, calling *Thread) {
	g.mu.Lock()
	for i, c := range g.shares {
		if c == ctx {
			g.shares = append(g.shares[:i], g.shares[i+1:]...)
			break
		}
	}
	if g.repr == ctx {
		g.repr = nil
		if len(g.shares) > 0 {
			g.repr = g.shares[0]
		}
	}
	g.refs--
	last := g.refs == 0
	if last {
		g.teardownLocked()
	}
	g.mu.Unlock()

	if !last {
		return
	}
	if g.thread != nil && calling != g.thread {
		g.thread.post(g.finalize)
	} else {
		g.finalize()
	}
}

// teardownLocked releases everything the group tracks. No native free calls
// are issued: with the last member gone there is no context to run them.
// Caller holds g.mu.
func (g *ShareGroup) teardownLocked() {
	g.dead = true

	// Per-group singletons first: their owners forget this group and the
	// payloads are invalidated.
	for m, r := range g.resources {
		m.cleanup(g, r)
	}
	g.resources = nil

	// Resources never freed by their owners: invalidate and orphan.
	invalidated := 0
	for _, r := range g.live {
		if r.done.Swap(true) {
			continue
		}
		r.cleanup.InvalidateResource()
		r.group.Store(nil)
		invalidated++
	}
	g.live = nil

	// Resources already queued for deletion are discarded outright; their
	// native frees never run.
	for _, r := range g.pending {
		r.done.Store(true)
		r.group.Store(nil)
	}
	dropped := len(g.pending)
	g.pending = nil

	if invalidated > 0 || dropped > 0 {
		Logger().Debug("glctx: share group torn down",
			"invalidated", invalidated, "dropped", dropped)
	}
}

// finalize runs after teardown, on the group's affinity thread when that
// differs from the thread the last member left on.
func (g *ShareGroup) finalize() {
	Logger().Debug("glctx: share group destroyed")
}

// deletePending drains the pending-deletion queue, invoking each queued
// resource's native free callback with active, which must be a live member
// context current on the calling thread.
//
// Called whenever a member context becomes or stops being current, and
// directly from SharedResource.Free when an immediate drain is legal.
func (g *ShareGroup) deletePending(active *Context) {
	g.mu.Lock()
	pending := g.pending
	g.pending = nil
	g.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	Logger().Debug("glctx: draining pending resources", "count", len(pending))
	for _, r := range pending {
		if r.done.Swap(true) {
			continue
		}
		r.cleanup.FreeResource(active)
		r.group.Store(nil)
	}
}

// register adds a newly constructed resource to the live set.
func (g *ShareGroup) register(r *SharedResource) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.registerLocked(r)
}

func (g *ShareGroup) registerLocked(r *SharedResource) {
	if g.dead {
		// Group already torn down; the resource starts out orphaned.
		r.done.Store(true)
		r.group.Store(nil)
		return
	}
	g.live = append(g.live, r)
}

// moveToPending transfers r from the live set to the pending-deletion
// queue. Reports false when the resource is no longer tracked (already
// pending, already freed, or the group is torn down).
func (g *ShareGroup) moveToPending(r *SharedResource) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dead || r.pending {
		return false
	}
	found := false
	for i, lr := range g.live {
		if lr == r {
			g.live = append(g.live[:i], g.live[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false
	}
	r.pending = true
	g.pending = append(g.pending, r)
	return true
}

// takeResource removes and returns the singleton owned by m, if any.
func (g *ShareGroup) takeResource(m *MultiGroupResource) *SharedResource {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dead || g.resources == nil {
		return nil
	}
	r, ok := g.resources[m]
	if !ok {
		return nil
	}
	delete(g.resources, m)
	return r
}
