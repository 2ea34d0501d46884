// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package glctx

import (
	"fmt"

	"github.com/gogpu/glctx/internal/tracker"
	"github.com/gogpu/gpucontext"
)

// Context represents one logical rendering context and its configuration.
//
// A Context goes through three states: configured but uninitialized after
// NewContext, live after a successful Create, destroyed after Destroy.
// Destruction is final; create a fresh Context to render again.
//
// A Context is affined to the Thread passed to NewContext and is not safe
// for concurrent use. Making it current from any other thread is a fatal
// programmer error: the per-thread current-context slot would be corrupted,
// so MakeCurrent panics rather than continuing.
type Context struct {
	thread *Thread
	format Format

	// shareWith is the requested share target; share is the effective one
	// after Create (nil when the platform could not honor the request).
	shareWith *Context
	share     *Context

	group    *ShareGroup
	platform PlatformContext
	surface  Surface

	destroyFns []func()
	destroyed  bool
}

// NewContext returns an uninitialized context affined to th with the
// default format. Configure it with SetFormat and SetShareContext, then
// call Create.
func NewContext(th *Thread) *Context {
	return &Context{
		thread: th,
		format: DefaultFormat(),
	}
}

// SetFormat sets the requested format. Takes effect on the next Create.
func (c *Context) SetFormat(f Format) {
	c.format = f
}

// SetShareContext makes this context share GPU objects (textures, buffers,
// shaders) with share. Takes effect on the next Create. Whether sharing was
// honored is observable through Shares and AreSharing afterwards.
func (c *Context) SetShareContext(share *Context) {
	c.shareWith = share
}

// RequestedFormat returns the format passed to SetFormat (or the default).
func (c *Context) RequestedFormat() Format { return c.format }

// Format returns the effective format granted by the platform. Before a
// successful Create it returns the requested format.
func (c *Context) Format() Format {
	if c.platform != nil {
		return c.platform.Format()
	}
	return c.format
}

// Thread returns the thread the context is affined to.
func (c *Context) Thread() *Thread { return c.thread }

// IsValid reports whether the native context was successfully created and
// is still usable.
func (c *Context) IsValid() bool {
	return !c.destroyed && c.platform != nil && c.platform.IsValid()
}

// ShareGroup returns the group of contexts this context shares resources
// with, or nil before Create / after Destroy. Every live context belongs to
// exactly one group, possibly containing only itself.
func (c *Context) ShareGroup() *ShareGroup { return c.group }

// ShareContext returns the context this one effectively shares with, or nil
// when the context is unshared (including after a sharing downgrade).
func (c *Context) ShareContext() *Context { return c.share }

// Shares returns all contexts in this context's share group, in join order.
// A context that shares with nobody returns a single-element slice holding
// itself.
func (c *Context) Shares() []*Context {
	if c.group == nil {
		return nil
	}
	return c.group.Shares()
}

// AreSharing reports whether a and b share GPU resources.
func AreSharing(a, b *Context) bool {
	if a == nil || b == nil || a.group == nil {
		return false
	}
	return a.group == b.group
}

// Create attempts to create the native context with the current
// configuration through the default platform.
//
// If a share target was configured but the platform could not honor the
// sharing request, the context is still created and silently degrades to an
// unshared one; Shares afterwards reports no peers. On error no native
// context exists and the context joins no group.
//
// Calling Create on a live context destroys the existing native context
// first and creates a new one.
func (c *Context) Create() error {
	if c.destroyed {
		return ErrDestroyed
	}
	if c.platform != nil {
		c.release()
	}

	p := DefaultPlatform()
	if p == nil {
		return ErrNoPlatform
	}

	share := c.shareWith
	if share == nil {
		// An application-wide sharing anchor, when configured, applies to
		// every context created without an explicit share target.
		share = GlobalShareContext()
		if share == c {
			share = nil
		}
	}
	var shareHandle PlatformContext
	if share != nil {
		if share.platform == nil {
			return fmt.Errorf("%w: share context", ErrNotCreated)
		}
		shareHandle = share.platform
	}

	pc, err := p.CreateContext(ContextConfig{
		Format: c.format,
		Share:  shareHandle,
	})
	if err != nil {
		return fmt.Errorf("glctx: %s context creation failed: %w", p.Name(), err)
	}

	c.platform = pc
	c.share = share
	if c.share != nil && !pc.IsSharing() {
		Logger().Warn("glctx: platform could not honor sharing request; context is unshared",
			"platform", p.Name())
		c.share = nil
	}

	if c.share != nil {
		c.group = c.share.group
	} else {
		c.group = newShareGroup(c.thread)
	}
	c.group.add(c)

	Logger().Debug("glctx: context created",
		"platform", p.Name(), "sharing", c.share != nil)
	return nil
}

// MakeCurrent makes the context current on th against surface, replacing
// whatever context was current there. Passing a nil surface is equivalent
// to DoneCurrent.
//
// th must be the thread the context is affined to; any other thread panics.
// Pending resource deletions of the share group are drained before
// MakeCurrent returns.
func (c *Context) MakeCurrent(th *Thread, surface Surface) error {
	if !c.IsValid() {
		return ErrNotCreated
	}
	if th != c.thread {
		panic("glctx: cannot make a context current on a different thread")
	}
	th.Flush()

	if surface == nil {
		c.DoneCurrent(th)
		return nil
	}
	if !surface.Valid() {
		return ErrInvalidSurface
	}

	if err := c.platform.MakeCurrent(surface); err != nil {
		return err
	}

	th.setCurrent(c)
	c.surface = surface
	tracker.Set(c, true)

	c.group.deletePending(c)
	return nil
}

// DoneCurrent releases the context from th, leaving no context current
// there. Pending deletions are drained first while the context can still
// run them.
func (c *Context) DoneCurrent(th *Thread) {
	if !c.IsValid() {
		return
	}
	if th.Current() == c {
		c.group.deletePending(c)
	}

	c.platform.DoneCurrent()
	th.setCurrent(nil)
	tracker.Set(c, false)
	c.surface = nil
}

// Surface returns the surface the context was last made current against,
// or nil.
func (c *Context) Surface() Surface { return c.surface }

// SwapBuffers presents the back buffer of surface. Call MakeCurrent again
// before issuing further rendering for a new frame.
func (c *Context) SwapBuffers(surface Surface) error {
	if !c.IsValid() {
		return ErrNotCreated
	}
	if surface == nil || !surface.Valid() {
		return ErrInvalidSurface
	}
	if !tracker.Set(c, false) {
		Logger().Warn("glctx: SwapBuffers called without corresponding MakeCurrent")
	}
	return c.platform.SwapBuffers(surface)
}

// GetProcAddress resolves a graphics API entry point through the platform,
// or returns 0 when the context is not live or the platform exposes none.
func (c *Context) GetProcAddress(name string) uintptr {
	if !c.IsValid() {
		return 0
	}
	return c.platform.GetProcAddress(name)
}

// DeviceProvider exposes the GPU device behind the context, or nil when the
// platform has none.
func (c *Context) DeviceProvider() gpucontext.DeviceProvider {
	if c.platform == nil {
		return nil
	}
	return c.platform.Provider()
}

// OnDestroy registers fn to run at the start of Destroy, before the context
// leaves its share group. Helpers owned exclusively by this context (function
// wrappers, per-context caches) release themselves here. Callbacks run in
// reverse registration order.
func (c *Context) OnDestroy(fn func()) {
	c.destroyFns = append(c.destroyFns, fn)
}

// Destroy tears the context down: per-context helpers are released, the
// context stops being current, leaves its share group (tearing the group
// down if it was the last member), and the native context is destroyed.
//
// Destroy must be called on the context's affinity thread. It is idempotent.
func (c *Context) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true

	for i := len(c.destroyFns) - 1; i >= 0; i-- {
		c.destroyFns[i]()
	}
	c.destroyFns = nil

	if c.thread.Current() == c {
		// DoneCurrent checks IsValid, which is already false; release the
		// slot and the native binding directly.
		if c.platform != nil {
			c.group.deletePending(c)
			c.platform.DoneCurrent()
		}
		c.thread.setCurrent(nil)
		c.surface = nil
	}

	c.release()
	tracker.Forget(c)
}

// release leaves the share group and destroys the native context. Shared
// between Destroy and re-Create.
func (c *Context) release() {
	if c.group != nil {
		c.group.remove(c, c.thread)
		c.group = nil
	}
	c.share = nil
	if c.platform != nil {
		c.platform.Destroy()
		c.platform = nil
	}
}
