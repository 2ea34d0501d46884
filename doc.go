// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package glctx manages the lifecycle of native rendering contexts and the
// sharing of GPU resources between them.
//
// # Overview
//
// glctx is the thin orchestration layer that sits between an application (or
// a GUI toolkit) and platform context plugins. It does not talk to the
// graphics driver itself; its job is to keep track of which contexts share
// GPU objects with each other and to make sure those objects are freed at a
// moment when a valid context is current, or invalidated safely when no such
// moment will ever come.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/glctx"
//	    _ "github.com/gogpu/glctx/backend/headless" // or backend/wgpu
//	)
//
//	// On a goroutine that will own the rendering thread:
//	th := glctx.AttachThread()
//	defer th.Detach()
//
//	ctx := glctx.NewContext(th)
//	if err := ctx.Create(); err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Destroy()
//
//	if err := ctx.MakeCurrent(th, surface); err != nil {
//	    log.Fatal(err)
//	}
//
// # Share groups
//
// Contexts created with a share target (SetShareContext) join the target's
// ShareGroup. Resources registered with a group (NewSharedResource,
// NewResourceGuard) may be freed from any goroutine at any time: if a member
// context is current on the freeing thread the native deletion runs
// immediately, otherwise it is queued and drained the next time any member
// context becomes current. When the last member of a group is destroyed,
// resources that were never freed are invalidated without native calls.
//
// # Threads
//
// Native contexts are bound to OS threads. glctx models this with an
// explicit Thread handle created by AttachThread on a goroutine pinned with
// runtime.LockOSThread. Each Thread holds at most one current context, and
// operations whose contract depends on the calling thread (MakeCurrent,
// SharedResource.Free) take the Thread explicitly.
//
// # Architecture
//
// The library is organized into:
//   - Public API: Context, ShareGroup, SharedResource, MultiGroupResource, Thread
//   - Platform plugins: backend/wgpu (gogpu/wgpu devices), backend/headless (pure Go)
//   - Per-group helpers: glyphcache (lazily created per share group)
package glctx
