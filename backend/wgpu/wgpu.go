// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !nogpu

// Package wgpu provides the WebGPU-backed platform plugin. Each share group
// maps to one wgpu device; contexts sharing a group hand out the same
// device, so textures and buffers created on any of them are usable by all.
package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/glctx"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"
)

func init() {
	glctx.RegisterPlatform(glctx.PlatformWGPU, func() glctx.Platform {
		return New()
	})
}

// Errors returned by the wgpu platform.
var (
	// ErrNoAdapter is returned when no suitable GPU adapter exists.
	ErrNoAdapter = errors.New("wgpu: no suitable adapter")

	// ErrNotValid is returned when operating on a destroyed context.
	ErrNotValid = errors.New("wgpu: context not valid")
)

// Platform is the WebGPU context factory.
type Platform struct {
	logger atomic.Pointer[slog.Logger]

	mu       sync.Mutex
	instance *core.Instance
}

// New returns a wgpu platform. The wgpu instance is created lazily on the
// first context creation, so registering the platform costs nothing when
// no GPU context is ever requested.
func New() *Platform {
	p := &Platform{}
	p.logger.Store(glctx.Logger())
	return p
}

// Name implements glctx.Platform.
func (p *Platform) Name() string { return glctx.PlatformWGPU }

// SetLogger lets glctx.SetLogger propagate its logger here.
func (p *Platform) SetLogger(l *slog.Logger) { p.logger.Store(l) }

func (p *Platform) ensureInstance() *core.Instance {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.instance == nil {
		p.instance = core.NewInstance(&gputypes.InstanceDescriptor{
			Backends: gputypes.BackendsPrimary,
		})
	}
	return p.instance
}

// CreateContext implements glctx.Platform.
//
// A share target that is itself a wgpu context contributes its device: the
// new context references the same deviceState and sharing is honored. Any
// other share target cannot be honored; the context is created unshared
// with its own device and IsSharing reports false.
func (p *Platform) CreateContext(cfg glctx.ContextConfig) (glctx.PlatformContext, error) {
	var state *deviceState
	sharing := false
	if cfg.Share != nil {
		if sc, ok := cfg.Share.(*Context); ok && sc.state != nil {
			state = sc.state
			sharing = true
		}
	}

	if state == nil {
		inst := p.ensureInstance()
		var err error
		state, err = newDeviceState(inst, p.logger.Load())
		if err != nil {
			return nil, err
		}
	}
	state.retain()

	format := cfg.Format
	if format.ColorFormat == gputypes.TextureFormatUndefined {
		format.ColorFormat = gputypes.TextureFormatBGRA8Unorm
	}
	if format.SwapBehavior == glctx.SwapDefault {
		format.SwapBehavior = glctx.SwapDouble
	}

	c := &Context{
		platform: p,
		state:    state,
		format:   format,
		sharing:  sharing,
	}
	c.valid.Store(true)

	p.logger.Load().Debug("wgpu: context created",
		"adapter", state.info.Name, "backend", state.info.Backend, "sharing", sharing)
	return c, nil
}

// deviceState is the wgpu device shared by all contexts of a share group.
// It is reference-counted: the last context to be destroyed drops the
// device and adapter.
type deviceState struct {
	adapter core.AdapterID
	device  core.DeviceID
	queue   core.QueueID
	info    gputypes.AdapterInfo
	refs    atomic.Int64
}

func newDeviceState(inst *core.Instance, logger *slog.Logger) (*deviceState, error) {
	adapter, err := inst.RequestAdapter(&gputypes.RequestAdapterOptions{
		PowerPreference: gputypes.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoAdapter, err)
	}

	// Metadata only: a context works fine without it.
	info, err := core.GetAdapterInfo(adapter)
	if err != nil {
		logger.Warn("wgpu: adapter info unavailable", "error", err)
	}

	device, err := core.RequestDevice(adapter, &gputypes.DeviceDescriptor{
		Label:          "glctx-device",
		RequiredLimits: gputypes.DefaultLimits(),
	})
	if err != nil {
		core.AdapterDrop(adapter)
		return nil, fmt.Errorf("wgpu: device request failed: %w", err)
	}

	queue, err := core.GetDeviceQueue(device)
	if err != nil {
		core.DeviceDrop(device)
		core.AdapterDrop(adapter)
		return nil, fmt.Errorf("wgpu: queue unavailable: %w", err)
	}

	return &deviceState{adapter: adapter, device: device, queue: queue, info: info}, nil
}

func (s *deviceState) retain() { s.refs.Add(1) }

func (s *deviceState) release() {
	if s.refs.Add(-1) != 0 {
		return
	}
	if !s.device.IsZero() {
		core.DeviceDrop(s.device)
	}
	if !s.adapter.IsZero() {
		core.AdapterDrop(s.adapter)
	}
}

// Context is a WebGPU-backed platform context.
type Context struct {
	platform *Platform
	state    *deviceState
	format   glctx.Format
	sharing  bool
	valid    atomic.Bool

	mu      sync.Mutex
	surface glctx.Surface
}

// MakeCurrent implements glctx.PlatformContext. WebGPU has no thread-bound
// current state; this only records the target surface.
func (c *Context) MakeCurrent(s glctx.Surface) error {
	if !c.valid.Load() {
		return ErrNotValid
	}
	c.mu.Lock()
	c.surface = s
	c.mu.Unlock()
	return nil
}

// DoneCurrent implements glctx.PlatformContext.
func (c *Context) DoneCurrent() {
	c.mu.Lock()
	c.surface = nil
	c.mu.Unlock()
}

// SwapBuffers implements glctx.PlatformContext. Presentation is driven by
// the surface's swapchain; the context only needs to be live.
func (c *Context) SwapBuffers(s glctx.Surface) error {
	if !c.valid.Load() {
		return ErrNotValid
	}
	return nil
}

// GetProcAddress implements glctx.PlatformContext. WebGPU is not a
// proc-address API.
func (c *Context) GetProcAddress(name string) uintptr { return 0 }

// Format implements glctx.PlatformContext.
func (c *Context) Format() glctx.Format { return c.format }

// IsSharing implements glctx.PlatformContext.
func (c *Context) IsSharing() bool { return c.sharing }

// IsValid implements glctx.PlatformContext.
func (c *Context) IsValid() bool { return c.valid.Load() }

// Provider implements glctx.PlatformContext.
func (c *Context) Provider() gpucontext.DeviceProvider {
	return &provider{state: c.state, format: c.format.ColorFormat}
}

// Destroy implements glctx.PlatformContext. The shared device is dropped
// when the last context referencing it is destroyed.
func (c *Context) Destroy() {
	if !c.valid.Swap(false) {
		return
	}
	c.mu.Lock()
	c.surface = nil
	c.mu.Unlock()
	c.state.release()
}

// provider adapts deviceState to gpucontext.DeviceProvider.
type provider struct {
	state  *deviceState
	format gputypes.TextureFormat
}

func (p *provider) Device() gpucontext.Device   { return deviceHandle{p.state} }
func (p *provider) Queue() gpucontext.Queue     { return queueHandle{p.state} }
func (p *provider) Adapter() gpucontext.Adapter { return adapterHandle{p.state} }

func (p *provider) AdapterInfo() gpucontext.AdapterInfo {
	return adapterInfo(p.state.info)
}

// adapterInfo reduces wgpu adapter metadata to the provider's view.
func adapterInfo(info gputypes.AdapterInfo) gpucontext.AdapterInfo {
	t := gpucontext.AdapterTypeUnknown
	switch info.DeviceType {
	case gputypes.DeviceTypeDiscreteGPU:
		t = gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		t = gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		t = gpucontext.AdapterTypeSoftware
	}
	return gpucontext.AdapterInfo{Name: info.Name, Type: t}
}

func (p *provider) SurfaceFormat() gputypes.TextureFormat {
	if p.format == gputypes.TextureFormatUndefined {
		return gputypes.TextureFormatBGRA8Unorm
	}
	return p.format
}

var _ gpucontext.DeviceProvider = (*provider)(nil)

type deviceHandle struct{ state *deviceState }

// ID returns the underlying wgpu device identifier.
func (h deviceHandle) ID() core.DeviceID { return h.state.device }

func (h deviceHandle) Poll(wait bool) {}

// Destroy is a no-op: device lifetime is tied to the contexts sharing it,
// not to any single provider handle.
func (h deviceHandle) Destroy() {}

type queueHandle struct{ state *deviceState }

// ID returns the underlying wgpu queue identifier.
func (h queueHandle) ID() core.QueueID { return h.state.queue }

type adapterHandle struct{ state *deviceState }

// ID returns the underlying wgpu adapter identifier.
func (h adapterHandle) ID() core.AdapterID { return h.state.adapter }
