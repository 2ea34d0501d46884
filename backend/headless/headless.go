// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package headless provides a pure-Go platform plugin with no device
// access. It is always available and is the fallback when no GPU-backed
// platform is registered; tests and tools use it to exercise context and
// share-group lifecycles without hardware.
package headless

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/glctx"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
)

func init() {
	glctx.RegisterPlatform(glctx.PlatformHeadless, func() glctx.Platform {
		return New()
	})
}

// Errors returned by the headless platform.
var (
	// ErrCreateDisabled is returned by CreateContext when the platform was
	// configured to fail creation.
	ErrCreateDisabled = errors.New("headless: context creation disabled")

	// ErrNotValid is returned when operating on a destroyed context.
	ErrNotValid = errors.New("headless: context not valid")
)

// Options configures platform behavior, mostly for tests.
type Options struct {
	// DisableSharing makes the platform refuse every sharing request, so
	// contexts created with a share target degrade to unshared ones.
	DisableSharing bool

	// DisableCreate makes CreateContext fail. Used to test creation-failure
	// handling.
	DisableCreate bool
}

// Platform is the headless context factory.
type Platform struct {
	opts   Options
	logger atomic.Pointer[slog.Logger]
	nextID atomic.Uint64
}

// New returns a headless platform with default options.
func New() *Platform { return NewWithOptions(Options{}) }

// NewWithOptions returns a headless platform with the given options.
func NewWithOptions(opts Options) *Platform {
	p := &Platform{opts: opts}
	p.logger.Store(glctx.Logger())
	return p
}

// Name implements glctx.Platform.
func (p *Platform) Name() string { return glctx.PlatformHeadless }

// SetLogger lets glctx.SetLogger propagate its logger here.
func (p *Platform) SetLogger(l *slog.Logger) { p.logger.Store(l) }

// CreateContext implements glctx.Platform.
func (p *Platform) CreateContext(cfg glctx.ContextConfig) (glctx.PlatformContext, error) {
	if p.opts.DisableCreate {
		return nil, ErrCreateDisabled
	}

	sharing := false
	if cfg.Share != nil && !p.opts.DisableSharing {
		// Only sharing between two headless contexts can be honored.
		_, sharing = cfg.Share.(*Context)
	}

	format := cfg.Format
	if format.SwapBehavior == glctx.SwapDefault {
		format.SwapBehavior = glctx.SwapDouble
	}

	c := &Context{
		platform: p,
		id:       p.nextID.Add(1),
		format:   format,
		sharing:  sharing,
		valid:    true,
	}
	p.logger.Load().Debug("headless: context created", "id", c.id, "sharing", sharing)
	return c, nil
}

// Context is a fake native context. It tracks binding state and nothing
// else; all rendering entry points are inert.
type Context struct {
	platform *Platform
	id       uint64
	format   glctx.Format
	sharing  bool

	mu      sync.Mutex
	valid   bool
	bound   bool
	swaps   int
	current glctx.Surface
}

// ID returns the context's identifier, unique per platform instance.
func (c *Context) ID() uint64 { return c.id }

// SwapCount returns how many times SwapBuffers succeeded. Tests use it.
func (c *Context) SwapCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.swaps
}

// MakeCurrent implements glctx.PlatformContext.
func (c *Context) MakeCurrent(s glctx.Surface) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return ErrNotValid
	}
	c.bound = true
	c.current = s
	return nil
}

// DoneCurrent implements glctx.PlatformContext.
func (c *Context) DoneCurrent() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bound = false
	c.current = nil
}

// SwapBuffers implements glctx.PlatformContext.
func (c *Context) SwapBuffers(s glctx.Surface) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid {
		return ErrNotValid
	}
	c.swaps++
	return nil
}

// GetProcAddress implements glctx.PlatformContext. Headless contexts expose
// no graphics API.
func (c *Context) GetProcAddress(name string) uintptr { return 0 }

// Format implements glctx.PlatformContext.
func (c *Context) Format() glctx.Format { return c.format }

// IsSharing implements glctx.PlatformContext.
func (c *Context) IsSharing() bool { return c.sharing }

// IsValid implements glctx.PlatformContext.
func (c *Context) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.valid
}

// Provider implements glctx.PlatformContext. Headless contexts have no
// device; the provider reports nil handles and the configured color format.
func (c *Context) Provider() gpucontext.DeviceProvider {
	return nullProvider{format: c.format.ColorFormat}
}

// Destroy implements glctx.PlatformContext.
func (c *Context) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.bound = false
	c.current = nil
}

// nullProvider is a DeviceProvider with no device behind it.
type nullProvider struct {
	format gputypes.TextureFormat
}

func (nullProvider) Device() gpucontext.Device   { return nil }
func (nullProvider) Queue() gpucontext.Queue     { return nil }
func (nullProvider) Adapter() gpucontext.Adapter { return nil }

func (nullProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "headless", Type: gpucontext.AdapterTypeUnknown}
}

func (p nullProvider) SurfaceFormat() gputypes.TextureFormat {
	if p.format == gputypes.TextureFormatUndefined {
		return gputypes.TextureFormatBGRA8Unorm
	}
	return p.format
}

var _ gpucontext.DeviceProvider = nullProvider{}

// Surface is an offscreen surface for headless rendering.
type Surface struct {
	width, height int
	released      bool
}

// NewSurface returns a surface of the given size.
func NewSurface(width, height int) *Surface {
	return &Surface{width: width, height: height}
}

// Release marks the surface unusable.
func (s *Surface) Release() { s.released = true }

// Valid implements glctx.Surface.
func (s *Surface) Valid() bool {
	return s != nil && !s.released && s.width > 0 && s.height > 0
}

// Size implements glctx.Surface.
func (s *Surface) Size() (int, int) { return s.width, s.height }
