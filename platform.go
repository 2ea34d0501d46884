package glctx

import (
	"sync"

	"github.com/gogpu/gpucontext"
)

// Well-known platform names, in default priority order.
const (
	// PlatformWGPU is the gogpu/wgpu-backed platform (backend/wgpu).
	PlatformWGPU = "wgpu"

	// PlatformHeadless is the pure-Go platform with no device access
	// (backend/headless). Always available; used for tests and tools.
	PlatformHeadless = "headless"
)

// Surface is the drawable a context is made current against.
//
// glctx does not create or present surfaces; the embedding application owns
// them. Only validity and size are needed here.
type Surface interface {
	// Valid reports whether the surface can be rendered to.
	Valid() bool

	// Size returns the surface dimensions in pixels.
	Size() (width, height int)
}

// ContextConfig carries the parameters a platform needs to create a native
// context.
type ContextConfig struct {
	// Format is the requested context format. The platform may grant a
	// different one; the effective format is reported by
	// PlatformContext.Format.
	Format Format

	// Share is the platform context to share GPU objects with, or nil for
	// an unshared context. Platforms that cannot honor the request must
	// still create the context and report IsSharing() == false.
	Share PlatformContext
}

// PlatformContext is a native rendering context created by a Platform.
//
// Implementations live in backend packages; glctx only forwards to them and
// never issues graphics calls itself. A PlatformContext is owned exclusively
// by one Context.
type PlatformContext interface {
	// MakeCurrent binds the context to the calling OS thread against the
	// given surface.
	MakeCurrent(s Surface) error

	// DoneCurrent releases the context from the calling OS thread.
	DoneCurrent()

	// SwapBuffers presents the back buffer of the surface.
	SwapBuffers(s Surface) error

	// GetProcAddress resolves a graphics API entry point, or 0 if the
	// platform does not expose one.
	GetProcAddress(name string) uintptr

	// Format returns the effective format the platform granted.
	Format() Format

	// IsSharing reports whether the sharing requested at creation was
	// honored by the platform.
	IsSharing() bool

	// IsValid reports whether the native context is usable.
	IsValid() bool

	// Provider exposes the GPU device behind this context, or nil when the
	// platform has none (headless).
	Provider() gpucontext.DeviceProvider

	// Destroy releases the native context. The context must not be current
	// on any thread.
	Destroy()
}

// Platform creates native contexts. Implementations register themselves via
// RegisterPlatform, typically from an init function, and are selected by
// DefaultPlatform in priority order.
type Platform interface {
	// Name returns the platform identifier (e.g. "wgpu", "headless").
	Name() string

	// CreateContext creates a native context. On error no context exists
	// and the caller must not retain any state from the attempt.
	CreateContext(cfg ContextConfig) (PlatformContext, error)
}

// PlatformFactory creates a new platform instance.
type PlatformFactory func() Platform

var (
	platformMu        sync.RWMutex
	platforms         = make(map[string]PlatformFactory)
	platformInstances = make(map[string]Platform)
	// Priority order for platform selection (first available wins).
	platformPriority = []string{PlatformWGPU, PlatformHeadless}
)

// RegisterPlatform registers a platform factory with the given name.
// This is typically called from init() functions in backend packages.
// If a platform with the same name is already registered, it is replaced.
func RegisterPlatform(name string, factory PlatformFactory) {
	platformMu.Lock()
	defer platformMu.Unlock()
	platforms[name] = factory
	delete(platformInstances, name)
}

// UnregisterPlatform removes a platform from the registry.
// This is useful for testing.
func UnregisterPlatform(name string) {
	platformMu.Lock()
	defer platformMu.Unlock()
	delete(platforms, name)
	delete(platformInstances, name)
}

// AvailablePlatforms returns a list of registered platform names.
func AvailablePlatforms() []string {
	platformMu.RLock()
	defer platformMu.RUnlock()

	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	return names
}

// PlatformByName returns the platform instance with the given name.
// Returns nil if the platform is not registered.
func PlatformByName(name string) Platform {
	platformMu.Lock()
	defer platformMu.Unlock()
	return platformLocked(name)
}

// platformLocked returns (and lazily instantiates) the named platform.
// Caller holds platformMu.
func platformLocked(name string) Platform {
	if p, ok := platformInstances[name]; ok {
		return p
	}
	factory, ok := platforms[name]
	if !ok {
		return nil
	}
	p := factory()
	if p == nil {
		return nil
	}
	propagateLogger(p, Logger())
	platformInstances[name] = p
	return p
}

// DefaultPlatform returns the best available platform based on priority.
// Priority order: wgpu > headless. Returns nil if nothing is registered.
func DefaultPlatform() Platform {
	platformMu.Lock()
	defer platformMu.Unlock()

	for _, name := range platformPriority {
		if p := platformLocked(name); p != nil {
			return p
		}
	}

	// Fallback: first available.
	for name := range platforms {
		if p := platformLocked(name); p != nil {
			return p
		}
	}

	return nil
}
