package glctx

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
)

// fakeSurface is a test surface.
type fakeSurface struct {
	w, h    int
	invalid bool
}

func (s *fakeSurface) Valid() bool      { return !s.invalid }
func (s *fakeSurface) Size() (int, int) { return s.w, s.h }

// fakePlatform creates fakePlatformContext instances and records activity.
type fakePlatform struct {
	failCreate bool
	denyShare  bool
	created    int
	destroyed  int
}

func (p *fakePlatform) Name() string { return "fake" }

func (p *fakePlatform) CreateContext(cfg ContextConfig) (PlatformContext, error) {
	if p.failCreate {
		return nil, errors.New("fake: creation refused")
	}
	p.created++
	return &fakePlatformContext{
		owner:   p,
		format:  cfg.Format,
		sharing: cfg.Share != nil && !p.denyShare,
		valid:   true,
	}, nil
}

type fakePlatformContext struct {
	owner   *fakePlatform
	format  Format
	sharing bool
	valid   bool
	bound   bool
	swaps   int
}

func (c *fakePlatformContext) MakeCurrent(s Surface) error {
	c.bound = true
	return nil
}

func (c *fakePlatformContext) DoneCurrent() { c.bound = false }

func (c *fakePlatformContext) SwapBuffers(s Surface) error {
	c.swaps++
	return nil
}

func (c *fakePlatformContext) GetProcAddress(name string) uintptr { return 0 }
func (c *fakePlatformContext) Format() Format                     { return c.format }
func (c *fakePlatformContext) IsSharing() bool                    { return c.sharing }
func (c *fakePlatformContext) IsValid() bool                      { return c.valid }

func (c *fakePlatformContext) Provider() gpucontext.DeviceProvider { return nil }

func (c *fakePlatformContext) Destroy() {
	c.valid = false
	c.bound = false
	c.owner.destroyed++
}

// installFake registers p under the highest-priority platform name and
// removes it when the test ends.
func installFake(t *testing.T, p *fakePlatform) {
	t.Helper()
	RegisterPlatform(PlatformWGPU, func() Platform { return p })
	t.Cleanup(func() { UnregisterPlatform(PlatformWGPU) })
}

// newTestContext creates a live context on th through a fresh fake platform.
func newTestContext(t *testing.T, th *Thread) *Context {
	t.Helper()
	installFake(t, &fakePlatform{})
	c := NewContext(th)
	if err := c.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(c.Destroy)
	return c
}

func TestCreateAndDestroy(t *testing.T) {
	th := AttachThread()
	defer th.Detach()

	p := &fakePlatform{}
	installFake(t, p)

	c := NewContext(th)
	if c.IsValid() {
		t.Fatal("context valid before Create")
	}
	if err := c.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !c.IsValid() {
		t.Fatal("context not valid after Create")
	}
	if got := len(c.Shares()); got != 1 {
		t.Fatalf("Shares() = %d contexts, want 1", got)
	}
	if c.ShareContext() != nil {
		t.Fatal("unshared context reports a share context")
	}

	c.Destroy()
	if c.IsValid() {
		t.Fatal("context valid after Destroy")
	}
	if p.destroyed != 1 {
		t.Fatalf("platform destroys = %d, want 1", p.destroyed)
	}

	// Destroy is idempotent.
	c.Destroy()
	if p.destroyed != 1 {
		t.Fatalf("platform destroys after second Destroy = %d, want 1", p.destroyed)
	}
}

func TestCreateFailure(t *testing.T) {
	th := AttachThread()
	defer th.Detach()

	installFake(t, &fakePlatform{failCreate: true})

	c := NewContext(th)
	if err := c.Create(); err == nil {
		t.Fatal("Create succeeded on a failing platform")
	}
	if c.IsValid() {
		t.Fatal("context valid after failed Create")
	}
	if c.ShareGroup() != nil {
		t.Fatal("failed context joined a share group")
	}
}

func TestCreateNoPlatform(t *testing.T) {
	th := AttachThread()
	defer th.Detach()

	c := NewContext(th)
	if err := c.Create(); !errors.Is(err, ErrNoPlatform) {
		t.Fatalf("Create with empty registry = %v, want ErrNoPlatform", err)
	}
}

func TestCreateAfterDestroy(t *testing.T) {
	th := AttachThread()
	defer th.Detach()

	c := newTestContext(t, th)
	c.Destroy()
	if err := c.Create(); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("Create after Destroy = %v, want ErrDestroyed", err)
	}
}

func TestRecreateLeavesOldGroup(t *testing.T) {
	th := AttachThread()
	defer th.Detach()

	p := &fakePlatform{}
	installFake(t, p)

	c := NewContext(th)
	if err := c.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer c.Destroy()
	g1 := c.ShareGroup()

	if err := c.Create(); err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if p.destroyed != 1 {
		t.Fatalf("old native context not destroyed on re-Create")
	}
	if c.ShareGroup() == g1 {
		t.Fatal("re-created context kept its old share group")
	}
}

func TestMakeCurrentAndDoneCurrent(t *testing.T) {
	th := AttachThread()
	defer th.Detach()

	c := newTestContext(t, th)
	surf := &fakeSurface{w: 64, h: 64}

	if err := c.MakeCurrent(th, surf); err != nil {
		t.Fatalf("MakeCurrent: %v", err)
	}
	if th.Current() != c {
		t.Fatal("context not current after MakeCurrent")
	}
	if c.Surface() != surf {
		t.Fatal("surface not recorded")
	}

	c.DoneCurrent(th)
	if th.Current() != nil {
		t.Fatal("context still current after DoneCurrent")
	}
	if c.Surface() != nil {
		t.Fatal("surface not cleared")
	}
}

func TestMakeCurrentNilSurfaceReleases(t *testing.T) {
	th := AttachThread()
	defer th.Detach()

	c := newTestContext(t, th)
	if err := c.MakeCurrent(th, &fakeSurface{w: 1, h: 1}); err != nil {
		t.Fatalf("MakeCurrent: %v", err)
	}
	if err := c.MakeCurrent(th, nil); err != nil {
		t.Fatalf("MakeCurrent(nil): %v", err)
	}
	if th.Current() != nil {
		t.Fatal("context still current after MakeCurrent with nil surface")
	}
}

func TestMakeCurrentInvalidSurface(t *testing.T) {
	th := AttachThread()
	defer th.Detach()

	c := newTestContext(t, th)
	err := c.MakeCurrent(th, &fakeSurface{w: 1, h: 1, invalid: true})
	if !errors.Is(err, ErrInvalidSurface) {
		t.Fatalf("MakeCurrent on invalid surface = %v, want ErrInvalidSurface", err)
	}
}

func TestMakeCurrentBeforeCreate(t *testing.T) {
	th := AttachThread()
	defer th.Detach()

	c := NewContext(th)
	err := c.MakeCurrent(th, &fakeSurface{w: 1, h: 1})
	if !errors.Is(err, ErrNotCreated) {
		t.Fatalf("MakeCurrent before Create = %v, want ErrNotCreated", err)
	}
}

func TestMakeCurrentWrongThreadPanics(t *testing.T) {
	th := AttachThread()
	defer th.Detach()

	c := newTestContext(t, th)

	res := make(chan any, 1)
	go func() {
		defer func() { res <- recover() }()
		other := AttachThread()
		defer other.Detach()
		_ = c.MakeCurrent(other, &fakeSurface{w: 1, h: 1})
	}()
	if r := <-res; r == nil {
		t.Fatal("MakeCurrent from a foreign thread did not panic")
	}
}

func TestDestroyWhileCurrent(t *testing.T) {
	th := AttachThread()
	defer th.Detach()

	c := newTestContext(t, th)
	if err := c.MakeCurrent(th, &fakeSurface{w: 1, h: 1}); err != nil {
		t.Fatalf("MakeCurrent: %v", err)
	}

	c.Destroy()
	if th.Current() != nil {
		t.Fatal("destroyed context still current on its thread")
	}
}

func TestOnDestroyOrder(t *testing.T) {
	th := AttachThread()
	defer th.Detach()

	c := newTestContext(t, th)

	var order []int
	c.OnDestroy(func() { order = append(order, 1) })
	c.OnDestroy(func() { order = append(order, 2) })

	c.Destroy()
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("OnDestroy order = %v, want [2 1]", order)
	}
}

func TestSwapBuffers(t *testing.T) {
	th := AttachThread()
	defer th.Detach()

	c := newTestContext(t, th)
	surf := &fakeSurface{w: 8, h: 8}
	if err := c.MakeCurrent(th, surf); err != nil {
		t.Fatalf("MakeCurrent: %v", err)
	}
	if err := c.SwapBuffers(surf); err != nil {
		t.Fatalf("SwapBuffers: %v", err)
	}
	if err := c.SwapBuffers(nil); !errors.Is(err, ErrInvalidSurface) {
		t.Fatalf("SwapBuffers(nil) = %v, want ErrInvalidSurface", err)
	}
}

func TestFormats(t *testing.T) {
	th := AttachThread()
	defer th.Detach()

	installFake(t, &fakePlatform{})

	want := DefaultFormat()
	want.Samples = 4

	c := NewContext(th)
	c.SetFormat(want)
	if got := c.RequestedFormat(); got != want {
		t.Fatalf("RequestedFormat = %+v, want %+v", got, want)
	}
	if err := c.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer c.Destroy()
	if got := c.Format(); got != want {
		t.Fatalf("effective Format = %+v, want %+v", got, want)
	}
}
