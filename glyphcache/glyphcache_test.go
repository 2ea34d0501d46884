package glyphcache

import (
	"errors"
	"testing"

	"github.com/gogpu/glctx"
	_ "github.com/gogpu/glctx/backend/headless"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

func testFont(t *testing.T) *Font {
	t.Helper()
	f, err := ParseFont(goregular.TTF)
	if err != nil {
		t.Fatalf("ParseFont: %v", err)
	}
	return f
}

func newTestContext(t *testing.T, th *glctx.Thread) *glctx.Context {
	t.Helper()
	c := glctx.NewContext(th)
	if err := c.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(c.Destroy)
	return c
}

func TestParseFontRejectsGarbage(t *testing.T) {
	if _, err := ParseFont([]byte("not a font")); err == nil {
		t.Fatal("ParseFont accepted garbage")
	}
}

func TestShapeRun(t *testing.T) {
	f := testFont(t)
	c := newCache(DefaultConfig())

	size := fixed.I(16)
	run := c.ShapeRun(f, "Hello", size, false)
	if len(run.Glyphs) == 0 {
		t.Fatal("no glyphs shaped")
	}
	if run.Advance <= 0 {
		t.Fatal("shaped run has no advance")
	}
	for i, g := range run.Glyphs {
		if g.Cluster < 0 || g.Cluster >= len("Hello") {
			t.Fatalf("glyph %d cluster = %d, out of range", i, g.Cluster)
		}
	}

	// Same inputs hit the cache and return the identical run.
	if c.ShapeRun(f, "Hello", size, false) != run {
		t.Fatal("cache miss on identical input")
	}
	// Any key component change misses.
	if c.ShapeRun(f, "Hello", fixed.I(17), false) == run {
		t.Fatal("different size returned the cached run")
	}
	if c.ShapeRun(f, "Hello", size, true) == run {
		t.Fatal("different base direction returned the cached run")
	}
}

func TestShapeRunEmpty(t *testing.T) {
	f := testFont(t)
	c := newCache(DefaultConfig())

	run := c.ShapeRun(f, "", fixed.I(16), false)
	if len(run.Glyphs) != 0 || run.Advance != 0 {
		t.Fatal("empty text produced glyphs")
	}
}

func TestShapeRunAdvances(t *testing.T) {
	f := testFont(t)
	c := newCache(DefaultConfig())

	// Kerning may pull glyphs together but never push the total beyond the
	// isolated advances.
	av := c.ShapeRun(f, "AV", fixed.I(32), false)
	a := c.ShapeRun(f, "A", fixed.I(32), false)
	v := c.ShapeRun(f, "V", fixed.I(32), false)
	if av.Advance > a.Advance+v.Advance {
		t.Fatalf("AV advance %v exceeds A+V %v", av.Advance, a.Advance+v.Advance)
	}
	if av.Advance <= 0 {
		t.Fatal("AV has no advance")
	}
}

func TestBidiRuns(t *testing.T) {
	text := "abc שלום xyz"
	runes := []rune(text)
	runs := bidiRuns(text, runes, false)
	if len(runs) < 3 {
		t.Fatalf("mixed-direction text split into %d runs, want at least 3", len(runs))
	}

	// Runs cover every rune without gaps.
	covered := 0
	sawRTL := false
	for _, r := range runs {
		if r.start < 0 || r.end > len(runes) || r.start >= r.end {
			t.Fatalf("run %+v out of bounds", r)
		}
		covered += r.end - r.start
		sawRTL = sawRTL || r.rtl
	}
	if covered != len(runes) {
		t.Fatalf("runs cover %d runes, want %d", covered, len(runes))
	}
	if !sawRTL {
		t.Fatal("no right-to-left run detected in Hebrew text")
	}
}

func TestGlyphMask(t *testing.T) {
	f := testFont(t)
	c := newCache(DefaultConfig())

	m, err := c.GlyphMask(f, 'A', fixed.I(24))
	if err != nil {
		t.Fatalf("GlyphMask: %v", err)
	}
	if m.Image == nil {
		t.Fatal("no mask image for 'A'")
	}
	if m.Bounds.Dx() <= 0 || m.Bounds.Dy() <= 0 {
		t.Fatalf("degenerate bounds %v", m.Bounds)
	}
	if m.Bounds.Min.Y >= 0 {
		t.Fatalf("Bounds.Min.Y = %d, want above the baseline", m.Bounds.Min.Y)
	}
	if m.Advance <= 0 {
		t.Fatal("no advance for 'A'")
	}

	// Coverage must actually be drawn.
	opaque := 0
	for _, a := range m.Image.Pix {
		if a > 0 {
			opaque++
		}
	}
	if opaque == 0 {
		t.Fatal("mask is fully transparent")
	}

	// Whitespace advances without an image.
	sp, err := c.GlyphMask(f, ' ', fixed.I(24))
	if err != nil {
		t.Fatalf("GlyphMask(space): %v", err)
	}
	if sp.Image != nil {
		t.Fatal("space produced a mask image")
	}
	if sp.Advance <= 0 {
		t.Fatal("space has no advance")
	}
}

func TestGlyphMaskMissingRune(t *testing.T) {
	f := testFont(t)
	c := newCache(DefaultConfig())

	// Go Regular has no CJK coverage.
	if _, err := c.GlyphMask(f, '世', fixed.I(16)); !errors.Is(err, ErrNoGlyph) {
		t.Fatalf("GlyphMask for uncovered rune = %v, want ErrNoGlyph", err)
	}
}

func TestRunEviction(t *testing.T) {
	f := testFont(t)
	c := newCache(Config{MaxRuns: 2})

	size := fixed.I(12)
	c.ShapeRun(f, "one", size, false)
	c.ShapeRun(f, "two", size, false)
	c.ShapeRun(f, "three", size, false)
	if got := c.Len(); got != 2 {
		t.Fatalf("cached runs = %d, want capacity 2", got)
	}

	// "one" was evicted as least recently used; "three" is still cached.
	three := c.ShapeRun(f, "three", size, false)
	if c.ShapeRun(f, "three", size, false) != three {
		t.Fatal("recently shaped run evicted")
	}
}

// destroyable records atlas destruction.
type destroyable struct{ destroyed bool }

func (d *destroyable) Destroy() { d.destroyed = true }

func TestPerGroupIdentity(t *testing.T) {
	th := glctx.AttachThread()
	defer th.Detach()

	c1 := newTestContext(t, th)
	c2 := glctx.NewContext(th)
	c2.SetShareContext(c1)
	if err := c2.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer c2.Destroy()

	cache := For(c1)
	if cache == nil {
		t.Fatal("For returned nil for a live context")
	}
	if For(c2) != cache {
		t.Fatal("sharing contexts got distinct caches")
	}

	solo := newTestContext(t, th)
	if For(solo) == cache {
		t.Fatal("unshared context got another group's cache")
	}
}

func TestCacheInvalidatedWithGroup(t *testing.T) {
	th := glctx.AttachThread()
	defer th.Detach()

	c := glctx.NewContext(th)
	if err := c.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}

	cache := For(c)
	atlas := &destroyable{}
	cache.RegisterAtlas(atlas)

	// Last context gone: the cache is invalidated, never device-freed.
	c.Destroy()
	if atlas.destroyed {
		t.Fatal("atlas destroyed during group teardown; no context remained")
	}

	// A dead cache destroys late-registered atlases immediately.
	late := &destroyable{}
	cache.RegisterAtlas(late)
	if !late.destroyed {
		t.Fatal("atlas registered on a dead cache not destroyed")
	}
}

func TestFreeResourceDestroysAtlases(t *testing.T) {
	cache := newCache(DefaultConfig())
	atlas := &destroyable{}
	cache.RegisterAtlas(atlas)

	cache.FreeResource(nil)
	if !atlas.destroyed {
		t.Fatal("FreeResource did not destroy the atlas")
	}
	if cache.Len() != 0 {
		t.Fatal("cache not emptied by FreeResource")
	}
}
