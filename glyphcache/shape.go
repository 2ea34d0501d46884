package glyphcache

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/go-text/typesetting/di"
	gtfont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/bidi"
)

// Font is a parsed font usable for both shaping and rasterization. The
// parsed tables are read-only, so a Font is safe for concurrent use and is
// meant to be parsed once and shared.
type Font struct {
	shape  *gtfont.Font
	raster *opentype.Font
}

// ParseFont parses TTF or OTF font data.
func ParseFont(data []byte) (*Font, error) {
	face, err := gtfont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("glyphcache: parsing font for shaping: %w", err)
	}
	rf, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("glyphcache: parsing font for rasterization: %w", err)
	}
	return &Font{shape: face.Font, raster: rf}, nil
}

// Glyph is one positioned glyph of a shaped run.
type Glyph struct {
	// GID is the glyph index in the run's font.
	GID gtfont.GID

	// Cluster is the rune index in the source text this glyph maps to.
	Cluster int

	// XOffset and YOffset adjust the glyph relative to the pen position.
	XOffset, YOffset fixed.Int26_6

	// XAdvance moves the pen after this glyph.
	XAdvance fixed.Int26_6
}

// ShapedRun is the shaped form of one string: glyphs in visual order with
// ligatures, kerning, and bidi reordering applied.
type ShapedRun struct {
	Text    string
	Glyphs  []Glyph
	Advance fixed.Int26_6
	RTL     bool
}

// shaperPool pools HarfbuzzShaper instances: they carry mutable buffers and
// are not safe for concurrent use, but reuse avoids per-call allocation.
var shaperPool = sync.Pool{
	New: func() any { return &shaping.HarfbuzzShaper{} },
}

func shapeText(f *Font, text string, size fixed.Int26_6, rtl bool) *ShapedRun {
	run := &ShapedRun{Text: text, RTL: rtl}
	if text == "" {
		return run
	}
	runes := []rune(text)

	// font.Face is not safe for concurrent use; each shaping call gets its
	// own lightweight wrapper around the shared *Font.
	face := gtfont.NewFace(f.shape)

	shaper := shaperPool.Get().(*shaping.HarfbuzzShaper)
	defer shaperPool.Put(shaper)

	for _, seg := range bidiRuns(text, runes, rtl) {
		dir := di.DirectionLTR
		if seg.rtl {
			dir = di.DirectionRTL
		}
		out := shaper.Shape(shaping.Input{
			Text:      runes,
			RunStart:  seg.start,
			RunEnd:    seg.end,
			Direction: dir,
			Face:      face,
			Size:      size,
			Script:    detectScript(runes[seg.start:seg.end]),
			Language:  language.NewLanguage("en"),
		})
		for _, g := range out.Glyphs {
			run.Glyphs = append(run.Glyphs, Glyph{
				GID:      g.GlyphID,
				Cluster:  g.TextIndex(),
				XOffset:  g.XOffset,
				YOffset:  g.YOffset,
				XAdvance: g.Advance,
			})
			run.Advance += g.Advance
		}
	}
	return run
}

// bidiRun is a maximal stretch of runes with a single direction.
type bidiRun struct {
	start, end int // rune indices, end exclusive
	rtl        bool
}

// bidiRuns splits text into direction runs using the Unicode bidi
// algorithm. Indices are rune-based to match shaping.Input.
func bidiRuns(text string, runes []rune, baseRTL bool) []bidiRun {
	base := bidi.Neutral
	if baseRTL {
		base = bidi.RightToLeft
	}

	var p bidi.Paragraph
	_, _ = p.SetString(text, bidi.DefaultDirection(base))
	ordering, err := p.Order()
	if err != nil || ordering.NumRuns() == 0 {
		return []bidiRun{{start: 0, end: len(runes), rtl: baseRTL}}
	}

	runs := make([]bidiRun, 0, ordering.NumRuns())
	for i := 0; i < ordering.NumRuns(); i++ {
		r := ordering.Run(i)
		start, end := r.Pos() // rune indices, end inclusive
		runs = append(runs, bidiRun{
			start: start,
			end:   end + 1,
			rtl:   r.Direction() == bidi.RightToLeft,
		})
	}
	return runs
}

// detectScript returns the script of the first non-space rune, which is
// enough here because bidiRuns already split mixed text by direction.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}
