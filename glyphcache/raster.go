package glyphcache

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Mask is a rasterized glyph ready for atlas upload.
type Mask struct {
	// Image is the coverage mask. Nil for whitespace glyphs.
	Image *image.Alpha

	// Bounds places the mask relative to the glyph origin on the baseline;
	// Min.Y is negative for glyphs extending above it.
	Bounds image.Rectangle

	// Advance is the horizontal pen advance.
	Advance fixed.Int26_6
}

func rasterize(f *Font, r rune, size fixed.Int26_6) (Mask, error) {
	face, err := opentype.NewFace(f.raster, &opentype.FaceOptions{
		Size:    float64(size) / 64,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return Mask{}, fmt.Errorf("glyphcache: creating face: %w", err)
	}
	defer face.Close()

	bounds, advance, ok := face.GlyphBounds(r)
	if !ok {
		return Mask{}, fmt.Errorf("%w: %q", ErrNoGlyph, r)
	}

	rect := image.Rect(
		bounds.Min.X.Floor(), bounds.Min.Y.Floor(),
		bounds.Max.X.Ceil(), bounds.Max.Y.Ceil(),
	)
	if rect.Empty() {
		// Whitespace: advance only, nothing to draw.
		return Mask{Bounds: rect, Advance: advance}, nil
	}

	mask := image.NewAlpha(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	d := font.Drawer{
		Dst:  mask,
		Src:  image.White,
		Face: face,
		Dot: fixed.Point26_6{
			X: -bounds.Min.X,
			Y: -bounds.Min.Y,
		},
	}
	d.DrawString(string(r))

	return Mask{Image: mask, Bounds: rect, Advance: advance}, nil
}
