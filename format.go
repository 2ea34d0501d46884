package glctx

import "github.com/gogpu/gputypes"

// Profile selects the API profile a context is created against.
type Profile uint8

const (
	// ProfileNone requests no particular profile (pre-3.2 semantics or a
	// platform without profiles).
	ProfileNone Profile = iota

	// ProfileCore requests the core profile.
	ProfileCore

	// ProfileCompatibility requests the compatibility profile.
	ProfileCompatibility

	// ProfileES requests an OpenGL ES flavored context.
	ProfileES
)

// String returns the profile name.
func (p Profile) String() string {
	switch p {
	case ProfileCore:
		return "core"
	case ProfileCompatibility:
		return "compatibility"
	case ProfileES:
		return "es"
	default:
		return "none"
	}
}

// SwapBehavior selects the buffering of the rendering surface.
type SwapBehavior uint8

const (
	// SwapDefault lets the platform pick.
	SwapDefault SwapBehavior = iota

	// SwapSingle requests single buffering.
	SwapSingle

	// SwapDouble requests double buffering.
	SwapDouble

	// SwapTriple requests triple buffering.
	SwapTriple
)

// Format describes the configuration of a rendering context: API version,
// profile, and buffer setup.
//
// The format passed to Context.SetFormat is a request; the platform may
// grant the closest match it supports. Query Context.Format after a
// successful Create for the effective values.
type Format struct {
	// MajorVersion and MinorVersion request an API version.
	MajorVersion int
	MinorVersion int

	// Profile requests an API profile. Ignored for versions that have no
	// profiles.
	Profile Profile

	// ColorFormat is the color buffer pixel format.
	ColorFormat gputypes.TextureFormat

	// DepthBufferSize is the requested depth buffer size in bits, or 0
	// for no depth buffer.
	DepthBufferSize int

	// StencilBufferSize is the requested stencil buffer size in bits, or 0
	// for no stencil buffer.
	StencilBufferSize int

	// Samples is the number of samples per pixel for multisampling, or 0
	// to disable multisampling.
	Samples int

	// SwapBehavior requests the surface buffering mode.
	SwapBehavior SwapBehavior

	// SwapInterval is the requested frame interval between buffer swaps
	// (1 enables vsync).
	SwapInterval int
}

// DefaultFormat returns the format contexts are created with when none is
// set: version 3.3 core, BGRA8 color, 24-bit depth, 8-bit stencil, double
// buffered with vsync.
func DefaultFormat() Format {
	return Format{
		MajorVersion:      3,
		MinorVersion:      3,
		Profile:           ProfileCore,
		ColorFormat:       gputypes.TextureFormatBGRA8Unorm,
		DepthBufferSize:   24,
		StencilBufferSize: 8,
		SwapBehavior:      SwapDouble,
		SwapInterval:      1,
	}
}

// Version returns the requested major and minor version.
func (f Format) Version() (major, minor int) {
	return f.MajorVersion, f.MinorVersion
}
