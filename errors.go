package glctx

import "errors"

// Common errors returned by context operations.
var (
	// ErrNoPlatform is returned by Create when no platform plugin has been
	// registered. Import a backend package (e.g. backend/headless) or call
	// RegisterPlatform before creating contexts.
	ErrNoPlatform = errors.New("glctx: no platform registered")

	// ErrNotCreated is returned when an operation requires a successfully
	// created native context.
	ErrNotCreated = errors.New("glctx: context not created")

	// ErrDestroyed is returned when an operation is attempted on a
	// destroyed context.
	ErrDestroyed = errors.New("glctx: context destroyed")

	// ErrInvalidSurface is returned by MakeCurrent and SwapBuffers when the
	// surface is not usable for rendering.
	ErrInvalidSurface = errors.New("glctx: invalid surface")
)
