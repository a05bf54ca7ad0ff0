// Package provider defines the capture provider boundary: the low-level
// backend that owns the connection to a display and fills the session's
// frame buffer on demand.
//
// Every Provider call maps 1:1 to one step of the session lifecycle
// (Open → Configure → Setup → Grab* → Teardown → Close). Providers report
// failures through error returns and additionally keep a human-readable
// last-error string, which higher layers surface unmodified in diagnostics.
//
// Three backends are available:
//   - Sim: deterministic synthetic frames, no display required
//   - X11: polling capture via the screenshot library (pure Go)
//   - GST: GStreamer ximagesrc pipeline with damage-driven blocking grabs
package provider

import "fmt"

// Geometry is a fixed capture size in pixels.
type Geometry struct {
	Width  int
	Height int
}

// String returns the geometry as "WxH".
func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d", g.Width, g.Height)
}

// Empty reports whether either dimension is zero.
func (g Geometry) Empty() bool {
	return g.Width <= 0 || g.Height <= 0
}

// BufferFormat is the uncompressed per-pixel layout of the frame buffer.
type BufferFormat int

const (
	// FormatRGB is 3 bytes per pixel, no alpha.
	FormatRGB BufferFormat = iota
	// FormatRGBA is 4 bytes per pixel, alpha last.
	FormatRGBA
	// FormatBGRA is 4 bytes per pixel, blue first, alpha last.
	FormatBGRA
)

// BytesPerPixel returns the per-pixel byte count for the format,
// or 0 for an unknown format.
func (f BufferFormat) BytesPerPixel() int {
	switch f {
	case FormatRGB:
		return 3
	case FormatRGBA, FormatBGRA:
		return 4
	default:
		return 0
	}
}

// String returns a human-readable name for the format.
func (f BufferFormat) String() string {
	switch f {
	case FormatRGB:
		return "rgb"
	case FormatRGBA:
		return "rgba"
	case FormatBGRA:
		return "bgra"
	default:
		return "unknown"
	}
}

// ParseBufferFormat parses a format name as it appears in configuration.
func ParseBufferFormat(s string) (BufferFormat, error) {
	switch s {
	case "rgb":
		return FormatRGB, nil
	case "rgba":
		return FormatRGBA, nil
	case "bgra":
		return FormatBGRA, nil
	default:
		return 0, fmt.Errorf("provider: unknown buffer format %q", s)
	}
}

// GrabMode selects the wait policy for a single grab.
type GrabMode int

const (
	// GrabBlocking waits until a frame newer than the previous grab is
	// available. This is the default policy: no busy-polling, and every
	// grab yields a genuinely new frame.
	GrabBlocking GrabMode = iota
	// GrabNoWait returns immediately; if no new frame has been produced
	// since the previous grab it fails with ErrNoNewFrame.
	GrabNoWait
)

// FrameInfo describes one successfully grabbed frame. The pixel data itself
// lands in the buffer returned by Setup.
type FrameInfo struct {
	// FrameID is a monotonically increasing sequence number assigned by
	// the provider per successful grab. Gaps are only meaningful under
	// GrabNoWait and are used for diagnostics, never for control flow.
	FrameID uint64
	// Width and Height are the dimensions of the delivered frame and
	// equal the configured geometry for the session's lifetime.
	Width  int
	Height int
}

// Provider is the contract for a capture backend.
//
// Implementations must guarantee:
//   - Open establishes the display connection; it fails if the display
//     cannot be reached or capture is not currently possible
//   - Setup returns the single frame buffer; Grab overwrites it in place
//   - Grab(GrabBlocking) blocks until a new frame is available
//   - Teardown/Close are the reverse of Setup/Open
//   - LastError is safe to call after any failed operation
//
// Providers are not safe for concurrent use; the capture session layer
// enforces single-owner access through its context handoff protocol.
type Provider interface {
	// Open establishes the provider's display connection and verifies
	// that a capture session can be created on this system.
	Open() error

	// Configure declares a capture session of a fixed size with an
	// optional cursor overlay. Valid only after Open.
	Configure(geom Geometry, withCursor bool) error

	// Setup allocates the frame buffer sized format × geometry and
	// prepares the backend for grabbing. The returned slice is owned by
	// the provider and overwritten by every successful Grab.
	Setup(format BufferFormat) ([]byte, error)

	// Grab captures one frame into the setup buffer. Under GrabBlocking
	// the call waits for a frame produced after the previous successful
	// grab (display refresh or cursor movement, not wall-clock polling).
	Grab(mode GrabMode) (FrameInfo, error)

	// Teardown releases the frame buffer and capture resources,
	// returning the provider to its post-Open state.
	Teardown() error

	// Close drops the display connection. Open may be called again
	// afterwards.
	Close() error

	// LastError returns the human-readable description of the most
	// recent failure, or "" if no operation has failed.
	LastError() string
}
