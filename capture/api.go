package capture

import (
	"github.com/MacroScale/macroscale-game-capture/capture/internal/session"
	"github.com/MacroScale/macroscale-game-capture/provider"
)

// Public API - Re-export internal types as stable contract

// Session owns the provider handle, the single frame buffer, and the
// context ownership state.
type Session = session.Session

// BoundSession is the capability value representing a held capture
// context; all session-mutating operations live on it.
type BoundSession = session.Bound

// FrameGrab describes one successful grab. Data aliases the session
// buffer and is valid only until the next grab starts.
type FrameGrab = session.FrameGrab

// SessionStats contains session counters.
type SessionStats = session.Stats

// Geometry is a fixed capture size in pixels.
type Geometry = provider.Geometry

// BufferFormat is the uncompressed per-pixel layout of the frame buffer.
type BufferFormat = provider.BufferFormat

// Buffer formats supported by the session layer. Individual providers
// may support a subset.
const (
	FormatRGB  = provider.FormatRGB
	FormatRGBA = provider.FormatRGBA
	FormatBGRA = provider.FormatBGRA
)

// Public API errors - Re-export internal errors as stable contract
var (
	ErrProviderUnavailable = session.ErrProviderUnavailable
	ErrAlreadyOpen         = session.ErrAlreadyOpen
	ErrNotOpen             = session.ErrNotOpen
	ErrNotBound            = session.ErrNotBound
	ErrContextBusy         = session.ErrContextBusy
	ErrContextNotOwned     = session.ErrContextNotOwned
	ErrInvalidGeometry     = session.ErrInvalidGeometry
	ErrUnsupportedFormat   = session.ErrUnsupportedFormat
	ErrSessionBusy         = session.ErrSessionBusy
	ErrGrabFailed          = session.ErrGrabFailed
	ErrSinkFailed          = session.ErrSinkFailed
)

// New creates a session over the given provider. This is the only public
// constructor and part of the stable API.
func New(prov provider.Provider) *Session {
	return session.New(prov)
}
