// Package session implements the capture session state machine and the
// context handoff protocol. Clients use the public API in the capture
// package.
package session

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MacroScale/macroscale-game-capture/provider"
)

// Session state constants. Transitions are linear:
// closed → open → configured → ready, and back down via Teardown/Close.
const (
	stateClosed int32 = iota
	stateOpen
	stateConfigured
	stateReady
)

// Session owns the provider handle, the single frame buffer, and the
// context ownership state.
//
// All session-mutating operations (Configure, Setup, Grab, Teardown,
// Close) live on Bound, the capability value returned by Bind. The
// single-owner invariant is enforced at runtime: a Bound whose token no
// longer holds the context fails with ErrNotBound or ErrContextNotOwned.
//
// The frame buffer is single-buffered: each Grab overwrites it in place,
// and data from a previous grab is valid only until the next one starts.
type Session struct {
	prov provider.Provider
	ctx  Context

	state      atomic.Int32
	geom       provider.Geometry
	withCursor bool
	format     provider.BufferFormat
	buf        []byte

	// workerHeld guards Teardown/Close against a concurrently active
	// worker, and limits the session to one attached worker at a time.
	workerHeld atomic.Bool

	// Statistics (atomic for thread-safety).
	frames        atomic.Uint64
	bytesCaptured atomic.Uint64
	grabNanos     atomic.Uint64
	lastGrabNano  atomic.Int64
}

// New creates a session over the given provider. The provider connection
// is not established until Open.
func New(prov provider.Provider) *Session {
	return &Session{prov: prov}
}

// Open establishes the provider connection. Fails with
// ErrProviderUnavailable if the provider cannot be reached or capture is
// not currently possible, or ErrAlreadyOpen if called twice.
func (s *Session) Open() error {
	if s.state.Load() != stateClosed {
		return ErrAlreadyOpen
	}
	if err := s.prov.Open(); err != nil {
		return fmt.Errorf("%w: %s", ErrProviderUnavailable, s.lastProviderError(err))
	}
	s.state.Store(stateOpen)
	slog.Info("capture: session open")
	return nil
}

// Bind takes the capture context for the calling goroutine, returning the
// capability value that unlocks session-mutating operations. Fails with
// ErrContextBusy while another binder holds the context.
func (s *Session) Bind() (*Bound, error) {
	token, err := s.ctx.TryBind()
	if err != nil {
		return nil, err
	}
	slog.Debug("capture: context bound", "owner", token)
	return &Bound{sess: s, token: token}, nil
}

// ContextBound reports whether any binder currently holds the context.
func (s *Session) ContextBound() bool {
	return s.ctx.Bound()
}

// FrameSize returns the geometry established by Configure, or the zero
// geometry before then.
func (s *Session) FrameSize() provider.Geometry {
	return s.geom
}

// WorkerAttach marks a worker as active on the session. While attached,
// Teardown and Close fail with ErrSessionBusy; a second attach also fails
// with ErrSessionBusy (one worker at a time).
func (s *Session) WorkerAttach() error {
	if !s.workerHeld.CompareAndSwap(false, true) {
		return ErrSessionBusy
	}
	return nil
}

// WorkerDetach clears the active-worker mark.
func (s *Session) WorkerDetach() {
	s.workerHeld.Store(false)
}

// Stats returns a snapshot of session counters.
func (s *Session) Stats() Stats {
	frames := s.frames.Load()
	grabNanos := s.grabNanos.Load()

	var avgGrab time.Duration
	if frames > 0 {
		avgGrab = time.Duration(grabNanos / frames)
	}
	var lastGrab time.Time
	if nano := s.lastGrabNano.Load(); nano != 0 {
		lastGrab = time.Unix(0, nano)
	}

	return Stats{
		Frames:        frames,
		BytesCaptured: s.bytesCaptured.Load(),
		AvgGrab:       avgGrab,
		LastGrabAt:    lastGrab,
	}
}

// Stats contains session counters. Observability only, never used for
// control decisions.
type Stats struct {
	Frames        uint64
	BytesCaptured uint64
	AvgGrab       time.Duration
	LastGrabAt    time.Time
}

// FrameGrab describes one successful grab. Data aliases the session's
// frame buffer and is valid only until the next grab starts.
type FrameGrab struct {
	FrameID uint64
	Width   int
	Height  int
	Format  provider.BufferFormat
	Data    []byte
	TraceID string
	// GrabLatency is the wall-clock duration of the provider grab call.
	// Telemetry only.
	GrabLatency time.Duration
}

// Bound is the capability value representing a held capture context.
// It is valid from Bind until Release; operations on a released Bound
// fail with ErrNotBound (context unbound) or ErrContextNotOwned (context
// since bound by someone else).
type Bound struct {
	sess  *Session
	token uint64
}

// Release gives the context up so ownership can move to another
// goroutine. Fails with ErrContextNotOwned if this capability no longer
// holds the context.
func (b *Bound) Release() error {
	if err := b.sess.ctx.Release(b.token); err != nil {
		return err
	}
	slog.Debug("capture: context released", "owner", b.token)
	return nil
}

// Configure declares a capture session of a fixed size with an optional
// cursor overlay. Fails with ErrInvalidGeometry if either dimension is
// zero; on any ownership violation the frame size is left unchanged.
func (b *Bound) Configure(geom provider.Geometry, withCursor bool) error {
	if err := b.check(); err != nil {
		return err
	}
	s := b.sess
	if s.state.Load() != stateOpen {
		if s.state.Load() == stateClosed {
			return ErrNotOpen
		}
		return ErrSessionBusy
	}
	if geom.Empty() {
		return fmt.Errorf("%w: %s", ErrInvalidGeometry, geom)
	}
	if err := s.prov.Configure(geom, withCursor); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidGeometry, s.lastProviderError(err))
	}
	s.geom = geom
	s.withCursor = withCursor
	s.state.Store(stateConfigured)
	slog.Info("capture: session configured",
		"geometry", geom.String(),
		"with_cursor", withCursor,
	)
	return nil
}

// Setup obtains the frame buffer sized format × geometry from the
// provider. Fails with ErrUnsupportedFormat if the provider rejects the
// format.
func (b *Bound) Setup(format provider.BufferFormat) error {
	if err := b.check(); err != nil {
		return err
	}
	s := b.sess
	if s.state.Load() != stateConfigured {
		if s.state.Load() == stateClosed {
			return ErrNotOpen
		}
		return ErrSessionBusy
	}
	buf, err := s.prov.Setup(format)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, s.lastProviderError(err))
	}
	s.format = format
	s.buf = buf
	s.state.Store(stateReady)
	slog.Info("capture: session set up",
		"format", format.String(),
		"buffer_bytes", len(buf),
	)
	return nil
}

// Grab captures one frame into the session buffer. Under
// provider.GrabBlocking the call blocks until a genuinely new frame is
// available. An operational failure is wrapped in ErrGrabFailed and
// leaves the session bound and reusable.
func (b *Bound) Grab(mode provider.GrabMode) (FrameGrab, error) {
	if err := b.check(); err != nil {
		return FrameGrab{}, err
	}
	s := b.sess
	if s.state.Load() != stateReady {
		return FrameGrab{}, ErrSessionBusy
	}

	start := time.Now()
	info, err := s.prov.Grab(mode)
	if err != nil {
		return FrameGrab{}, fmt.Errorf("%w: %s", ErrGrabFailed, s.lastProviderError(err))
	}
	elapsed := time.Since(start)

	s.frames.Add(1)
	s.bytesCaptured.Add(uint64(len(s.buf)))
	s.grabNanos.Add(uint64(elapsed.Nanoseconds()))
	s.lastGrabNano.Store(time.Now().UnixNano())

	return FrameGrab{
		FrameID:     info.FrameID,
		Width:       info.Width,
		Height:      info.Height,
		Format:      s.format,
		Data:        s.buf,
		TraceID:     uuid.New().String(),
		GrabLatency: elapsed,
	}, nil
}

// Teardown releases the frame buffer, the reverse of Setup. Fails with
// ErrSessionBusy while a worker is attached.
func (b *Bound) Teardown() error {
	if err := b.check(); err != nil {
		return err
	}
	s := b.sess
	if s.workerHeld.Load() {
		return ErrSessionBusy
	}
	if s.state.Load() != stateReady {
		return ErrSessionBusy
	}
	if err := s.prov.Teardown(); err != nil {
		return fmt.Errorf("capture: teardown failed: %s", s.lastProviderError(err))
	}
	s.buf = nil
	s.geom = provider.Geometry{}
	s.state.Store(stateOpen)
	slog.Info("capture: session torn down")
	return nil
}

// Close drops the provider connection, the reverse of Open. Fails with
// ErrSessionBusy if Teardown has not run or a worker is attached. After
// Close, Open may be called again.
func (b *Bound) Close() error {
	if err := b.check(); err != nil {
		return err
	}
	s := b.sess
	if s.workerHeld.Load() {
		return ErrSessionBusy
	}
	switch s.state.Load() {
	case stateClosed:
		return ErrNotOpen
	case stateReady:
		return ErrSessionBusy
	}
	if err := s.prov.Close(); err != nil {
		return fmt.Errorf("capture: close failed: %s", s.lastProviderError(err))
	}
	s.state.Store(stateClosed)
	slog.Info("capture: session closed")
	return nil
}

// check verifies the capability still holds the context.
func (b *Bound) check() error {
	return b.sess.ctx.Check(b.token)
}

// lastProviderError prefers the provider's last-error string, which is
// surfaced unmodified in failure reports, over the raw error.
func (s *Session) lastProviderError(err error) string {
	if msg := s.prov.LastError(); msg != "" {
		return msg
	}
	return err.Error()
}
