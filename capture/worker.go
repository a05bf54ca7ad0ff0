package capture

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/MacroScale/macroscale-game-capture/eventloop"
	"github.com/MacroScale/macroscale-game-capture/provider"
)

// WorkerState tracks the worker through its run:
// Idle → Bound → {Grabbing → Sinking}* → Releasing → Done.
type WorkerState int32

const (
	WorkerIdle WorkerState = iota
	WorkerBound
	WorkerGrabbing
	WorkerSinking
	WorkerReleasing
	WorkerDone
)

// String returns a human-readable name for the state.
func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerBound:
		return "bound"
	case WorkerGrabbing:
		return "grabbing"
	case WorkerSinking:
		return "sinking"
	case WorkerReleasing:
		return "releasing"
	case WorkerDone:
		return "done"
	default:
		return "unknown"
	}
}

// FrameSink is the external consumer that durably stores or forwards a
// captured frame. Data is valid only for the duration of the call.
type FrameSink interface {
	Consume(format provider.BufferFormat, data []byte, width, height int) error
}

// SinkFunc adapts a plain function to the FrameSink interface.
type SinkFunc func(format provider.BufferFormat, data []byte, width, height int) error

func (f SinkFunc) Consume(format provider.BufferFormat, data []byte, width, height int) error {
	return f(format, data, width, height)
}

// WorkerConfig tunes a worker run.
type WorkerConfig struct {
	// Iterations is the number of grab-and-sink iterations. Zero is
	// legal and is a no-op: bind immediately followed by release.
	Iterations uint
	// Sink receives each grabbed frame synchronously, before the next
	// grab. Optional when Events is set.
	Sink FrameSink
	// Events, when non-nil, receives one frame-ready event per sunk
	// frame.
	Events *eventloop.Loop
}

// WorkerStats contains per-run counters. Telemetry only, never used for
// control flow.
type WorkerStats struct {
	Iterations  uint64
	GrabTotal   time.Duration
	SinkTotal   time.Duration
	LastFrameID uint64
}

// Worker acquires the capture context, performs a bounded number of
// grab-and-sink iterations, and releases the context. It never retries
// internally: on the first grab or sink failure it releases and returns,
// leaving the session in a state where a fresh Bind by another goroutine
// succeeds. Retries, if desired, are a caller-level policy applied by
// re-invoking the worker.
type Worker struct {
	sess *Session
	cfg  WorkerConfig

	state atomic.Int32

	iterations  atomic.Uint64
	grabNanos   atomic.Uint64
	sinkNanos   atomic.Uint64
	lastFrameID atomic.Uint64
}

// NewWorker creates a worker over the session. The session must have
// completed Setup and have its context released before Run.
func NewWorker(sess *Session, cfg WorkerConfig) *Worker {
	return &Worker{sess: sess, cfg: cfg}
}

// State returns the worker's current lifecycle state.
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// Stats returns a snapshot of the worker's counters.
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		Iterations:  w.iterations.Load(),
		GrabTotal:   time.Duration(w.grabNanos.Load()),
		SinkTotal:   time.Duration(w.sinkNanos.Load()),
		LastFrameID: w.lastFrameID.Load(),
	}
}

// Run executes the worker loop on the calling goroutine, which is locked
// to its OS thread for the duration. Blocks until all iterations
// complete or the first failure; the context is released in every case.
func (w *Worker) Run() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	b, err := w.sess.Bind()
	if err != nil {
		w.state.Store(int32(WorkerDone))
		return err
	}
	w.state.Store(int32(WorkerBound))

	if err := w.sess.WorkerAttach(); err != nil {
		w.state.Store(int32(WorkerReleasing))
		_ = b.Release()
		w.state.Store(int32(WorkerDone))
		return err
	}

	slog.Info("worker: capturing frames",
		"iterations", w.cfg.Iterations,
		"geometry", w.sess.FrameSize().String(),
	)

	runErr := w.loop(b)

	w.state.Store(int32(WorkerReleasing))
	w.sess.WorkerDetach()
	if err := b.Release(); err != nil && runErr == nil {
		runErr = err
	}
	w.state.Store(int32(WorkerDone))

	return runErr
}

// loop runs the grab-and-sink iterations while the context is held.
func (w *Worker) loop(b *BoundSession) error {
	var lastID uint64

	for i := uint(0); i < w.cfg.Iterations; i++ {
		w.state.Store(int32(WorkerGrabbing))
		grab, err := b.Grab(provider.GrabBlocking)
		if err != nil {
			slog.Error("worker: grab failed, terminating loop",
				"iteration", i,
				"error", err,
			)
			return err
		}
		w.grabNanos.Add(uint64(grab.GrabLatency.Nanoseconds()))
		w.lastFrameID.Store(grab.FrameID)

		// Frame-id gaps are diagnostic only under the blocking grab
		// policy; never used for validity gating.
		if lastID != 0 && grab.FrameID > lastID+1 {
			slog.Warn("worker: frame id gap",
				"previous", lastID,
				"current", grab.FrameID,
				"missed", grab.FrameID-lastID-1,
			)
		}
		lastID = grab.FrameID

		w.state.Store(int32(WorkerSinking))
		var sinkElapsed time.Duration
		if w.cfg.Sink != nil {
			start := time.Now()
			if err := w.cfg.Sink.Consume(grab.Format, grab.Data, grab.Width, grab.Height); err != nil {
				slog.Error("worker: sink failed, terminating loop",
					"iteration", i,
					"frame_id", grab.FrameID,
					"error", err,
				)
				return fmt.Errorf("%w: %v", ErrSinkFailed, err)
			}
			sinkElapsed = time.Since(start)
			w.sinkNanos.Add(uint64(sinkElapsed.Nanoseconds()))
		}

		if w.cfg.Events != nil {
			if err := w.cfg.Events.AddEvent(eventloop.Event{
				FrameID:   grab.FrameID,
				Width:     grab.Width,
				Height:    grab.Height,
				Data:      grab.Data,
				TraceID:   grab.TraceID,
				Timestamp: time.Now(),
			}); err != nil {
				slog.Warn("worker: frame-ready event dropped",
					"frame_id", grab.FrameID,
					"error", err,
				)
			}
		}

		w.iterations.Add(1)
		slog.Debug("worker: frame captured",
			"frame_id", grab.FrameID,
			"grab_ms", grab.GrabLatency.Milliseconds(),
			"sink_ms", sinkElapsed.Milliseconds(),
			"trace_id", grab.TraceID,
		)
	}

	return nil
}
