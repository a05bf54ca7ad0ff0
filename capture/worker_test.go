package capture

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MacroScale/macroscale-game-capture/eventloop"
	"github.com/MacroScale/macroscale-game-capture/provider"
)

var workerGeom = Geometry{Width: 32, Height: 24}

// newReadySession opens, configures, and sets up a session over the Sim
// provider, returning it with the context released so a worker can bind.
func newReadySession(t *testing.T, cfg provider.SimConfig) *Session {
	t.Helper()

	s := New(provider.NewSim(cfg))
	if err := s.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, err := s.Bind()
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := b.Configure(workerGeom, false); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := b.Setup(FormatRGB); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := b.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	return s
}

// collectSink copies each consumed frame, since the session buffer is
// overwritten by the next grab.
type collectSink struct {
	mu     sync.Mutex
	frames [][]byte
	failAt int // 1-based frame index to fail at (0 = never)
}

func (c *collectSink) Consume(format BufferFormat, data []byte, width, height int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failAt != 0 && len(c.frames)+1 == c.failAt {
		return fmt.Errorf("injected sink failure at frame %d", c.failAt)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.frames = append(c.frames, cp)
	return nil
}

func (c *collectSink) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func TestWorkerCapturesConfiguredIterations(t *testing.T) {
	sess := newReadySession(t, provider.SimConfig{})
	snk := &collectSink{}

	w := NewWorker(sess, WorkerConfig{Iterations: 3, Sink: snk})
	if err := w.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := snk.count(); got != 3 {
		t.Fatalf("sink received %d frames, want 3", got)
	}
	// Consecutive frames must carry distinct content (the simulated
	// pattern shifts per frame).
	if string(snk.frames[0]) == string(snk.frames[1]) {
		t.Error("consecutive frames have identical content")
	}

	stats := w.Stats()
	if stats.Iterations != 3 {
		t.Errorf("stats.Iterations = %d, want 3", stats.Iterations)
	}
	if stats.LastFrameID != 3 {
		t.Errorf("stats.LastFrameID = %d, want 3", stats.LastFrameID)
	}
	if w.State() != WorkerDone {
		t.Errorf("worker state %s, want done", w.State())
	}
	if sess.ContextBound() {
		t.Error("worker left the context bound")
	}
}

func TestWorkerZeroIterations(t *testing.T) {
	sess := newReadySession(t, provider.SimConfig{})
	snk := &collectSink{}

	w := NewWorker(sess, WorkerConfig{Iterations: 0, Sink: snk})
	if err := w.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Zero iterations is a legal no-op: bind immediately followed by
	// release, no grabs, no sink calls.
	if got := snk.count(); got != 0 {
		t.Errorf("sink received %d frames, want 0", got)
	}
	if w.Stats().Iterations != 0 {
		t.Errorf("stats.Iterations = %d, want 0", w.Stats().Iterations)
	}
	if sess.ContextBound() {
		t.Error("worker left the context bound")
	}
}

func TestWorkerSinkFailureReleasesContext(t *testing.T) {
	sess := newReadySession(t, provider.SimConfig{})
	snk := &collectSink{failAt: 2}

	w := NewWorker(sess, WorkerConfig{Iterations: 5, Sink: snk})
	err := w.Run()
	if !errors.Is(err, ErrSinkFailed) {
		t.Fatalf("Run: got %v, want ErrSinkFailed", err)
	}

	if got := snk.count(); got != 1 {
		t.Errorf("sink stored %d frames before failure, want 1", got)
	}

	// The failed worker must have released: a fresh bind succeeds.
	b, err := sess.Bind()
	if err != nil {
		t.Fatalf("Bind after worker failure: %v", err)
	}
	if err := b.Release(); err != nil {
		t.Errorf("Release: %v", err)
	}
}

func TestWorkerGrabFailureReleasesContext(t *testing.T) {
	sess := newReadySession(t, provider.SimConfig{FailGrabAt: 2})

	w := NewWorker(sess, WorkerConfig{Iterations: 5, Sink: &collectSink{}})
	err := w.Run()
	if !errors.Is(err, ErrGrabFailed) {
		t.Fatalf("Run: got %v, want ErrGrabFailed", err)
	}

	b, err := sess.Bind()
	if err != nil {
		t.Fatalf("Bind after worker failure: %v", err)
	}
	if err := b.Release(); err != nil {
		t.Errorf("Release: %v", err)
	}
}

func TestWorkerBindBusy(t *testing.T) {
	sess := newReadySession(t, provider.SimConfig{})
	b, err := sess.Bind()
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer b.Release()

	w := NewWorker(sess, WorkerConfig{Iterations: 1, Sink: &collectSink{}})
	if err := w.Run(); !errors.Is(err, ErrContextBusy) {
		t.Errorf("Run with context held: got %v, want ErrContextBusy", err)
	}
}

func TestWorkerPublishesEventsInOrder(t *testing.T) {
	sess := newReadySession(t, provider.SimConfig{})
	events := eventloop.New()

	var mu sync.Mutex
	var ids []uint64
	if err := events.Start(func(e eventloop.Event) {
		mu.Lock()
		ids = append(ids, e.FrameID)
		mu.Unlock()
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	w := NewWorker(sess, WorkerConfig{Iterations: 3, Sink: &collectSink{}, Events: events})
	if err := w.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := events.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ids) != 3 {
		t.Fatalf("received %d events, want 3", len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Errorf("event order violated: frame %d after %d", ids[i], ids[i-1])
		}
	}
}

func TestWorkerBlocksOnFrameCadence(t *testing.T) {
	const delay = 10 * time.Millisecond
	sess := newReadySession(t, provider.SimConfig{FrameDelay: delay})

	w := NewWorker(sess, WorkerConfig{Iterations: 3, Sink: &collectSink{}})
	start := time.Now()
	if err := w.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 3*delay {
		t.Errorf("run finished in %s, want >= %s (blocking grab not honored)",
			elapsed, 3*delay)
	}
}
