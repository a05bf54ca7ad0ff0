package loop

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLoopDeliversInOrder(t *testing.T) {
	l := New()

	var mu sync.Mutex
	var got []uint64

	err := l.Start(func(e Event) {
		mu.Lock()
		got = append(got, e.FrameID)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	for id := uint64(1); id <= 3; id++ {
		if err := l.AddEvent(Event{FrameID: id}); err != nil {
			t.Fatalf("AddEvent(%d): %v", id, err)
		}
	}
	if err := l.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 3 {
		t.Fatalf("delivered %d events, want 3", len(got))
	}
	for i, id := range got {
		if id != uint64(i+1) {
			t.Errorf("event %d: frame id %d, want %d (FIFO order violated)", i, id, i+1)
		}
	}
}

func TestLoopAddBeforeStart(t *testing.T) {
	l := New()
	if err := l.AddEvent(Event{FrameID: 1}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("AddEvent before Start: got %v, want ErrNotRunning", err)
	}
}

func TestLoopAddAfterEnd(t *testing.T) {
	l := New()
	if err := l.Start(func(Event) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.End(); err != nil {
		t.Fatalf("End: %v", err)
	}
	if err := l.AddEvent(Event{FrameID: 1}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("AddEvent after End: got %v, want ErrNotRunning", err)
	}
}

func TestLoopEndNotRunning(t *testing.T) {
	l := New()
	if err := l.End(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("End on stopped loop: got %v, want ErrNotRunning", err)
	}
}

func TestLoopStartTwice(t *testing.T) {
	l := New()
	if err := l.Start(func(Event) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer l.End()

	if err := l.Start(func(Event) {}); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start: got %v, want ErrAlreadyRunning", err)
	}
}

func TestLoopNilHandler(t *testing.T) {
	l := New()
	if err := l.Start(nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("Start(nil): got %v, want ErrNilHandler", err)
	}
}

// TestLoopEndFlushes verifies End delivers every already-queued event
// before returning, even with a handler slower than the producer.
func TestLoopEndFlushes(t *testing.T) {
	l := New()

	const total = 10
	var delivered sync.WaitGroup
	delivered.Add(total)

	if err := l.Start(func(Event) {
		time.Sleep(time.Millisecond)
		delivered.Done()
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < total; i++ {
		if err := l.AddEvent(Event{FrameID: uint64(i + 1)}); err != nil {
			t.Fatalf("AddEvent: %v", err)
		}
	}
	if err := l.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	// End has returned, so every queued event must already be delivered.
	stats := l.Stats()
	if stats.Queued != total || stats.Delivered != total {
		t.Errorf("stats after End: queued=%d delivered=%d, want %d/%d",
			stats.Queued, stats.Delivered, total, total)
	}
	delivered.Wait()
}

func TestLoopRestartAfterEnd(t *testing.T) {
	l := New()
	if err := l.Start(func(Event) {}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.End(); err != nil {
		t.Fatalf("End: %v", err)
	}

	// The loop is reusable: a stopped loop can be started again.
	if err := l.Start(func(Event) {}); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := l.AddEvent(Event{FrameID: 1}); err != nil {
		t.Errorf("AddEvent after restart: %v", err)
	}
	if err := l.End(); err != nil {
		t.Fatalf("second End: %v", err)
	}
}
