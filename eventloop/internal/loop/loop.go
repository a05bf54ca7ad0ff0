// Package loop implements the frame-ready event queue. Clients use the
// public API in the eventloop package.
package loop

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Internal errors - mapped to public errors in the eventloop package.
var (
	ErrNotRunning     = errors.New("eventloop: loop is not running")
	ErrAlreadyRunning = errors.New("eventloop: loop is already running")
	ErrNilHandler     = errors.New("eventloop: nil handler provided")
)

// Event is one frame-ready notification.
//
// Data references the capture session's frame buffer; the queue does not
// own it. An event is therefore valid only until the next grab overwrites
// the buffer - handlers that outlive the current iteration must copy.
type Event struct {
	FrameID   uint64
	Width     int
	Height    int
	Data      []byte
	TraceID   string
	Timestamp time.Time
}

// Handler is the consumer-side processing of one event, defined by the
// consumer, not by the queue.
type Handler func(Event)

// Stats contains queue counters.
type Stats struct {
	Queued    uint64
	Delivered uint64
}

// Loop buffers frame-ready events and dispatches them to a single
// consumer in FIFO order. Producers append under a bounded critical
// section; delivery happens on a dedicated drain goroutine so AddEvent
// never blocks on a slow handler.
type Loop struct {
	mu      sync.Mutex
	cond    *sync.Cond
	buf     []Event
	running bool
	handler Handler
	wg      sync.WaitGroup

	queued    atomic.Uint64
	delivered atomic.Uint64
}

// New creates a stopped loop.
func New() *Loop {
	l := &Loop{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Start begins delivering events to the handler. Fails with
// ErrAlreadyRunning if the loop is active.
func (l *Loop) Start(h Handler) error {
	if h == nil {
		return ErrNilHandler
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return ErrAlreadyRunning
	}
	l.running = true
	l.handler = h

	l.wg.Add(1)
	go l.drain()

	slog.Debug("eventloop: started")
	return nil
}

// AddEvent appends an event to the queue. Fails with ErrNotRunning
// before Start or after End. Never blocks on the consumer.
func (l *Loop) AddEvent(e Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return ErrNotRunning
	}
	l.buf = append(l.buf, e)
	l.queued.Add(1)
	l.cond.Signal()
	return nil
}

// End stops the loop after flushing already-queued events, then waits for
// the drain goroutine to exit. Fails with ErrNotRunning if the loop is
// not active.
func (l *Loop) End() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return ErrNotRunning
	}
	l.running = false
	l.cond.Broadcast()
	l.mu.Unlock()

	l.wg.Wait()

	slog.Debug("eventloop: ended",
		"queued", l.queued.Load(),
		"delivered", l.delivered.Load(),
	)
	return nil
}

// Stats returns a snapshot of queue counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Queued:    l.queued.Load(),
		Delivered: l.delivered.Load(),
	}
}

// drain delivers buffered events in order until End is called and the
// buffer is empty. The handler runs outside the lock so producers are
// never serialized behind it.
func (l *Loop) drain() {
	defer l.wg.Done()

	for {
		l.mu.Lock()
		for len(l.buf) == 0 && l.running {
			l.cond.Wait()
		}
		if len(l.buf) == 0 && !l.running {
			l.mu.Unlock()
			return
		}
		e := l.buf[0]
		l.buf = l.buf[1:]
		handler := l.handler
		l.mu.Unlock()

		handler(e)
		l.delivered.Add(1)
	}
}
