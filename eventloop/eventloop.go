// Package eventloop provides the process-wide frame-ready event queue
// that decouples the capture worker's production cadence from a
// consumer's processing cadence.
//
// Events are delivered in the order they were added, provided a single
// consumer drains the queue (FIFO under single-consumer discipline;
// multi-consumer draining order is unspecified). Producers never block
// on the consumer: AddEvent only holds the queue lock long enough to
// append.
//
// Usage:
//
//	events := eventloop.Instance()
//	events.Start(func(e eventloop.Event) {
//	    // process one frame-ready notification
//	})
//	defer events.End()
//
//	events.AddEvent(eventloop.Event{FrameID: 1, ...})
//
// An Event carries a reference to the session's frame buffer, not a
// copy: it is valid only until the next grab overwrites the buffer.
package eventloop

import (
	"sync"

	"github.com/MacroScale/macroscale-game-capture/eventloop/internal/loop"
)

// Public API - Re-export internal types as stable contract

// Event is one frame-ready notification.
type Event = loop.Event

// Handler is the consumer-side processing of one event.
type Handler = loop.Handler

// Stats contains queue counters.
type Stats = loop.Stats

// Loop buffers frame-ready events for a single consumer.
type Loop = loop.Loop

// Public API errors - Re-export internal errors as stable contract
var (
	ErrNotRunning     = loop.ErrNotRunning
	ErrAlreadyRunning = loop.ErrAlreadyRunning
	ErrNilHandler     = loop.ErrNilHandler
)

// New creates an independent, stopped loop. Most callers want the
// process-wide Instance; New exists for components (and tests) that need
// an isolated queue.
func New() *Loop {
	return loop.New()
}

var (
	instanceOnce sync.Once
	instance     *Loop
)

// Instance returns the process-wide event queue, creating it on first
// access. Construction is guarded by sync.Once, so concurrent first-time
// accesses from multiple goroutines never race to construct two
// instances.
func Instance() *Loop {
	instanceOnce.Do(func() {
		instance = loop.New()
	})
	return instance
}
