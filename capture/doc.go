// Package capture implements the capture-session state machine, the
// context handoff protocol, and the worker grab loop.
//
// Core Philosophy: "One owner at a time. Hand the context over, never
// share it."
//
// The capture provider permits only one thread of execution to touch its
// per-session state at a time, but allows that owner to change over time.
// That capability is modeled as an explicit context: Bind takes it, the
// returned BoundSession value unlocks all session-mutating operations,
// and Release gives it up so another goroutine can bind. Ownership is a
// single atomic token mutated via compare-and-swap - not a mutex -
// because release happens on a different goroutine's control flow than
// bind, and a lock/unlock pairing inside one stack frame cannot express
// that.
//
// Canonical lifecycle:
//
//	sess := capture.New(prov)
//	sess.Open()                       // provider connection
//	b, _ := sess.Bind()               // owning goroutine takes the context
//	b.Configure(geom, withCursor)
//	b.Setup(capture.FormatRGB)
//	b.Release()                       // hand over to the worker
//
//	w := capture.NewWorker(sess, capture.WorkerConfig{Iterations: 10, Sink: s})
//	err := w.Run()                    // binds, grabs N frames, releases
//
//	b, _ = sess.Bind()                // owning goroutine takes it back
//	b.Teardown()
//	b.Close()
//	b.Release()
//
// The session is single-buffered: each grab overwrites the frame buffer
// in place, so frame data is valid only until the next grab starts. The
// worker's direct-sink path respects this by sinking synchronously within
// the same iteration; consumers that buffer frames must copy.
package capture
