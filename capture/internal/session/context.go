package session

import "sync/atomic"

// unboundOwner is the sentinel owner token meaning "no binder holds the
// context".
const unboundOwner uint64 = 0

// ownerSeq allocates owner tokens. Tokens start at 1 so the zero value
// never collides with the unbound sentinel.
var ownerSeq atomic.Uint64

func nextOwner() uint64 {
	return ownerSeq.Add(1)
}

// Context is the exclusive, transferable capability required to issue
// session-mutating or grab operations. At any instant it is owned by
// exactly one binder, or by none while released.
//
// Ownership outlives the call stack that created it: a worker releases a
// context that the owning goroutine bound and handed over. A conventional
// lock cannot express that (unlock from a different goroutine is a
// contract violation for sync.Mutex), so the owner is a plain token
// mutated only via compare-and-swap. The CAS on release doubles as the
// memory barrier: all writes made while bound are visible to whichever
// binder succeeds next.
type Context struct {
	owner atomic.Uint64
}

// TryBind attempts to take the context, returning a fresh owner token.
// Fails with ErrContextBusy if another binder currently holds it.
func (c *Context) TryBind() (uint64, error) {
	token := nextOwner()
	if !c.owner.CompareAndSwap(unboundOwner, token) {
		return 0, ErrContextBusy
	}
	return token, nil
}

// Release gives the context up. Valid only for the current owner: a stale
// or foreign token fails with ErrContextNotOwned and leaves the owner
// unchanged. Ownership is never silently transferred.
func (c *Context) Release(token uint64) error {
	if token == unboundOwner || !c.owner.CompareAndSwap(token, unboundOwner) {
		return ErrContextNotOwned
	}
	return nil
}

// Check verifies that the given token currently holds the context.
// Returns ErrNotBound while the context is released, ErrContextNotOwned
// when a different binder holds it.
func (c *Context) Check(token uint64) error {
	switch current := c.owner.Load(); {
	case current == unboundOwner:
		return ErrNotBound
	case current != token:
		return ErrContextNotOwned
	default:
		return nil
	}
}

// Bound reports whether any binder currently holds the context.
func (c *Context) Bound() bool {
	return c.owner.Load() != unboundOwner
}
