package session

import "errors"

// Internal errors - mapped to public errors in the capture package.
var (
	ErrProviderUnavailable = errors.New("capture: provider unavailable")
	ErrAlreadyOpen         = errors.New("capture: session already open")
	ErrNotOpen             = errors.New("capture: session not open")
	ErrNotBound            = errors.New("capture: context not bound")
	ErrContextBusy         = errors.New("capture: context already bound")
	ErrContextNotOwned     = errors.New("capture: context owned by another binder")
	ErrInvalidGeometry     = errors.New("capture: invalid geometry")
	ErrUnsupportedFormat   = errors.New("capture: unsupported buffer format")
	ErrSessionBusy         = errors.New("capture: session busy")
	ErrGrabFailed          = errors.New("capture: grab failed")
	ErrSinkFailed          = errors.New("capture: sink failed")
)
