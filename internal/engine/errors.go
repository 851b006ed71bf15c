package engine

import "errors"

var (
	// ErrInvalid marks a malformed or incomplete request, detected
	// before any adapter is consulted.
	ErrInvalid = errors.New("invalid request")

	// ErrNotImplemented marks a request no adapter could satisfy:
	// every adapter passed on a routed call, or no adapter provides
	// channels at all. Distinct from an empty result, which is
	// success.
	ErrNotImplemented = errors.New("not implemented")

	// ErrAdapter marks an explicit failure from the adapter that
	// claimed a routed call.
	ErrAdapter = errors.New("adapter failure")
)

// AdapterError wraps the failure an adapter reported, keeping which
// adapter claimed the call.
type AdapterError struct {
	AdapterID string
	Err       error
}

func (e *AdapterError) Error() string {
	if e.Err == nil {
		return "adapter " + e.AdapterID + " failed"
	}
	return "adapter " + e.AdapterID + ": " + e.Err.Error()
}

func (e *AdapterError) Is(target error) bool {
	return target == ErrAdapter
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
