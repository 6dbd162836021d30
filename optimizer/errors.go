package optimizer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest indicates a request that failed Validate.
	ErrInvalidRequest = errors.New("invalid optimizer request")

	// ErrUnavailable indicates the backend could not be reached or started,
	// for example a missing interpreter or an unreachable server.
	ErrUnavailable = errors.New("optimizer unavailable")

	// ErrRejected indicates the backend refused the inputs.
	ErrRejected = errors.New("optimizer rejected request")

	// ErrFailed indicates the backend accepted the request but failed while
	// running it, or returned something that could not be decoded.
	ErrFailed = errors.New("optimizer failed")
)

// Error is the failure reported by an optimizer backend.
type Error struct {
	// Op is the operation that failed.
	Op Op

	// Backend names the backend (e.g. "cotengra", "remote").
	Backend string

	// Err is one of ErrUnavailable, ErrRejected or ErrFailed, or an error
	// wrapping one of them.
	Err error

	// Detail carries the backend's own description of the failure.
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := "optimizer"
	if e.Backend != "" {
		prefix += " " + e.Backend
	}
	if e.Op != "" {
		prefix += " " + string(e.Op)
	}
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", prefix, e.Err, e.Detail)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}
