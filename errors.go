package tensorpath

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ErrInvalidConfig indicates a Client option or constructor argument that
// cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// Error kinds categorize errors returned by Client.
const (
	// KindValidation marks malformed paths and networks supplied by the
	// caller.
	KindValidation = "validation"

	// KindNotFound marks identifiers with no dimension entry.
	KindNotFound = "not_found"

	// KindConfiguration marks invalid Client configuration.
	KindConfiguration = "configuration"

	// KindInternal marks results from the optimizer that are not a valid
	// path for the submitted network.
	KindInternal = "internal"
)

// Error wraps a codec or normalizer failure with the Client operation that
// hit it. Failures reported by the optimizer are returned unwrapped.
//
// Example:
//
//	_, err := client.FromPath(ctx, net, p, path.SlotReuse)
//	if errors.Is(err, path.ErrMalformed) {
//		// the caller's path was rejected before reaching the optimizer
//	}
type Error struct {
	// Op is the Client operation (e.g. "Client.FromPath").
	Op string

	// Kind is one of the Kind constants.
	Kind string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("tensorpath: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("tensorpath: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by Kind, and by Op when the target sets one.
// Other targets are compared against the underlying error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Kind != "" && e.Kind == t.Kind && (t.Op == "" || e.Op == t.Op)
	}
	return false
}

// NewValidationError returns an Error with KindValidation.
func NewValidationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindValidation, Err: err}
}

// NewNotFoundError returns an Error with KindNotFound.
func NewNotFoundError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindNotFound, Err: err}
}

// NewConfigurationError returns an Error with KindConfiguration.
func NewConfigurationError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindConfiguration, Err: err}
}

// NewInternalError returns an Error with KindInternal.
func NewInternalError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindInternal, Err: err}
}

// CloseWithLog closes closer and logs a failure at warn level. name
// describes the resource. A nil logger uses slog.Default().
//
//	defer tensorpath.CloseWithLog(conn, logger, "optimizer connection")
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
