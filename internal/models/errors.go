package models

import (
	"errors"
	"fmt"
)

// Sentinel error kinds surfaced by the engine. Constructors below wrap them
// so callers can match with errors.Is while keeping a descriptive message.
var (
	ErrNotFound  = errors.New("not found")
	ErrInvalid   = errors.New("invalid")
	ErrConflict  = errors.New("conflict")
	ErrUpstream  = errors.New("upstream failure")
	ErrCancelled = errors.New("cancelled")
)

// NewNotFoundError reports a missing tenant, entity, or edge.
func NewNotFoundError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// NewInvalidError reports rejected input: self-loops, duplicate edges,
// unknown enum values, parameters out of range.
func NewInvalidError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// NewConflictError reports a per-tenant uniqueness violation.
func NewConflictError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// NewUpstreamError wraps a store failure. Both ErrUpstream and the original
// cause remain matchable through the error chain.
func NewUpstreamError(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, cause)
}

// NewCancelledError reports cooperative cancellation, keeping the context
// error in the chain.
func NewCancelledError(op string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrCancelled, op)
	}
	return fmt.Errorf("%w: %s: %w", ErrCancelled, op, cause)
}

// IsNotFound reports whether err carries the not-found kind.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalid reports whether err carries the invalid-input kind.
func IsInvalid(err error) bool { return errors.Is(err, ErrInvalid) }

// IsConflict reports whether err carries the conflict kind.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsUpstream reports whether err carries the upstream-failure kind.
func IsUpstream(err error) bool { return errors.Is(err, ErrUpstream) }

// IsCancelled reports whether err carries the cancellation kind.
func IsCancelled(err error) bool { return errors.Is(err, ErrCancelled) }
