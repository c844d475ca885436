package store

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every write rejected for breaking a
	// session invariant.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when an operation targets a missing id.
	ErrNotFound = errors.New("session not found")

	// ErrTransport is returned when a remote call fails (network, auth or
	// server error).
	ErrTransport = errors.New("remote store unavailable")
)

// ValidationError names the field that broke an invariant.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func notFound(id int64) error {
	return fmt.Errorf("session %d: %w", id, ErrNotFound)
}

// transport wraps err as ErrTransport unless it already carries one of the
// store error kinds.
func transport(op string, err error) error {
	if errors.Is(err, ErrTransport) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrTransport, err)
}
