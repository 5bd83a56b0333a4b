package ticket

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a ticket is absent or its record cannot be parsed.
	ErrNotFound = errors.New("ticket not found")
	// ErrInvalidStatus is returned for statuses outside open, in_progress and closed.
	ErrInvalidStatus = errors.New("invalid ticket status")
	// ErrNotConfirmed is returned by deletes that were not explicitly confirmed.
	ErrNotConfirmed = errors.New("delete not confirmed")
	// ErrPersistence wraps failures to write or remove a ticket record.
	ErrPersistence = errors.New("ticket persistence failed")
)

// ValidationError reports bad input to ticket creation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
