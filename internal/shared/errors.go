package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates the operation clashes with current state.
	ErrConflict = errors.New("conflict with current state")
)

// ValidationError reports invalid user input caught before any store call.
type ValidationError struct {
	Reason string
}

// NewValidationError builds a ValidationError with the given reason.
func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// PersistenceError wraps a failed read or write against the record store.
// It is surfaced to the caller and never retried automatically.
type PersistenceError struct {
	Op  string
	Err error
}

// NewPersistenceError wraps err with the failing operation name.
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistence reports whether err is a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// UserSafeMessage converts an error into text safe to show to end users.
func UserSafeMessage(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Reason
	}
	if errors.Is(err, ErrNotFound) {
		return "The requested record was not found."
	}
	if errors.Is(err, ErrConflict) {
		return "The operation conflicts with the current state of the record."
	}
	if IsPersistence(err) {
		return "The record store is unavailable. Please try again."
	}
	return "An unexpected error occurred."
}
