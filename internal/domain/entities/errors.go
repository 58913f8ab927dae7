package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates a malformed or out-of-range request field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreUnavailable indicates the catalog store could not be reached.
	ErrStoreUnavailable = errors.New("catalog store unavailable")

	// ErrLoadAborted indicates a catalog reload stopped before completion.
	ErrLoadAborted = errors.New("catalog load aborted")

	// ErrMalformedRecord indicates a feed row that fits no record shape.
	ErrMalformedRecord = errors.New("malformed source record")

	// ErrNoActiveGeneration indicates the catalog has never been loaded.
	ErrNoActiveGeneration = errors.New("no active catalog generation")
)

// ValidationError reports the request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap allows errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// LoadAbortedError is returned when a batch insert fails during a reload.
// Inserted counts the rows written before the failure.
type LoadAbortedError struct {
	Inserted int
	Err      error
}

func (e *LoadAbortedError) Error() string {
	return fmt.Sprintf("catalog load aborted after %d rows: %v", e.Inserted, e.Err)
}

// Unwrap returns both the sentinel and the cause.
func (e *LoadAbortedError) Unwrap() []error {
	return []error{ErrLoadAborted, e.Err}
}
