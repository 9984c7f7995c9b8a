package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for control-protocol failures. Callers match these with
// errors.Is; the typed wrappers below carry the detail.
var (
	// ErrInvalidState is returned when a control operation (start, pause,
	// resume, cancel) is issued against a job whose current state does not
	// permit it. The job is left unchanged.
	ErrInvalidState = errors.New("job state does not permit operation")

	// ErrValidation is returned when a job creation request is malformed.
	// No job state is created.
	ErrValidation = errors.New("invalid job request")

	// ErrEngineFault marks an internal inconsistency (a bug, not a business
	// outcome), e.g. a terminal item observed without terminal metadata.
	ErrEngineFault = errors.New("engine fault")
)

// ValidationError reports a malformed job creation request.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid job request: %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidStateError reports a control operation issued in the wrong job
// state.
type InvalidStateError struct {
	Op    string
	State JobState
}

// Error implements the error interface.
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s job in state %s", e.Op, e.State)
}

// Unwrap lets errors.Is(err, ErrInvalidState) match.
func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// faultf builds an ErrEngineFault-wrapped error for internal inconsistencies.
func faultf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrEngineFault, fmt.Sprintf(format, args...))
}
