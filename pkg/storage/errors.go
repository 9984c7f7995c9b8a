package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by storage backends.
var (
	// ErrClosed is returned when operating on a closed backend.
	ErrClosed = errors.New("storage backend is closed")

	// ErrNotSupported is returned for operations the backend does not
	// implement (e.g., analytics on the local backend).
	ErrNotSupported = errors.New("operation not supported by this backend")
)

// NotFoundError indicates a requested resource does not exist.
type NotFoundError struct {
	Resource string // "job", "artifact", ...
	ID       string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// AlreadyExistsError indicates a create collided with an existing resource.
type AlreadyExistsError struct {
	Resource string
	ID       string
}

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Resource, e.ID)
}

// NewAlreadyExistsError creates an AlreadyExistsError.
func NewAlreadyExistsError(resource, id string) *AlreadyExistsError {
	return &AlreadyExistsError{Resource: resource, ID: id}
}

// InvalidInputError indicates a malformed argument to a storage operation.
type InvalidInputError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewInvalidInputError creates an InvalidInputError.
func NewInvalidInputError(field, reason string) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: reason}
}
