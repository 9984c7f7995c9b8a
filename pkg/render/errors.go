package render

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a render failure. The engine records the kind on the
// failed item so callers can tell a broken template from a transient IO
// problem without parsing message strings.
type ErrorKind string

const (
	// KindTemplate indicates the template was missing, malformed, or
	// incompatible with the document data.
	KindTemplate ErrorKind = "template"

	// KindData indicates the document data failed renderer-side validation.
	KindData ErrorKind = "data"

	// KindIO indicates the renderer could not read inputs or write the
	// artifact.
	KindIO ErrorKind = "io"

	// KindTimeout indicates the render exceeded its per-item deadline.
	KindTimeout ErrorKind = "timeout"

	// KindInternal is the fallback for unclassified renderer failures.
	KindInternal ErrorKind = "internal"
)

// IsValid checks if the ErrorKind is one of the defined kinds.
func (k ErrorKind) IsValid() bool {
	switch k {
	case KindTemplate, KindData, KindIO, KindTimeout, KindInternal:
		return true
	default:
		return false
	}
}

// Error is a typed render failure. Renderers should return *Error so the
// engine can preserve the classification; anything else is classified as
// KindInternal (or KindTimeout when it wraps a deadline error).
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render %s error: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("render %s error: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds a typed render error.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError builds a typed render error around an underlying cause.
func WrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Classify maps an arbitrary renderer error to an ErrorKind.
//
// Typed *Error values keep their kind; context deadline errors become
// KindTimeout; everything else is KindInternal.
func Classify(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) && re.Kind.IsValid() {
		return re.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}
