// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors, and the HTTP layer middleware
// automatically maps them to appropriate HTTP status codes.
package apperr

import (
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindInvalidInput indicates malformed input or missing mandatory fields.
	// The caller must fix the input before retrying.
	KindInvalidInput
	// KindConflict indicates an optimistic-concurrency conflict: the record
	// was modified between the caller's read and their write.
	KindConflict
	// KindNoPriorValue indicates a revert target that does not exist.
	// Non-retryable and user-visible.
	KindNoPriorValue
	// KindStorage indicates the persistence layer is unavailable.
	// Retryable with backoff.
	KindStorage
	// KindUnavailable indicates an external validator or insight provider is
	// down. Retryable; degrades enrichment, never fatal to scoring.
	KindUnavailable
	// KindInternal indicates an unexpected internal error.
	KindInternal
)

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string      // Operation that failed (optional)
	Err     error       // Underlying error (optional)
	Details interface{} // Additional details for response (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound, KindNoPriorValue:
		return http.StatusNotFound
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindStorage, KindUnavailable:
		return http.StatusServiceUnavailable
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// Retryable reports whether a caller may retry the failed operation as-is.
func (e *Error) Retryable() bool {
	return e.Kind == KindStorage || e.Kind == KindUnavailable
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp returns a copy of the error with the operation set.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// Convenience constructors for common error types.

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// InvalidInput creates an invalid input error.
func InvalidInput(message string) *Error {
	return New(KindInvalidInput, message)
}

// Conflict creates an optimistic-concurrency conflict error.
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// NoPriorValue creates an error for a revert with no prior audit entry.
func NoPriorValue(message string) *Error {
	return New(KindNoPriorValue, message)
}

// Storage creates a persistence unavailability error.
func Storage(message string, err error) *Error {
	return Wrap(KindStorage, message, err)
}

// Unavailable creates an external collaborator unavailability error.
func Unavailable(message string, err error) *Error {
	return Wrap(KindUnavailable, message, err)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// GetKind extracts the error kind from an error.
// Returns KindUnknown if the error is not an *Error.
func GetKind(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
