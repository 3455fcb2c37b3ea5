package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// InvalidPathError indicates a client-supplied path failed traversal or
	// confinement checks against the storage root
	InvalidPathError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}

	// ForbiddenError indicates authorization failure
	ForbiddenError struct {
		Message string
	}

	// PayloadTooLargeError indicates an upload exceeded the size limit
	PayloadTooLargeError struct {
		Message string
	}
)

// Error implementations
func (e *NotFoundError) Error() string        { return e.Message }
func (e *ValidationError) Error() string      { return e.Message }
func (e *InvalidPathError) Error() string     { return e.Message }
func (e *UnauthorizedError) Error() string    { return e.Message }
func (e *ForbiddenError) Error() string       { return e.Message }
func (e *PayloadTooLargeError) Error() string { return e.Message }

// StatusCode implementations (HTTPError interface)
func (e *NotFoundError) StatusCode() int        { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int      { return http.StatusBadRequest }
func (e *InvalidPathError) StatusCode() int     { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int    { return http.StatusUnauthorized }
func (e *ForbiddenError) StatusCode() int       { return http.StatusForbidden }
func (e *PayloadTooLargeError) StatusCode() int { return http.StatusRequestEntityTooLarge }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("already exists")
	ErrValidation      = errors.New("validation failed")
	ErrInvalidPath     = errors.New("invalid path")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Is implementations so errors.Is() matches typed errors against the sentinels
func (e *NotFoundError) Is(target error) bool        { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool      { return target == ErrValidation }
func (e *InvalidPathError) Is(target error) bool     { return target == ErrInvalidPath }
func (e *UnauthorizedError) Is(target error) bool    { return target == ErrUnauthorized }
func (e *ForbiddenError) Is(target error) bool       { return target == ErrForbidden }
func (e *PayloadTooLargeError) Is(target error) bool { return target == ErrPayloadTooLarge }

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (file, directory, user)
	ResourceID   int64  // ID of the existing/conflicting resource, 0 if unknown
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
