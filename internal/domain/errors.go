// Package domain defines core types, interfaces, and errors for the task workflow service.
package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AuthenticationError indicates the caller could not be identified.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

// AccessDeniedError indicates insufficient permissions.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input. Fields carries per-field messages
// keyed by the request field name (e.g. "deadline").
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// ConflictError indicates a request that conflicts with current state,
// e.g. an invalid status transition or a duplicate role name.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// InternalError wraps an unexpected failure. The cause is kept for logging
// and never shown to callers.
type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *InternalError) Unwrap() error { return e.Cause }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnauthenticated creates an AuthenticationError with a formatted message.
func ErrUnauthenticated(format string, args ...interface{}) *AuthenticationError {
	return &AuthenticationError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrFieldValidation creates a ValidationError carrying field-level messages.
func ErrFieldValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Message: "validation failed", Fields: fields}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// IsClassified reports whether err is one of the domain error kinds.
func IsClassified(err error) bool {
	var (
		notFound     *NotFoundError
		unauth       *AuthenticationError
		accessDenied *AccessDeniedError
		validation   *ValidationError
		conflict     *ConflictError
		internal     *InternalError
	)
	return errors.As(err, &notFound) ||
		errors.As(err, &unauth) ||
		errors.As(err, &accessDenied) ||
		errors.As(err, &validation) ||
		errors.As(err, &conflict) ||
		errors.As(err, &internal)
}

// AsInternal rewraps an unclassified error as an InternalError. Classified
// errors and nil pass through unchanged.
func AsInternal(err error, message string) error {
	if err == nil || IsClassified(err) {
		return err
	}
	return &InternalError{Message: message, Cause: err}
}
