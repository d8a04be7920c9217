// Package errors provides structured error types for the Kitchen dashboard.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-facing messages that can be shown verbatim on the dashboard
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes follow the failure taxonomy of the dashboard:
//   - REPOSITORY_UNAVAILABLE: the kitchen directory is missing or incomplete
//   - DATA_CORRUPT: a node, role or data bag item could not be read
//   - UNSUPPORTED_DATA_TYPE: a store was asked for an unknown kind of record
//   - RENDER_TIMEOUT / RENDER_FAILURE: the graph engine did not produce an image
//
// # Usage
//
//	err := errors.New(errors.ErrCodeRepositoryUnavailable, "Repo dir doesn't exist at '%s'", dir)
//	if errors.Is(err, errors.ErrCodeRepositoryUnavailable) {
//	    // show the message to the user
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeDataCorrupt, origErr, "could not parse %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Repository errors
	ErrCodeRepositoryUnavailable Code = "REPOSITORY_UNAVAILABLE"
	ErrCodeDataCorrupt           Code = "DATA_CORRUPT"
	ErrCodeUnsupportedDataType   Code = "UNSUPPORTED_DATA_TYPE"
	ErrCodeSyncFailure           Code = "SYNC_FAILURE"

	// Rendering errors
	ErrCodeRenderTimeout Code = "RENDER_TIMEOUT"
	ErrCodeRenderFailure Code = "RENDER_FAILURE"

	// Request errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeNotFound     Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
