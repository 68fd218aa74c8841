// Package errors provides structured error types for the Packhouse application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Session-command failures carry one of the state-machine codes
// (STATE_REQUIRED, HASH_MISMATCH, NO_CHANGES), parameter failures one of
// the validation codes (MISSING_FIELD, WRONG_TYPE, INVALID_INPUT), and
// lookups one of the not-found codes. The calling layer maps codes to
// exact user-facing messages and HTTP statuses.
//
// # Usage
//
//	err := errors.New(errors.ErrCodePackNotFound, "unknown pack: %s", name)
//	if errors.Is(err, errors.ErrCodePackNotFound) {
//	    // Handle missing pack
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeStore, origErr, "load session %s", key)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeMissingField    Code = "MISSING_FIELD"
	ErrCodeWrongType       Code = "WRONG_TYPE"
	ErrCodeInvalidManifest Code = "INVALID_MANIFEST"
	ErrCodeInvalidCommand  Code = "INVALID_COMMAND"

	// Session state-machine errors
	ErrCodeStateRequired Code = "STATE_REQUIRED"
	ErrCodeHashMismatch  Code = "HASH_MISMATCH"
	ErrCodeNoChanges     Code = "NO_CHANGES"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodePackNotFound Code = "PACK_NOT_FOUND"
	ErrCodePageNotFound Code = "PAGE_NOT_FOUND"

	// Infrastructure errors
	ErrCodeStore    Code = "STORE_ERROR"
	ErrCodeExecutor Code = "EXECUTOR_ERROR"
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
