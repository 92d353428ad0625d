// Package errors provides structured error types for Dabble.
//
// Every failure of a build is fatal: nothing is retried and the build
// context is released. Codes let the CLI and tests tell failures apart
// without matching on message text.
//
// # Error Codes
//
// Codes follow a loose naming convention:
//   - INVALID_*: input or configuration validation failures
//   - *_NOT_FOUND: missing files or handles
//   - domain codes for conditions the builder detects mid-build
//     (AMBIGUOUS_INPUT, MISSING_BUFFER, NO_CONVERTIBLE_WATER, ...)
//   - INTERNAL_ERROR: broken invariants
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidCation, "cation %q is not Na or K", c)
//	if errors.Is(err, errors.ErrCodeInvalidCation) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeFileNotFound, origErr, "load %s", path)
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
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"
	ErrCodeInvalidPath      Code = "INVALID_PATH"
	ErrCodeInvalidCation    Code = "INVALID_CATION"
	ErrCodeInvalidSelection Code = "INVALID_SELECTION"
	ErrCodeAmbiguousInput   Code = "AMBIGUOUS_INPUT"
	ErrCodeFileExists       Code = "FILE_EXISTS"

	// Build errors
	ErrCodeMissingBuffer          Code = "MISSING_BUFFER"
	ErrCodeConflictingOrientation Code = "CONFLICTING_ORIENTATION"
	ErrCodeNoConvertibleWater     Code = "NO_CONVERTIBLE_WATER"
	ErrCodeNotWaterOxygen         Code = "NOT_WATER_OXYGEN"
	ErrCodeMalformedInput         Code = "MALFORMED_INPUT"
	ErrCodeSoluteAlreadySet       Code = "SOLUTE_ALREADY_SET"

	// Resource not found errors
	ErrCodeFileNotFound  Code = "FILE_NOT_FOUND"
	ErrCodeUnknownHandle Code = "UNKNOWN_HANDLE"
	ErrCodeUnknownPreset Code = "UNKNOWN_PRESET"

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
	for errors.As(err, &e) {
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
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
		if e.Cause != nil {
			return e.Message + ": " + UserMessage(e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
