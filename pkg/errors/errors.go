// Package errors provides structured error types for the repowizard application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, TUI, and HTTP surfaces
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages for dialogs
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes map to setup failure categories: invalid inputs, acquisition
// failures (archive, clone), and dependency-install outcomes. Two codes
// are warnings rather than aborts: DEP_MANAGER_MISSING and
// DEP_INSTALL_FAILED never fail a setup whose acquisition succeeded.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidSource, "source folder does not exist: %s", path)
//	if errors.Is(err, errors.ErrCodeInvalidSource) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeArchive, origErr, "extract %s", name)
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
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidSource Code = "INVALID_SOURCE"
	ErrCodeInvalidTarget Code = "INVALID_TARGET"

	// Acquisition errors
	ErrCodeArchive      Code = "ARCHIVE_ERROR"
	ErrCodeClone        Code = "CLONE_ERROR"
	ErrCodeCloneTimeout Code = "CLONE_TIMEOUT"

	// Dependency-install outcomes (non-fatal to the overall setup)
	ErrCodeManagerMissing Code = "DEP_MANAGER_MISSING"
	ErrCodeInstallFailed  Code = "DEP_INSTALL_FAILED"

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

// Warning reports whether err is one of the non-fatal dependency codes.
// Warnings are reported in the result but never abort a setup.
func Warning(err error) bool {
	switch GetCode(err) {
	case ErrCodeManagerMissing, ErrCodeInstallFailed:
		return true
	}
	return false
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
