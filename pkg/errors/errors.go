// Package errors provides structured error types for the etf toolkit.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across library packages and the CLI
//   - Machine-readable error codes for programmatic handling
//   - Distinct process exit statuses per failure class
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The codes that matter to callers of the core engine are:
//   - TAXONOMY_LOAD: the reference metadata is corrupt (fatal)
//   - SECTOR_NOT_FOUND: a sector query resolved to nothing (recoverable)
//   - UNKNOWN_RULE: a fix rule name is not registered (recoverable)
//   - MALFORMED_DATA: a data file violates taxonomy conformance
//
// # Usage
//
//	err := errors.New(errors.ErrCodeSectorNotFound, "no sector matches %q", query)
//	if errors.Is(err, errors.ErrCodeSectorNotFound) {
//	    // list candidates, exit non-zero
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeTaxonomyLoad, origErr, "decode %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Core engine errors
	ErrCodeTaxonomyLoad   Code = "TAXONOMY_LOAD"
	ErrCodeSectorNotFound Code = "SECTOR_NOT_FOUND"
	ErrCodeUnknownRule    Code = "UNKNOWN_RULE"
	ErrCodeMalformedData  Code = "MALFORMED_DATA"

	// Input errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Exit statuses returned by the etf binary.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitNotFound    = 2
	ExitMalformed   = 3
	ExitInternal    = 4
	ExitInterrupted = 130
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
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}

// ExitCode maps an error to the process exit status.
// Unresolved sectors and rules share ExitNotFound; malformed input files
// get ExitMalformed; metadata and internal failures get ExitInternal.
// A missing input file is a plain failure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch GetCode(err) {
	case ErrCodeSectorNotFound, ErrCodeUnknownRule:
		return ExitNotFound
	case ErrCodeMalformedData, ErrCodeInvalidInput:
		return ExitMalformed
	case ErrCodeTaxonomyLoad, ErrCodeInternal:
		return ExitInternal
	}
	return ExitFailure
}

// TaxonomyLoad wraps a failure to build the reference taxonomy.
func TaxonomyLoad(cause error, format string, args ...any) *Error {
	return Wrap(ErrCodeTaxonomyLoad, cause, format, args...)
}

// SectorNotFound reports a sector query without any matching taxonomy node.
func SectorNotFound(query string) *Error {
	return New(ErrCodeSectorNotFound, "no sector matches %q", query)
}

// UnknownRule reports a fix rule name that is not registered.
func UnknownRule(name string, known []string) *Error {
	return New(ErrCodeUnknownRule, "unknown rule %q (known: %v)", name, known)
}

// MalformedData reports a data file that does not conform to the taxonomy.
// path is the JSON path of the offending object, if known.
func MalformedData(path, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if path != "" {
		msg = fmt.Sprintf("%s at %s", msg, path)
	}
	return &Error{Code: ErrCodeMalformedData, Message: msg}
}
