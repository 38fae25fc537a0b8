package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	ErrConfig   = "CONFIG"
	ErrSSH      = "SSH"
	ErrNetwork  = "NETWORK"
	ErrAuth     = "AUTH"
	ErrExec     = "EXEC"
	ErrParse    = "PARSE"
	ErrTerminal = "TERMINAL"
)

// Process exit codes returned by the CLI.
const (
	ExitOK       = 0
	ExitGeneric  = 1
	ExitConfig   = 2
	ExitAuth     = 3
	ExitNetwork  = 4
	ExitTerminal = 5
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// Rendered as:
//
//	✗ <What failed>
//
//	  <Why it failed - technical details>
//
//	  <How to fix it - actionable steps>
type Error struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// New creates a new structured error with the given code, message, and suggestion.
func New(code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
	}
}

// Wrap wraps an existing error with a message, defaulting to ErrSSH code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrSSH,
		Message: message,
		Cause:   err,
	}
}

// WrapWithCode wraps an existing error with a specific code, message, and suggestion.
func WrapWithCode(err error, code, message, suggestion string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		Cause:      err,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("✗ %s\n", e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Cause.Error()))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf("\n  %s\n", e.Suggestion))
	}

	return b.String()
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsCode checks if an error is a structured Error with the given code.
func IsCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var rmErr *Error
	if errors.As(err, &rmErr) {
		return rmErr.Code == code
	}
	return false
}

// ExitCode maps an error to the process exit code.
// The outermost structured error decides; unstructured errors exit 1.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var rmErr *Error
	if !errors.As(err, &rmErr) {
		return ExitGeneric
	}
	switch rmErr.Code {
	case ErrConfig:
		return ExitConfig
	case ErrAuth:
		return ExitAuth
	case ErrNetwork, ErrSSH:
		return ExitNetwork
	case ErrTerminal:
		return ExitTerminal
	default:
		return ExitGeneric
	}
}
