package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for categorizing errors
const (
	// ErrProviderUnavailable means device enumeration failed. Fatal at startup.
	ErrProviderUnavailable = "PROVIDER_UNAVAILABLE"
	// ErrProviderQuery means a single entity query failed. Only that entity degrades.
	ErrProviderQuery = "PROVIDER_QUERY"
	// ErrSurfaceInit means the interactive screen could not be set up.
	ErrSurfaceInit = "SURFACE_INIT"
	// ErrInput marks an invalid key sequence. These are dropped, never shown.
	ErrInput = "INPUT"
	ErrConfig = "CONFIG"
	ErrSSH    = "SSH"
)

// Error represents a structured error with code, message, suggestion, and optional cause.
// It always renders on a single line so fatal errors take exactly one line of stderr:
//
//	✗ <What failed>: <why> (<how to fix it>)
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

// Wrap wraps an existing error with a message, defaulting to ErrProviderQuery code.
func Wrap(err error, message string) *Error {
	return &Error{
		Code:    ErrProviderQuery,
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

	b.WriteString("✗ ")
	b.WriteString(e.Message)

	if e.Cause != nil {
		// Keep nested multi-line causes on one line.
		cause := strings.Join(strings.Fields(e.Cause.Error()), " ")
		b.WriteString(fmt.Sprintf(": %s", cause))
	}

	if e.Suggestion != "" {
		b.WriteString(fmt.Sprintf(" (%s)", e.Suggestion))
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
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Code == code
	}
	return false
}

// IsFatal reports whether err must abort the program rather than degrade a field.
func IsFatal(err error) bool {
	return IsCode(err, ErrProviderUnavailable) ||
		IsCode(err, ErrSurfaceInit) ||
		IsCode(err, ErrConfig)
}

// ExitError carries a process exit status for runs whose diagnostics were
// already printed (for example a one-shot fallback after a failed screen init).
type ExitError struct {
	Code int
}

// NewExitError creates an ExitError with the given status.
func NewExitError(code int) *ExitError {
	return &ExitError{Code: code}
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// GetExitCode extracts the status from an ExitError anywhere in the chain.
func GetExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}
