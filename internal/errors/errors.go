// Package errors provides the error taxonomy and exit codes of the cache warmer.
package errors

import (
	"errors"
	"fmt"
)

// Exit codes reported to the deployment pipeline.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// ErrorKind represents the phase an error belongs to.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindConfig
	KindEnumeration
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "configuration"
	case KindEnumeration:
		return "enumeration"
	default:
		return "runtime"
	}
}

// WarmerError is the base error type for fatal warmer faults.
type WarmerError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *WarmerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *WarmerError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the process exit code for this error.
// Every fatal fault maps to ExitFailure.
func (e *WarmerError) ExitCode() int {
	return ExitFailure
}

// Config creates a new configuration error.
func Config(message string) *WarmerError {
	return &WarmerError{Kind: KindConfig, Message: message}
}

// Configf creates a new configuration error with formatting.
func Configf(format string, args ...any) *WarmerError {
	return Config(fmt.Sprintf(format, args...))
}

// Enumeration wraps a record source failure.
func Enumeration(message string, cause error) *WarmerError {
	return &WarmerError{Kind: KindEnumeration, Message: message, Cause: cause}
}

// Wrap wraps an arbitrary error as a runtime error.
func Wrap(message string, cause error) *WarmerError {
	return &WarmerError{Kind: KindRuntime, Message: message, Cause: cause}
}

// IsKind reports whether err carries a WarmerError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var we *WarmerError
	if errors.As(err, &we) {
		return we.Kind == kind
	}
	return false
}

// GetExitCode returns the exit code for any error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var we *WarmerError
	if errors.As(err, &we) {
		return we.ExitCode()
	}
	return ExitFailure
}
