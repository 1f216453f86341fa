// Package errors provides a lightweight structured error type (PathTimerError)
// for category-based classification and retry semantics in the transport
// layer and CLI.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCategory represents the category of a PathTimer error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Wire format and broker errors
	CategoryCodec     ErrorCategory = "codec"
	CategoryTransport ErrorCategory = "transport"

	// Runtime and infrastructure errors
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// PathTimerError is a structured error with category, retryability, and context
type PathTimerError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for PathTimerError
type ContextFields map[string]any

// Error implements the error interface
func (e *PathTimerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *PathTimerError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *PathTimerError) WithContext(key string, value any) *PathTimerError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new PathTimerError
func New(category ErrorCategory, severity ErrorSeverity, message string) *PathTimerError {
	return &PathTimerError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new PathTimerError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *PathTimerError {
	return &PathTimerError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// WrapRetryable creates a new retryable PathTimerError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *PathTimerError {
	e := Wrap(err, category, severity, message)
	e.Retryable = true
	return e
}

// As returns the first PathTimerError in err's chain.
func As(err error) (*PathTimerError, bool) {
	var pte *PathTimerError
	if stdErrors.As(err, &pte) {
		return pte, true
	}
	return nil, false
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if pte, ok := As(err); ok {
		return pte.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if pte, ok := As(err); ok {
		return pte.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a PathTimerError
func GetCategory(err error) ErrorCategory {
	if pte, ok := As(err); ok {
		return pte.Category
	}
	return CategoryInternal
}
