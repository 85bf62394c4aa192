package errors

import (
	"errors"
	"fmt"
)

// Generic error classes

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid input parameters (caller's fault)
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a dependency is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// Analysis input errors. All of them wrap ErrInvalidInput so callers can map
// them to a 4xx-class response with a single check.

var (
	// ErrInsufficientBars indicates the series is shorter than the minimum
	ErrInsufficientBars = fmt.Errorf("%w: insufficient bars", ErrInvalidInput)

	// ErrNonMonotonic indicates timestamps are not strictly increasing
	ErrNonMonotonic = fmt.Errorf("%w: timestamps not strictly increasing", ErrInvalidInput)

	// ErrNonPositivePrice indicates an OHLC value <= 0
	ErrNonPositivePrice = fmt.Errorf("%w: non-positive price", ErrInvalidInput)

	// ErrNegativeVolume indicates a bar with volume < 0
	ErrNegativeVolume = fmt.Errorf("%w: negative volume", ErrInvalidInput)

	// ErrMissingSymbol indicates the request carries no symbol
	ErrMissingSymbol = fmt.Errorf("%w: symbol is required", ErrInvalidInput)
)

// DomainError wraps an error with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error with field-specific details.
// It unwraps to the error class it was raised for.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
	Err     error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap returns the error class
func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidInput
	}
	return e.Err
}

// NewValidationError creates a new validation error of the given class
func NewValidationError(class error, field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
		Err:     class,
	}
}

// IsInputError reports whether err was caused by bad caller input
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
