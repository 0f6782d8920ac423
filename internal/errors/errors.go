// Package errors provides error handling utilities.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeMalformedOverridePath indicates an override path that cannot be
	// parsed or applied to the pricing document
	TypeMalformedOverridePath Type = "MALFORMED_OVERRIDE_PATH"

	// TypeInvalidOverrideValue indicates an override value the pricing
	// schema cannot absorb at the targeted path
	TypeInvalidOverrideValue Type = "INVALID_OVERRIDE_VALUE"

	// TypeInvalidQuantity indicates an unparseable usage quantity
	TypeInvalidQuantity Type = "INVALID_QUANTITY"

	// TypeNoTierAvailable indicates tier selection found no usable tier
	TypeNoTierAvailable Type = "NO_TIER_AVAILABLE"

	// TypeValidation indicates a structural validation failure
	TypeValidation Type = "VALIDATION_ERROR"

	// TypeParsing indicates a parsing error
	TypeParsing Type = "PARSING_ERROR"

	// TypeConfig indicates a configuration error
	TypeConfig Type = "CONFIG_ERROR"

	// TypeStorage indicates a snapshot archive or collection storage error
	TypeStorage Type = "STORAGE_ERROR"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"

	// TypeNotFound indicates a resource not found error
	TypeNotFound Type = "NOT_FOUND"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *Error) Is(t Type) bool {
	return e.Type == t
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(errType Type, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, t Type) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// As unwraps err looking for a target error type, mirroring the
// standard library so callers need not import both packages
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// MalformedPath creates a malformed override path error. The path and
// scope identify the offending override so composition can report it
// while continuing with the remaining overrides.
func MalformedPath(path, scope string, cause error) *Error {
	return Wrapf(TypeMalformedOverridePath, cause, "override path %q cannot be applied", path).
		WithContext("path", path).
		WithContext("scope", scope)
}

// InvalidValue creates an invalid override value error
func InvalidValue(path, scope string, cause error) *Error {
	return Wrapf(TypeInvalidOverrideValue, cause, "override value at %q does not fit the pricing schema", path).
		WithContext("path", path).
		WithContext("scope", scope)
}

// InvalidQuantity creates an invalid quantity error naming the raw
// string and the usage dimension it was supplied for
func InvalidQuantity(dimension, raw string, cause error) *Error {
	return Wrapf(TypeInvalidQuantity, cause, "quantity %q for %s cannot be parsed", raw, dimension).
		WithContext("dimension", dimension).
		WithContext("raw", raw)
}

// NoTier creates a no-tier-available error for a provider
func NoTier(provider string) *Error {
	return Newf(TypeNoTierAvailable, "provider %s publishes no tiers", provider).
		WithContext("provider", provider)
}

// Validation creates a structural validation error
func Validation(message string) *Error {
	return New(TypeValidation, message)
}

// Parsing creates a parsing error
func Parsing(message string, cause error) *Error {
	return Wrap(TypeParsing, message, cause)
}

// Config creates a configuration error
func Config(message string, cause error) *Error {
	return Wrap(TypeConfig, message, cause)
}

// Storage creates a storage error
func Storage(message string, cause error) *Error {
	return Wrap(TypeStorage, message, cause)
}

// NotFound creates a not found error
func NotFound(resourceType, identifier string) *Error {
	return Newf(TypeNotFound, "%s not found: %s", resourceType, identifier)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}
