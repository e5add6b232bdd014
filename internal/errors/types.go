// Package errors provides the structured error type shared by shelfsearch
// packages. Errors carry a category, a stable code and optional context so
// that the CLI and the WebSocket transport can report them consistently.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeSource     ErrorType = "source"
	ErrorTypeTransport  ErrorType = "transport"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Error is a structured error type with context.
type Error struct {
	Type      ErrorType
	Code      string
	Message   string
	Cause     error
	Context   map[string]interface{}
	Component string
	Path      string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	parts = append(parts, e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		kv := make([]string, 0, len(keys))
		for _, k := range keys {
			kv = append(kv, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, "("+strings.Join(kv, ", ")+")")
	}

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same type and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath records the file the error relates to.
func (e *Error) WithPath(path string) *Error {
	e.Path = path

	return e
}

// WithComponent adds component context.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component

	return e
}

// Common error codes.
const (
	ErrCodeInvalidArgument   = "ERR_INVALID_ARGUMENT"
	ErrCodeSourceUnsupported = "ERR_SOURCE_UNSUPPORTED"
	ErrCodeSourceRead        = "ERR_SOURCE_READ"
	ErrCodeTableNotFound     = "ERR_TABLE_NOT_FOUND"
	ErrCodeColumnNotFound    = "ERR_COLUMN_NOT_FOUND"
	ErrCodeConfigInvalid     = "ERR_CONFIG_INVALID"
	ErrCodeFileNotFound      = "ERR_FILE_NOT_FOUND"
	ErrCodeInvalidOrigin     = "ERR_INVALID_ORIGIN"
	ErrCodeInvalidMessage    = "ERR_INVALID_MESSAGE"
	ErrCodeInternalError     = "ERR_INTERNAL"
)

// NewInvalidArgument creates the error returned when a caller passes a value
// that can never be valid, such as a negative debounce delay.
func NewInvalidArgument(message string) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeInvalidArgument,
		Message: message,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewSourceError creates an error for a row source that could not be read.
func NewSourceError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeSource,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewTransportError creates a transport error.
func NewTransportError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeTransport,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *Error {
	return &Error{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}

	return false
}

// IsInvalidArgument checks if an error rejects an argument.
func IsInvalidArgument(err error) bool {
	return HasCode(err, ErrCodeInvalidArgument)
}

// IsSourceError checks if an error comes from a row source.
func IsSourceError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == ErrorTypeSource
	}

	return false
}

// IsConfigError checks if an error is configuration-related.
func IsConfigError(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == ErrorTypeConfig
	}

	return false
}

// ErrTableNotFound creates the error for a missing database table.
func ErrTableNotFound(table string) *Error {
	return NewSourceError(ErrCodeTableNotFound, "table not found: "+table, nil).
		WithContext("table", table)
}

// ErrColumnNotFound creates the error for a requested column absent from the header.
func ErrColumnNotFound(column string) *Error {
	return NewValidationError(ErrCodeColumnNotFound, "column not found: "+column).
		WithContext("column", column)
}

// ErrInvalidOrigin creates an invalid origin error.
func ErrInvalidOrigin(origin string) *Error {
	return NewTransportError(ErrCodeInvalidOrigin, "invalid origin: "+origin, nil)
}
