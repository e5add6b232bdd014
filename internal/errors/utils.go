package errors

import (
	"errors"
)

// Wrap wraps an error with additional context. If err is already an *Error its
// component, path and context carry over to the wrapper.
func Wrap(err error, errType ErrorType, code, message string) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return &Error{
			Type:      errType,
			Code:      code,
			Message:   message,
			Cause:     err,
			Context:   e.Context,
			Component: e.Component,
			Path:      e.Path,
		}
	}

	return &Error{
		Type:    errType,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapSource wraps an error as a source read error for path.
func WrapSource(err error, path, message string) *Error {
	wrapped := Wrap(err, ErrorTypeSource, ErrCodeSourceRead, message)
	if wrapped != nil && path != "" {
		wrapped.Path = path
	}
	return wrapped
}

// WrapIO wraps an error as an I/O error.
func WrapIO(err error, code, message string) *Error {
	return Wrap(err, ErrorTypeIO, code, message)
}

// WrapConfig wraps an error as a configuration error.
func WrapConfig(err error, message string) *Error {
	return Wrap(err, ErrorTypeConfig, ErrCodeConfigInvalid, message)
}

// WrapTransport wraps an error as a transport error.
func WrapTransport(err error, code, message string) *Error {
	return Wrap(err, ErrorTypeTransport, code, message)
}

// Code returns the code of the outermost *Error in err's chain, or "".
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
