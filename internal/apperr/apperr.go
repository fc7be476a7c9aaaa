// Package apperr defines the error taxonomy returned by services and
// rendered by the HTTP error handler.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the HTTP layer.
type Kind int

const (
	KindPersistence Kind = iota
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
)

// Error is a classified application error. Message is safe to show to
// clients; Details and Err are diagnostics for logs and debug mode.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WithDetails returns a copy of e carrying a diagnostic string.
func (e *Error) WithDetails(details string) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Validation is a 400: the request itself is malformed.
func Validation(msg string) *Error {
	return newError(KindValidation, msg)
}

func Unauthenticated(msg string) *Error {
	return newError(KindAuthentication, msg)
}

func Forbidden(msg string) *Error {
	return newError(KindAuthorization, msg)
}

func NotFound(msg string) *Error {
	return newError(KindNotFound, msg)
}

func Conflict(msg string) *Error {
	return newError(KindConflict, msg)
}

// Persistence wraps a storage failure behind a generic client message.
func Persistence(err error) *Error {
	return &Error{Kind: KindPersistence, Message: "Something went wrong on the server.", Err: err}
}

// Validationf formats a validation message.
func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
