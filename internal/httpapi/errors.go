package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/portmail/portmail/internal/jobs"
	"github.com/portmail/portmail/pkg/storage"
)

// Error is an HTTP error with everything needed to render it.
type Error struct {
	// Err is the underlying cause. It is logged, never sent to the client.
	Err error

	// Message is the client-facing message.
	Message string

	// Code is a stable machine-readable error code.
	Code string

	// Details carries optional structured data such as field errors.
	Details any

	Status int
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) StatusCode() int {
	return e.Status
}

// ErrorOption configures an Error.
type ErrorOption func(*Error)

func WithDetails(details any) ErrorOption {
	return func(e *Error) {
		e.Details = details
	}
}

func WithCause(err error) ErrorOption {
	return func(e *Error) {
		e.Err = err
	}
}

// NewError creates an Error with the given status, code and message.
func NewError(status int, code, message string, opts ...ErrorOption) *Error {
	e := &Error{Status: status, Code: code, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func ErrBadRequest(message string, opts ...ErrorOption) *Error {
	return NewError(http.StatusBadRequest, "bad_request", message, opts...)
}

func ErrUnauthorized(message string, opts ...ErrorOption) *Error {
	return NewError(http.StatusUnauthorized, "unauthorized", message, opts...)
}

func ErrNotFound(message string, opts ...ErrorOption) *Error {
	return NewError(http.StatusNotFound, "not_found", message, opts...)
}

func ErrConflict(message string, opts ...ErrorOption) *Error {
	return NewError(http.StatusConflict, "conflict", message, opts...)
}

func ErrUnprocessable(message string, opts ...ErrorOption) *Error {
	return NewError(http.StatusUnprocessableEntity, "validation_failed", message, opts...)
}

func ErrTooLarge(message string, opts ...ErrorOption) *Error {
	return NewError(http.StatusRequestEntityTooLarge, "too_large", message, opts...)
}

func ErrInternal(message string, opts ...ErrorOption) *Error {
	return NewError(http.StatusInternalServerError, "internal", message, opts...)
}

// asHTTPError maps domain errors to HTTP errors. Unknown errors become 500.
func asHTTPError(err error) *Error {
	var httpErr *Error
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var verr *jobs.ValidationError
	if errors.As(err, &verr) {
		return ErrUnprocessable("validation failed", WithDetails(verr.Fields), WithCause(err))
	}

	var fverr *storage.FileValidationError
	if errors.As(err, &fverr) {
		return ErrUnprocessable(fverr.Error(), WithCause(err))
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(http.StatusGatewayTimeout, "timeout", "request timed out", WithCause(err))
	case errors.Is(err, jobs.ErrNotFound):
		return ErrNotFound("job not found", WithCause(err))
	case errors.Is(err, jobs.ErrInvalidState):
		return ErrConflict("job is not in a state that allows this action", WithCause(err))
	case errors.Is(err, jobs.ErrInvalidInput):
		return ErrBadRequest("invalid input", WithCause(err))
	case errors.Is(err, storage.ErrTooLarge):
		return ErrTooLarge("file is too large", WithCause(err))
	case errors.Is(err, storage.ErrEmptyFile):
		return ErrBadRequest("file is empty", WithCause(err))
	default:
		return ErrInternal("internal server error", WithCause(err))
	}
}
