package web

import (
	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific request field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ErrorResponse is the form used for API responses from failures in the API.
type ErrorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
	Status bool         `json:"status"`
}

// Error is used to pass an error during the request through the
// application with web specific context.
type Error struct {
	Err    error
	Status int
	Fields []FieldError
}

// NewRequestError wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewRequestError(err error, status int) error {
	return &Error{Err: err, Status: status}
}

// NewFieldsError reports invalid request fields with the given status.
func NewFieldsError(err error, status int, fields []FieldError) error {
	return &Error{Err: err, Status: status, Fields: fields}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not a
// web error.
func StatusOf(err error) int {
	var webErr *Error
	if asError(err, &webErr) {
		return webErr.Status
	}
	return 0
}

func asError(err error, target **Error) bool {
	return errors.As(err, target)
}
