// Package apperror defines the stable error taxonomy surfaced on the wire.
//
// Orchestrators and stores classify failures into one of the codes below;
// the HTTP layer maps each code to a status and a {"detail": ...} body.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error class with a stable wire-level name.
type Code string

const (
	CodeValidation Code = "validation_error"
	CodeNotFound   Code = "not_found"
	CodeConflict   Code = "conflict"
	CodeProvider   Code = "provider_error"
	CodeKube       Code = "kube_error"
	CodeHelm       Code = "helm_error"
	CodeInternal   Code = "internal_error"
)

// Error carries a taxonomy code alongside the underlying cause.
type Error struct {
	Code   Code
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error with the given code and detail message.
func New(code Code, detail string) *Error {
	return &Error{Code: code, Detail: detail}
}

// Newf creates an Error with a formatted detail message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches a taxonomy code to an existing error.
func Wrap(code Code, detail string, err error) *Error {
	return &Error{Code: code, Detail: detail, Err: err}
}

// CodeOf extracts the taxonomy code from an error chain.
// Unclassified errors are internal errors.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// DetailOf extracts the human-readable detail from an error chain.
func DetailOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Detail
	}
	return err.Error()
}

// HTTPStatus maps a taxonomy code to its HTTP status code.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeProvider, CodeKube, CodeHelm:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsNotFound reports whether the error chain carries the not_found code.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsConflict reports whether the error chain carries the conflict code.
func IsConflict(err error) bool {
	return CodeOf(err) == CodeConflict
}

// IsValidation reports whether the error chain carries the validation_error code.
func IsValidation(err error) bool {
	return CodeOf(err) == CodeValidation
}
