package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation = "validation_error"
	CodeNotFound   = "not_found"
	CodeConflict   = "conflict"
	CodeUpdate     = "update_error"
	CodeInternal   = "internal_error"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Validation marks malformed, missing or mistyped request fields.
func Validation(format string, args ...any) *Error {
	return New(http.StatusBadRequest, CodeValidation, fmt.Errorf(format, args...))
}

// NotFound marks an unknown user or uninitialized model parameters.
func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf(format, args...))
}

// Conflict marks a duplicate (user_id, decision_idx) or duplicate user.
// The wire contract reports duplicates as 400; the code field carries the
// distinction from plain validation failures.
func Conflict(format string, args ...any) *Error {
	return New(http.StatusBadRequest, CodeConflict, fmt.Errorf(format, args...))
}

// Update marks a failed model refit. It never reaches an HTTP caller
// directly; the orchestrator records it on the update request row.
func Update(err error) *Error {
	return New(http.StatusInternalServerError, CodeUpdate, err)
}

// Internal wraps unexpected store or algorithm failures.
func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodeInternal, err)
}

// StatusOf resolves the HTTP status for any error, defaulting to 500 so a
// raw error never picks up a misleading client-error code.
func StatusOf(err error) (status int, code string) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status, ae.Code
	}
	return http.StatusInternalServerError, CodeInternal
}

func IsCode(err error, code string) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
