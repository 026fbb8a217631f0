package apierr

import (
	"errors"
	"fmt"
)

// Status values double as HTTP statuses for the routing layer.
const (
	StatusValidation  = 400
	StatusNotFound    = 404
	StatusConflict    = 409
	StatusTransaction = 500
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

func NewValidation(code string, err error) *Error {
	return New(StatusValidation, code, err)
}

func NewNotFound(code string, err error) *Error {
	return New(StatusNotFound, code, err)
}

// NewConflict marks a version-gate violation on a replicated update. A
// conflicting delivery must not be acknowledged.
func NewConflict(code string, err error) *Error {
	return New(StatusConflict, code, err)
}

func NewTransaction(code string, err error) *Error {
	return New(StatusTransaction, code, err)
}

func is(err error, status int) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == status
}

func IsValidation(err error) bool { return is(err, StatusValidation) }
func IsNotFound(err error) bool   { return is(err, StatusNotFound) }
func IsConflict(err error) bool   { return is(err, StatusConflict) }
