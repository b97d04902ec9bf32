// Package apperror classifies failures so handlers can map them to HTTP
// statuses without inspecting repository internals.
package apperror

import (
	"errors"
	"fmt"
)

// Code is a semantic classification shared across layers.
type Code string

const (
	CodeNotFound     Code = "NOT_FOUND"
	CodeValidation   Code = "VALIDATION"
	CodeConflict     Code = "CONFLICT"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeStore        Code = "STORE"
)

// Error is a coded application error. Details carries machine-readable
// context such as the list of invalid tag ids on a validation failure.
type Error struct {
	Code    Code
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a classification to an underlying error.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// NotFound masks ownership mismatches: a row owned by someone else reads
// the same as a row that does not exist.
func NotFound(resource string) *Error {
	return &Error{Code: CodeNotFound, Message: resource + " not found"}
}

func Validation(message string, details ...string) *Error {
	return &Error{Code: CodeValidation, Message: message, Details: details}
}

func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeStore for
// unclassified failures.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeStore
}
