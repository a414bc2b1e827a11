package utils

import (
	"errors"
	"fmt"
)

// AppError wraps an operation, a human-facing message and the underlying error.
// Field names the offending form field for validation failures, if any.
type AppError struct {
	Op    string
	Field string
	Msg   string
	Err   error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// NewFieldError constructs an AppError blaming a single form field.
func NewFieldError(op, field, msg string, err error) error {
	return &AppError{Op: op, Field: field, Msg: msg, Err: err}
}

// UserMessage returns the text shown in an inline error banner.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Msg != "" {
		return appErr.Msg
	}
	return err.Error()
}
