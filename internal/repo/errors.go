package repo

import (
	"errors"
	"fmt"
)

// ErrorKind tags how a backend request failed.
type ErrorKind string

const (
	// KindTransport covers connection failures and cancelled contexts.
	KindTransport ErrorKind = "transport"
	// KindStatus covers non-2xx responses.
	KindStatus ErrorKind = "status"
	// KindDecode covers malformed payloads and responses failing boundary validation.
	KindDecode ErrorKind = "decode"
)

// RequestError is the uniform failure shape of a backend call. It never carries a payload.
type RequestError struct {
	Kind       ErrorKind
	Endpoint   string
	Method     string
	Path       string
	StatusCode int
	Detail     string
	Err        error
}

func (e *RequestError) Error() string {
	switch e.Kind {
	case KindStatus:
		if e.Detail != "" {
			return fmt.Sprintf("%s %s: backend returned %d: %s", e.Method, e.Path, e.StatusCode, e.Detail)
		}
		return fmt.Sprintf("%s %s: backend returned %d", e.Method, e.Path, e.StatusCode)
	case KindDecode:
		return fmt.Sprintf("%s %s: decode response: %v", e.Method, e.Path, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

// Message is the human-readable text shown to operators.
func (e *RequestError) Message() string {
	switch e.Kind {
	case KindStatus:
		if e.Detail != "" {
			return e.Detail
		}
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	case KindDecode:
		return "unexpected response from backend"
	default:
		return "could not reach backend"
	}
}

// KindOf returns the failure kind of err, or "" when err is not a RequestError.
func KindOf(err error) ErrorKind {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind
	}
	return ""
}

// IsRequestFailure reports transport and status failures, which callers treat alike.
func IsRequestFailure(err error) bool {
	kind := KindOf(err)
	return kind == KindTransport || kind == KindStatus
}

// IsDecode reports malformed or invalid payloads.
func IsDecode(err error) bool {
	return KindOf(err) == KindDecode
}

// StatusCode returns the HTTP status of a status failure, or 0.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) && reqErr.Kind == KindStatus {
		return reqErr.StatusCode
	}
	return 0
}
