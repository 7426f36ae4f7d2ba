package httpx

import (
	"errors"
	"fmt"
)

// ErrorCode classifies outbound HTTP failures
type ErrorCode int

const (
	ErrCodeTimeout ErrorCode = iota
	ErrCodeConnection
	ErrCodeAuth
	ErrCodeNotFound
	ErrCodeRateLimit
	ErrCodeValidation
	ErrCodeServer
)

// String returns the error code name
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeAuth:
		return "auth"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeRateLimit:
		return "rate_limit"
	case ErrCodeValidation:
		return "validation"
	case ErrCodeServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is an outbound call failure. StatusCode is 0 for transport errors.
type Error struct {
	Service    string
	Op         string
	StatusCode int
	Code       ErrorCode
	Retryable  bool
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: %s (HTTP %d): %s", e.Service, e.Op, e.Code, e.StatusCode, truncate(e.Body, 200))
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Service, e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ClassifyStatus converts a non-2xx status into an *Error; 2xx yields nil
func ClassifyStatus(service, op string, status int, body []byte) *Error {
	e := &Error{Service: service, Op: op, StatusCode: status, Body: body}
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == 401 || status == 403:
		e.Code = ErrCodeAuth
	case status == 404:
		e.Code = ErrCodeNotFound
	case status == 429:
		e.Code, e.Retryable = ErrCodeRateLimit, true
	case status >= 400 && status < 500:
		e.Code = ErrCodeValidation
	default:
		e.Code, e.Retryable = ErrCodeServer, status >= 500
	}
	return e
}

// IsNotFound reports whether err is a 404 from an upstream
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeNotFound
}

// IsRetryable reports whether err may succeed on a later attempt
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// StatusOf returns the upstream HTTP status of err, or 0
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
