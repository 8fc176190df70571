package llm

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a failed generation attempt.
type ErrorKind string

const (
	KindAuth           ErrorKind = "auth"
	KindRateLimited    ErrorKind = "rate_limited"
	KindServerError    ErrorKind = "server_error"
	KindContentTooLong ErrorKind = "content_too_long"
	KindRefused        ErrorKind = "refused"
	KindEmpty          ErrorKind = "empty"
	KindBadRequest     ErrorKind = "bad_request"
	KindTransport      ErrorKind = "transport"
	KindDecode         ErrorKind = "decode"
	KindTimeout        ErrorKind = "timeout"
)

// Error is returned by Client.Generate.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("llm %s", e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (http %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindServerError, KindRefused, KindEmpty, KindTransport:
		return true
	default:
		return false
	}
}

// KindOf returns the kind carried by err, or "" when err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
