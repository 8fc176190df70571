// Package apperr defines the error taxonomy surfaced at the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindUpstream     Kind = "upstream"
	KindInternal     Kind = "internal"
	KindUnauthorized Kind = "unauthorized"
)

// Error is an application error with a machine-readable code.
type Error struct {
	Kind    Kind                   `json:"kind"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details []string               `json:"details,omitempty"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
	Err     error                  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithMeta attaches a machine-readable field to the error body.
func (e *Error) WithMeta(key string, value interface{}) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]interface{})
	}
	e.Meta[key] = value
	return e
}

// HTTPStatus maps the error kind to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func Validation(message string, details []string) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: message, Details: details}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: resource + " not found"}
}

func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Code: "UPSTREAM_ERROR", Message: message, Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: "internal server error", Err: err}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: "UNAUTHORIZED", Message: message}
}

// As extracts an *Error from err. Anything else is reported as Internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
