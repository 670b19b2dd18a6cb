// Package errors carries the typed error codes that services return and the
// HTTP layer maps onto status codes and the public error envelope.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit    Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal     Code = "INTERNAL_ERROR"
	// CodeDependency covers database, cache and queue failures.
	CodeDependency Code = "DEPENDENCY_ERROR"
	// CodeChannelFailure means the delivery channel rejected a whole batch.
	// Per-token delivery errors never surface as *Error.
	CodeChannelFailure Code = "CHANNEL_FAILURE"
)

// Metadata is the HTTP-facing behavior of a Code.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var codeMetadata = map[Code]Metadata{
	CodeValidation:     {http.StatusBadRequest, false, "validation failed", true},
	CodeUnauthorized:   {http.StatusUnauthorized, false, "authentication required", false},
	CodeForbidden:      {http.StatusForbidden, false, "access denied", false},
	CodeNotFound:       {http.StatusNotFound, false, "resource not found", true},
	CodeConflict:       {http.StatusConflict, false, "conflict detected", false},
	CodeIdempotency:    {http.StatusConflict, false, "idempotency key reused", true},
	CodeRateLimit:      {http.StatusTooManyRequests, true, "rate limit exceeded", false},
	CodeInternal:       {http.StatusInternalServerError, true, "internal server error", false},
	CodeDependency:     {http.StatusServiceUnavailable, true, "dependency unavailable", true},
	CodeChannelFailure: {http.StatusBadGateway, true, "push delivery channel failed", true},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := codeMetadata[code]; ok {
		return meta
	}
	return codeMetadata[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func Wrapf(code Code, err error, format string, args ...any) *Error {
	return Wrap(code, err, fmt.Sprintf(format, args...))
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	cp := *e
	cp.details = details
	return &cp
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause == nil {
		return string(e.code) + ": " + e.message
	}
	return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *Error with the same code, so errors.Is(err, New(CodeNotFound, ""))
// works as a code check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t != nil && e.code == t.code
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost *Error in err's chain has code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// CodeOf returns the code of the outermost *Error, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	return As(err).Code()
}
