// Package cerrors centralizes the error taxonomy used across Canaveral's
// domain packages so CLI formatting (text/JSON) can switch on a stable kind
// instead of matching error strings.
package cerrors

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for display and control flow.
type Kind int

const (
	Unknown Kind = iota
	NotFound
	AlreadyExists
	PermissionDenied
	InvalidArgument
	Unauthenticated
	RateLimited
	Network
	Api
	DecryptFailed
	Integrity
	CycleDetected
	ValidationFailed
	UploadFailed
	Cancelled
	Timeout
	Io
)

var kindNames = map[Kind]string{
	Unknown:           "unknown",
	NotFound:          "not_found",
	AlreadyExists:     "already_exists",
	PermissionDenied:  "permission_denied",
	InvalidArgument:   "invalid_argument",
	Unauthenticated:   "unauthenticated",
	RateLimited:       "rate_limited",
	Network:           "network",
	Api:               "api",
	DecryptFailed:     "decrypt_failed",
	Integrity:         "integrity",
	CycleDetected:     "cycle_detected",
	ValidationFailed:  "validation_failed",
	UploadFailed:      "upload_failed",
	Cancelled:         "cancelled",
	Timeout:           "timeout",
	Io:                "io",
}

// String returns the lowercase snake_case name used in JSON output.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is a taxonomy-tagged error. Context carries structured detail (an
// HTTP status, a missing permission, a list of validation issues) that
// callers can render without re-parsing Message. It never carries secret
// material: callers are responsible for keeping key bytes, passphrases, and
// ciphertexts out of Context and Message.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Unwrap lets errors.Is/errors.As see through to a wrapped cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// New builds an Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around an existing error, which
// remains reachable via errors.Unwrap/errors.Is.
func Wrap(kind Kind, err error, message string) *Error {
	if message == "" {
		message = err.Error()
	} else {
		message = fmt.Sprintf("%s: %s", message, err.Error())
	}
	return &Error{Kind: kind, Message: message, cause: err}
}

// WithContext returns a copy of e with k=v merged into Context.
func (e *Error) WithContext(k string, v any) *Error {
	cp := *e
	ctx := make(map[string]any, len(e.Context)+1)
	for key, val := range e.Context {
		ctx[key] = val
	}
	ctx[k] = v
	cp.Context = ctx
	return &cp
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, else Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err is (or wraps) a *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// NotFoundf builds a NotFound error with a formatted message.
func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, fmt.Sprintf(format, args...))
}

// AlreadyExistsf builds an AlreadyExists error with a formatted message.
func AlreadyExistsf(format string, args ...any) *Error {
	return New(AlreadyExists, fmt.Sprintf(format, args...))
}

// PermissionDeniedf builds a PermissionDenied error with a formatted message.
func PermissionDeniedf(format string, args ...any) *Error {
	return New(PermissionDenied, fmt.Sprintf(format, args...))
}

// InvalidArgumentf builds an InvalidArgument error with a formatted message.
func InvalidArgumentf(format string, args ...any) *Error {
	return New(InvalidArgument, fmt.Sprintf(format, args...))
}

// ApiError builds an Api error carrying the HTTP status and response body,
// matching store clients' `Api(status, body)` contract.
func ApiError(status int, body string) *Error {
	return &Error{
		Kind:    Api,
		Message: fmt.Sprintf("api error: status %d", status),
		Context: map[string]any{"status": status, "body": body},
	}
}

// ValidationIssue is one field-level failure reported by a metadata validator.
type ValidationIssue struct {
	Field   string
	Message string
}

// ValidationFailedError builds a ValidationFailed error carrying the full
// list of issues, matching the `ValidationFailed(issues)` taxonomy entry.
func ValidationFailedError(issues []ValidationIssue) *Error {
	msg := "validation failed"
	if len(issues) == 1 {
		msg = fmt.Sprintf("validation failed: %s %s", issues[0].Field, issues[0].Message)
	} else if len(issues) > 1 {
		msg = fmt.Sprintf("validation failed: %d issues", len(issues))
	}
	ctxIssues := make([]map[string]any, len(issues))
	for i, iss := range issues {
		ctxIssues[i] = map[string]any{"field": iss.Field, "message": iss.Message}
	}
	return &Error{Kind: ValidationFailed, Message: msg, Context: map[string]any{"issues": ctxIssues}}
}

// CycleDetectedError builds a CycleDetected error naming the members
// involved in the cycle, matching `CycleDetected(members[])`.
func CycleDetectedError(members []string) *Error {
	return &Error{
		Kind:    CycleDetected,
		Message: fmt.Sprintf("dependency cycle detected: %v", members),
		Context: map[string]any{"members": members},
	}
}
