// Package apperr defines the error kinds the CRM surfaces to users.
//
// Validation errors are raised before any store call and carry per-field
// messages. Auth errors carry a provider code. Store errors wrap whatever
// the document store returned. NotFound means the id is not in the current
// replica (a stale row) or the store no longer has it.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error.
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "auth"
	KindStore      Kind = "store"
	KindNotFound   Kind = "not_found"
)

// HTTPStatus maps a kind to the status code the API layer answers with.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// Error is a user-facing error.
type Error struct {
	Kind    Kind              `json:"kind"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind && (t.Code == "" || t.Code == e.Code)
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrStore      = &Error{Kind: KindStore}
	ErrNotFound   = &Error{Kind: KindNotFound}

	// ErrRefresh matches a write that committed but whose reload failed.
	ErrRefresh = &Error{Kind: KindStore, Code: CodeRefresh}
)

// CodeRefresh marks a store error raised after the write itself succeeded.
const CodeRefresh = "refresh"

// Validation builds a validation error from field → message pairs.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Auth builds an auth error with a provider code.
func Auth(code, message string) *Error {
	return &Error{Kind: KindAuth, Code: code, Message: message}
}

// Store wraps a document store failure.
func Store(message string, cause error) *Error {
	return &Error{Kind: KindStore, Message: message, cause: cause}
}

// Refresh reports a committed write whose follow-up reload of collection
// failed. The write must not be resubmitted.
func Refresh(collection string, cause error) *Error {
	return &Error{
		Kind:    KindStore,
		Code:    CodeRefresh,
		Message: "Your changes were saved, but the " + collection + " list could not be refreshed",
		cause:   cause,
	}
}

// NotFound reports a missing record.
func NotFound(collection, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    collection,
		Message: fmt.Sprintf("%s %q not found", collection, id),
	}
}

// KindOf returns the kind of err, or KindStore for anything that is not an
// *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}
