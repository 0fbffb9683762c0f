package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind is the machine-readable error category returned to clients.
type Kind string

const (
	KindUnauthorized     Kind = "unauthorized"
	KindValidation       Kind = "validation"
	KindInvalidReference Kind = "invalid_reference"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindRateLimited      Kind = "rate_limited"
	KindDependency       Kind = "dependency"
	KindInternal         Kind = "internal"
)

// StatusCode maps a kind to its HTTP status.
func (k Kind) StatusCode() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindInvalidReference:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind, a client-safe message, optional per-field details and the cause.
// Details are extra top-level keys of the response body.
type Error struct {
	Kind    Kind                   `json:"kind"`
	Message string                 `json:"message"`
	Fields  map[string]string      `json:"fields,omitempty"`
	Details map[string]interface{} `json:"-"`
	Err     error                  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// Validation builds a validation error. fields maps a field name to the failed rule.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// MissingFields names every missing field in the message, e.g. "barcode, name are required".
func MissingFields(names ...string) *Error {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	fields := make(map[string]string, len(sorted))
	for _, n := range sorted {
		fields[n] = "required"
	}
	verb := "is"
	if len(sorted) > 1 {
		verb = "are"
	}
	return Validation(fmt.Sprintf("%s %s required", strings.Join(sorted, ", "), verb), fields)
}

func InvalidReference(field, message string) *Error {
	return &Error{Kind: KindInvalidReference, Message: message, Fields: map[string]string{field: "exists"}}
}

func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

func RateLimited(message string, details map[string]interface{}) *Error {
	return &Error{Kind: KindRateLimited, Message: message, Details: details}
}

func Dependency(message string, err error) *Error {
	return Wrap(KindDependency, message, err)
}

// KindOf returns the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
