// Package domainerrors defines the closed taxonomy of business failures and
// their mapping to HTTP status codes.
//
// Services and stores raise *Error values; only the HTTP boundary translates
// them into responses. Inner layers must never construct transport errors.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of failure classifications. Every domain error
// belongs to exactly one Kind, and every Kind maps to exactly one HTTP status.
type Kind int

const (
	// KindInternal is the catch-all for failures with no more specific Kind.
	KindInternal Kind = iota
	KindNotFound
	KindPermissionDenied
	KindConflict
	KindValidation
	KindAuthentication
)

// String returns the stable name of the Kind. This doubles as the default
// classification code when a concrete error does not supply one.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindPermissionDenied:
		return "PERMISSION_DENIED"
	case KindConflict:
		return "CONFLICT"
	case KindValidation:
		return "VALIDATION"
	case KindAuthentication:
		return "AUTHENTICATION"
	default:
		return "INTERNAL"
	}
}

// HTTPStatus maps a Kind to its fixed external status code. The default arm
// keeps the mapping total: anything outside the enumerated set is a 500.
func HTTPStatus(k Kind) int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error is a typed domain failure carrying a human-readable message and a
// machine-readable classification code. The zero code is never stored: an
// empty code normalizes to the Kind's name so clients can always distinguish
// error classes.
type Error struct {
	kind    Kind
	code    string
	message string
	cause   error
}

// New constructs a domain error with the Kind-derived default code.
func New(kind Kind, message string) *Error {
	return &Error{kind: kind, code: kind.String(), message: message}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// WithCode constructs a domain error carrying a client-distinguishable code,
// e.g. EMAIL_TAKEN vs USERNAME_TAKEN within KindConflict. An empty code is
// indistinguishable from "no code" and normalizes to the Kind default.
func WithCode(kind Kind, code, message string) *Error {
	if code == "" {
		code = kind.String()
	}
	return &Error{kind: kind, code: code, message: message}
}

// Wrap classifies a lower-level failure as a domain error while keeping the
// original cause discoverable through errors.Is/As.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{kind: kind, code: kind.String(), message: message, cause: err}
}

// WrapCode is Wrap with an explicit classification code.
func WrapCode(err error, kind Kind, code, message string) *Error {
	if code == "" {
		code = kind.String()
	}
	return &Error{kind: kind, code: code, message: message, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

// Unwrap exposes the cause chain.
func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Kind() Kind      { return e.kind }
func (e *Error) Code() string    { return e.code }
func (e *Error) Message() string { return e.message }

// KindOf classifies any error. Non-domain errors fall through to KindInternal
// so translation stays total.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.kind
	}
	return KindInternal
}

// CodeOf returns the classification code of an error, or the KindInternal
// default for non-domain errors.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.code
	}
	return KindInternal.String()
}

// MessageOf returns the external-safe message of a domain error. Non-domain
// errors yield a generic message so internal detail never leaks to clients.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.message
	}
	return "internal server error"
}

// IsKind reports whether err is a domain error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.kind == kind
}

// HasCode reports whether err carries the given classification code.
func HasCode(err error, code string) bool {
	var de *Error
	return errors.As(err, &de) && de.code == code
}
