// Package apperror classifies failures of the agreement core into a fixed taxonomy so transports
// can map them to status codes without inspecting messages.
package apperror

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the taxonomy bucket of an Error.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindStateConflict Kind = "state_conflict"
	KindRateLimit     Kind = "rate_limit"
	KindExpired       Kind = "expired"
	KindNotFound      Kind = "not_found"
	KindIntegrity     Kind = "integrity"
	KindTransport     Kind = "transport"
)

// Error is a classified failure. Message is safe to show to the caller; Err is the internal cause.
type Error struct {
	Kind    Kind
	Message string
	// RetryAfter is set on rate-limit errors that carry a wait hint (OTP cooldown).
	RetryAfter time.Duration
	// RemainingAttempts is set on wrong-code errors; -1 when not applicable.
	RemainingAttempts int
	Err               error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so errors.Is(err, apperror.Expired("")) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, RemainingAttempts: -1}
}

// Validation reports malformed or rejected caller input.
func Validation(msg string) *Error { return newError(KindValidation, msg) }

// StateConflict reports an operation the agreement's current status does not allow.
func StateConflict(msg string) *Error { return newError(KindStateConflict, msg) }

// Expired reports an agreement or code past its expiry.
func Expired(msg string) *Error { return newError(KindExpired, msg) }

// NotFound reports a missing agreement, receipt or code. Unknown and unauthorized lookups share it.
func NotFound(msg string) *Error { return newError(KindNotFound, msg) }

// Integrity reports stored data that fails a consistency check, such as a receipt whose signature
// no longer matches its payload.
func Integrity(msg string) *Error { return newError(KindIntegrity, msg) }

// RateLimit returns a rate-limit error; retryAfter may be zero when no wait hint applies.
func RateLimit(msg string, retryAfter time.Duration) *Error {
	e := newError(KindRateLimit, msg)
	e.RetryAfter = retryAfter
	return e
}

// Transport wraps a storage or delivery failure.
func Transport(msg string, cause error) *Error {
	e := newError(KindTransport, msg)
	e.Err = cause
	return e
}

// WrongCode is the validation error returned for a mismatched OTP.
func WrongCode(remaining int) *Error {
	e := newError(KindValidation, fmt.Sprintf("Invalid code. %d attempt(s) remaining.", remaining))
	e.RemainingAttempts = remaining
	return e
}

// KindOf returns the taxonomy kind of err. Unclassified errors are reported as transport failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}

// As extracts the *Error from err, wrapping unclassified errors as transport failures.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Transport("internal error", err)
}
