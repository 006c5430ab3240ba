// Package apperr defines the error taxonomy shared by the lifecycle core and
// its HTTP surface. Each kind maps to a distinct, stable response status so
// callers can tell "fix your input" from "retry me".
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind int

const (
	// KindUnknown is the zero value: an error that carries no kind.
	KindUnknown Kind = iota
	// KindValidation marks a malformed or empty request. Never retried.
	KindValidation
	// KindNotFound marks a missing patient or ledger entry.
	KindNotFound
	// KindInvalidTransition marks a (from,to) pair with no registered rule.
	// No state is mutated.
	KindInvalidTransition
	// KindConflict marks an atomic commit whose conditional check lost a
	// race. Retryable: the caller must re-read and resubmit.
	KindConflict
	// KindUnavailable marks a transient storage failure that survived the
	// repository layer's bounded retries.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

// Error is a kinded application error. Use errors.Is with one of the
// sentinel values below to test for a kind.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same kind, so
// errors.Is(err, apperr.Conflict) works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinel values for errors.Is matching.
var (
	Validation        = &Error{Kind: KindValidation, Msg: "validation failed"}
	NotFound          = &Error{Kind: KindNotFound, Msg: "not found"}
	InvalidTransition = &Error{Kind: KindInvalidTransition, Msg: "invalid transition"}
	Conflict          = &Error{Kind: KindConflict, Msg: "conflict"}
	Unavailable       = &Error{Kind: KindUnavailable, Msg: "unavailable"}
)

// New builds an error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from err, or KindUnknown if err carries none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}
