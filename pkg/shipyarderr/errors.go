// Package shipyarderr defines the typed error kinds shipyard uses to
// classify failures, wrapping causes with the standard library's errors.Is/As
// conventions rather than inventing a parallel error model.
package shipyarderr

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind string

const (
	// KindConfig covers invalid or ambiguous environment documents:
	// unresolved references, dependency cycles, unknown schema versions.
	KindConfig Kind = "config"

	// KindDaemon covers failures talking to a ship's Docker daemon:
	// connection refused, API errors, transport failures.
	KindDaemon Kind = "daemon"

	// KindImage covers image pull/login failures.
	KindImage Kind = "image"

	// KindLifecycleTimeout covers a lifecycle check that never passed
	// within its budget.
	KindLifecycleTimeout Kind = "lifecycle_timeout"

	// KindState covers a container action whose precondition was not
	// met by the observed state machine.
	KindState Kind = "state"

	// KindCancelled covers a play aborted by external interrupt.
	KindCancelled Kind = "cancelled"
)

// Error is a shipyard error carrying a Kind and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error of the given kind wrapping cause. If cause is
// nil, Wrap returns nil so callers can write `return shipyarderr.Wrap(...)`
// directly after an `if err != nil` check without a redundant branch.
func Wrap(kind Kind, message string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the Kind of err if it (or something it wraps) is a
// *Error, and false otherwise.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

// Is reports whether err's kind (or that of anything it wraps) is kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
