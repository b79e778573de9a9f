// Package apperrors defines the error kinds shared by every focusbot component.
//
// Components wrap failures in *Error so callers can branch with errors.Is on
// the sentinel kinds while the message keeps the failing operation.
package apperrors

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	// ErrInvalidInput marks malformed dates, missing fields, inverted ranges
	// and timer-state payloads that fail validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamUnavailable marks calendar failures and timeouts.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrConflict marks a booking that overlaps an existing busy interval.
	ErrConflict = errors.New("conflict")

	// ErrNotFound marks a deletion or completion of an unknown id.
	ErrNotFound = errors.New("not found")

	// ErrPersistence marks read or write failures of the timer state.
	ErrPersistence = errors.New("persistence failure")
)

// Error represents a failure of a named operation.
type Error struct {
	// Kind is one of the sentinel errors above.
	Kind error

	// Op is the operation that failed (e.g., "slots.find", "calendar.create")
	Op string

	// Err is the underlying error, may be nil.
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// New returns an *Error of the given kind.
func New(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// InvalidInput builds an ErrInvalidInput error with a formatted reason.
func InvalidInput(op, format string, args ...any) error {
	return New(ErrInvalidInput, op, fmt.Errorf(format, args...))
}

// Upstream wraps a collaborator failure as ErrUpstreamUnavailable.
// Errors that already carry a kind are returned unchanged.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	if HasKind(err) {
		return err
	}
	return New(ErrUpstreamUnavailable, op, err)
}

// NotFound builds an ErrNotFound error for the given id.
func NotFound(op, id string) error {
	return New(ErrNotFound, op, fmt.Errorf("id %q", id))
}

// Conflict builds an ErrConflict error.
func Conflict(op, format string, args ...any) error {
	return New(ErrConflict, op, fmt.Errorf(format, args...))
}

// Persistence wraps a storage failure as ErrPersistence.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return New(ErrPersistence, op, err)
}

var kinds = []error{ErrInvalidInput, ErrUpstreamUnavailable, ErrConflict, ErrNotFound, ErrPersistence}

// HasKind reports whether err already matches one of the error kinds.
func HasKind(err error) bool {
	return KindOf(err) != nil
}

// KindOf returns the kind of err or nil when it has none.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
