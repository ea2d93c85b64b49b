package vault

import (
	"errors"
	"fmt"
)

// Kind classifies vault errors so callers can turn them into user-facing messages.
type Kind string

const (
	// KindValidation indicates a missing or malformed required field.
	KindValidation Kind = "validation"

	// KindNotFound indicates an operation referenced an id that is not in the vault.
	KindNotFound Kind = "not_found"

	// KindFormat indicates an import payload that is not a shape-conforming JSON array.
	KindFormat Kind = "format"

	// KindPersistence indicates the durable store could not be read or written.
	KindPersistence Kind = "persistence"

	// KindConflict indicates an import clashed with existing ids under the reject policy.
	KindConflict Kind = "conflict"
)

// Error is the error type returned by the vault core.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrValidation  = &Error{Kind: KindValidation}
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrFormat      = &Error{Kind: KindFormat}
	ErrPersistence = &Error{Kind: KindPersistence}
	ErrConflict    = &Error{Kind: KindConflict}
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a vault error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewValidation creates a new validation error.
func NewValidation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewNotFound creates a new not found error for the given entry id.
func NewNotFound(id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("entry %q not found", id)}
}

// NewFormat creates a new format error.
func NewFormat(format string, args ...any) *Error {
	return &Error{Kind: KindFormat, Message: fmt.Sprintf(format, args...)}
}

// NewPersistence wraps a storage failure.
func NewPersistence(message string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: message, Err: err}
}

// NewConflict creates a new conflict error.
func NewConflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a vault error, or "" when err is not one.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
