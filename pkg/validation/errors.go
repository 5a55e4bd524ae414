// Package validation defines the single error type returned by the analytics
// core for malformed or insufficient input.
package validation

import (
	"errors"
	"fmt"
)

// Kind classifies a validation failure so transports can pick a status code.
type Kind int

const (
	// KindInvalid covers malformed input: bad lengths, NaN, out-of-range shocks.
	KindInvalid Kind = iota
	// KindNotFound means the data source had no rows for the requested key.
	KindNotFound
	// KindInsufficient means rows exist but not enough of them.
	KindInsufficient
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInsufficient:
		return "insufficient"
	default:
		return "invalid"
	}
}

// Error is a non-retryable input error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Invalid returns a KindInvalid error with a formatted message.
func Invalid(format string, args ...any) *Error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a KindNotFound error with a formatted message.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Insufficient returns a KindInsufficient error with a formatted message.
func Insufficient(format string, args ...any) *Error {
	return &Error{Kind: KindInsufficient, Message: fmt.Sprintf(format, args...)}
}

// Wrap prefixes a validation error's message while keeping its kind.
// Errors that are not validation errors are returned unchanged.
func Wrap(prefix string, err error) error {
	var ve *Error
	if !errors.As(err, &ve) {
		return err
	}
	return &Error{Kind: ve.Kind, Message: prefix + ": " + ve.Message, Err: err}
}

// KindOf reports the kind of err if it is a validation error.
func KindOf(err error) (Kind, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind, true
	}
	return 0, false
}

// Is reports whether err is a validation error of any kind.
func Is(err error) bool {
	_, ok := KindOf(err)
	return ok
}
