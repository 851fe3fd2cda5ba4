// Package apperror defines the machine-readable failure kinds returned by the
// ledger and quest engine.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. The string value is what clients see as error.code.
type Kind string

const (
	KindForbidden         Kind = "FORBIDDEN"
	KindNotFound          Kind = "NOT_FOUND"
	KindInvalidState      Kind = "INVALID_STATE"
	KindInsufficientFunds Kind = "INSUFFICIENT_FUNDS"
	KindInvalidInput      Kind = "INVALID_INPUT"
	KindUnknown           Kind = "UNKNOWN"
)

// Error carries a kind, a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

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

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to a cause.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Forbidden(format string, args ...interface{}) *Error {
	return New(KindForbidden, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

func InvalidState(format string, args ...interface{}) *Error {
	return New(KindInvalidState, format, args...)
}

func InsufficientFunds(format string, args ...interface{}) *Error {
	return New(KindInsufficientFunds, format, args...)
}

func InvalidInput(format string, args ...interface{}) *Error {
	return New(KindInvalidInput, format, args...)
}

// Internal wraps an infrastructure failure as UNKNOWN.
func Internal(err error, format string, args ...interface{}) *Error {
	return Wrap(KindUnknown, err, format, args...)
}

// KindOf returns the kind of the first *Error in the chain, or KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf returns the message of the first *Error in the chain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return ""
}
