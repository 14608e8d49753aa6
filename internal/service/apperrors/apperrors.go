package apperrors

import (
	"errors"
	"fmt"
)

// Kind enumerates failure categories surfaced to collaborators.
type Kind string

const (
	KindUnknown             Kind = "internal"
	KindValidation          Kind = "validation_error"
	KindNotFound            Kind = "not_found"
	KindOwnershipMismatch   Kind = "ownership_mismatch"
	KindInvalidOperation    Kind = "invalid_operation"
	KindInvalidTransition   Kind = "invalid_transition"
	KindConcurrencyConflict Kind = "concurrency_conflict"
)

// Error is a typed service error carrying a machine readable kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// Is matches errors of the same kind so callers can use errors.Is with the sentinels below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}

	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels usable with errors.Is.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrOwnershipMismatch   = &Error{Kind: KindOwnershipMismatch}
	ErrInvalidOperation    = &Error{Kind: KindInvalidOperation}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition}
	ErrConcurrencyConflict = &Error{Kind: KindConcurrencyConflict}
)

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation reports malformed input.
func Validation(format string, args ...any) *Error {
	return newf(KindValidation, format, args...)
}

// NotFound reports a missing order, item, client, vehicle, product or status.
func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, format, args...)
}

// OwnershipMismatch reports a vehicle that does not belong to the stated client.
func OwnershipMismatch(format string, args ...any) *Error {
	return newf(KindOwnershipMismatch, format, args...)
}

// InvalidOperation reports an unknown reconciliation mode.
func InvalidOperation(format string, args ...any) *Error {
	return newf(KindInvalidOperation, format, args...)
}

// InvalidTransition reports an illegal status change.
func InvalidTransition(format string, args ...any) *Error {
	return newf(KindInvalidTransition, format, args...)
}

// ConcurrencyConflict wraps a lost race on the same order.
func ConcurrencyConflict(err error, format string, args ...any) *Error {
	e := newf(KindConcurrencyConflict, format, args...)
	e.Err = err

	return e
}

// KindOf returns the kind of err, or KindUnknown for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}
