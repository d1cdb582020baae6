package model

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers; it is stable and machine-readable.
type Kind string

// Error kinds.
const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindAuth       Kind = "auth"
)

// Sentinel errors, one per kind. Use errors.Is to test an error's kind.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrAuth       = errors.New("authentication failed")
)

// Error is a classified domain error with a human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindValidation:
		return target == ErrValidation
	case KindConflict:
		return target == ErrConflict
	case KindNotFound:
		return target == ErrNotFound
	case KindAuth:
		return target == ErrAuth
	}
	return false
}

// Validationf returns a validation error (malformed or out-of-range input).
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflictf returns a conflict error (a state-machine guard was violated).
func Conflictf(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf returns a not-found error.
func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Authf returns an authentication error.
func Authf(format string, args ...any) error {
	return &Error{Kind: KindAuth, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or "" if err is not a classified error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
