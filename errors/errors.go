package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies an authentication error so callers can map it to their
// transport without parsing messages.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindConflict     Kind = "CONFLICT"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindForbidden    Kind = "FORBIDDEN"
	KindNotFound     Kind = "NOT_FOUND"
	KindInternal     Kind = "INTERNAL"
)

// AuthError is the error type returned by every service operation.
type AuthError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	err     error
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any.
func (e *AuthError) Unwrap() error {
	return e.err
}

// Wrap attaches a cause to the error and returns it.
func (e *AuthError) Wrap(err error) *AuthError {
	e.err = err
	return e
}

func NewValidation(message string) *AuthError {
	return &AuthError{Kind: KindValidation, Message: message}
}

func NewConflict(message string) *AuthError {
	return &AuthError{Kind: KindConflict, Message: message}
}

func NewUnauthorized(message string) *AuthError {
	return &AuthError{Kind: KindUnauthorized, Message: message}
}

func NewForbidden(message string) *AuthError {
	return &AuthError{Kind: KindForbidden, Message: message}
}

func NewNotFound(message string) *AuthError {
	return &AuthError{Kind: KindNotFound, Message: message}
}

func NewInternal(message string) *AuthError {
	return &AuthError{Kind: KindInternal, Message: message}
}

// IsKind reports whether err is (or wraps) an AuthError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *AuthError
	if stderrors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

func IsValidation(err error) bool   { return IsKind(err, KindValidation) }
func IsConflict(err error) bool     { return IsKind(err, KindConflict) }
func IsUnauthorized(err error) bool { return IsKind(err, KindUnauthorized) }
func IsForbidden(err error) bool    { return IsKind(err, KindForbidden) }
func IsNotFound(err error) bool     { return IsKind(err, KindNotFound) }
func IsInternal(err error) bool     { return IsKind(err, KindInternal) }
