package services

import (
	"errors"
	"fmt"
)

// Rule error kinds. Every error returned by a service either wraps one of
// these or is an unexpected failure.
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrAuth       = errors.New("authentication error")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
)

// RuleError is a broken business rule. Its message is safe to show to
// clients; Kind is one of the Err* values above.
type RuleError struct {
	Kind    error
	Message string
	cause   error
}

func (e *RuleError) Error() string {
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause, if any.
func (e *RuleError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.cause}
}

func ruleError(kind error, cause error, format string, args ...any) error {
	return &RuleError{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

func validationError(format string, args ...any) error {
	return ruleError(ErrValidation, nil, format, args...)
}

func conflictError(cause error, format string, args ...any) error {
	return ruleError(ErrConflict, cause, format, args...)
}

func authError(format string, args ...any) error {
	return ruleError(ErrAuth, nil, format, args...)
}

func forbiddenError(format string, args ...any) error {
	return ruleError(ErrForbidden, nil, format, args...)
}

func notFoundError(cause error, format string, args ...any) error {
	return ruleError(ErrNotFound, cause, format, args...)
}
