package services

import (
	"errors"
	"fmt"
)

// ValidationError: malformed input. Nothing was committed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// StateConflictError: operation attempted against an entity whose current
// status does not allow it. The message names current vs required state.
type StateConflictError struct {
	Entity   string
	Current  string
	Required string
	Message  string
}

func (e *StateConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s is %s, requires %s", e.Entity, e.Current, e.Required)
}

// ResourceUnavailableError: the requested slot fails availability rules.
type ResourceUnavailableError struct {
	ResourceID uint
}

func (e *ResourceUnavailableError) Error() string {
	return fmt.Sprintf("resource [%d] is not available for the requested time window", e.ResourceID)
}

// ExternalDependencyError wraps a downstream failure (payment gateway,
// broker, mailer) with enough context for the caller's logs.
type ExternalDependencyError struct {
	Dependency string
	Err        error
}

func (e *ExternalDependencyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Dependency, e.Err.Error())
}

func (e *ExternalDependencyError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsStateConflict(err error) bool {
	var sc *StateConflictError
	return errors.As(err, &sc)
}

func IsUnavailable(err error) bool {
	var ru *ResourceUnavailableError
	return errors.As(err, &ru)
}
