package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during tournament operations.
var (
	// ErrInvalidConfiguration indicates that the tournament configuration
	// is invalid or incomplete. Configuration errors are fatal at startup.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrMalformedRelation indicates that a stored relation could not be
	// decoded as a ["winner","loser"] pair.
	ErrMalformedRelation = errors.New("malformed relation")
)

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap marks every ValidationError as an invalid-configuration error so
// callers can classify it with errors.Is.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
