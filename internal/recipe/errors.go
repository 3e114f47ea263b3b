package recipe

import (
	"errors"
	"fmt"
)

// Details reported to clients for rejected fridge payloads.
const (
	DetailDecodeFailure = "Failed to decode JSON."
	DetailInvalidData   = "JSON contains invalid data."
)

// ErrNotFound is matched by every *NotFoundError via errors.Is.
var ErrNotFound = errors.New("not found")

// ValidationError reports a malformed or semantically invalid request payload.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

// NewDecodeError returns the validation error for undecodable payloads.
func NewDecodeError() *ValidationError {
	return &ValidationError{Detail: DetailDecodeFailure}
}

// NewInvalidDataError returns the validation error for well-formed payloads
// carrying unknown ingredients or non-integer quantities.
func NewInvalidDataError() *ValidationError {
	return &ValidationError{Detail: DetailInvalidData}
}

// LoadError reports seed data that does not have the expected shape.
type LoadError struct {
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return "load seed: " + e.Reason
	}
	return fmt.Sprintf("load seed: %s: %v", e.Reason, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a reference to an unknown ingredient or recipe.
// It signals a data integrity problem, not a user error.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
