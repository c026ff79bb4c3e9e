package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrNotAuthorized        = errors.New("not authorized")
	ErrDuplicateUsername    = errors.New("username already taken")
	ErrRoomUnavailable      = errors.New("room not available for the requested dates")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrNoAttemptsLeft       = errors.New("no login attempts left")
	ErrAlreadyAuthenticated = errors.New("already logged in, logout first")
)

// InvalidInputError is returned for malformed input rejected before any
// storage access. Field and Value give the presentation layer enough
// context to re-prompt.
type InvalidInputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func invalid(field, value, reason string) error {
	return &InvalidInputError{Field: field, Value: value, Reason: reason}
}

// Invalid builds an InvalidInputError for callers outside the domain package.
func Invalid(field, value, reason string) error { return invalid(field, value, reason) }

func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}
