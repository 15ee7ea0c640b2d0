package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrBookNotFound        = errors.New("book not found")
	ErrGenerationFailed    = errors.New("quiz generation failed")
	ErrInsufficientData    = errors.New("not enough information about this book to build a quiz")
	ErrInvalidInvitation   = errors.New("invitation not found")
	ErrInvalidAction       = errors.New("invalid action")
	ErrAccessDenied        = errors.New("access denied")
	ErrInvalidEvent        = errors.New("invalid event")
	ErrQuizSessionNotFound = errors.New("quiz session not found")
)

// invalid wraps a validation failure so callers can match ErrValidation and
// still read the field-level message.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
