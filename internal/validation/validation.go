// Package validation checks untrusted request input.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"readquest/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Quiz size limits
const (
	MinQuestionCount     = 3
	MaxQuestionCount     = 20
	DefaultQuestionCount = 10
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateUUID checks that value is a canonical UUID
func ValidateUUID(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Message: "is required"}
	}
	if _, err := uuid.Parse(value); err != nil {
		return ValidationError{Field: field, Message: "must be a UUID"}
	}
	return nil
}

// QuestionCount applies the default and range check
func QuestionCount(n int) (int, error) {
	if n == 0 {
		return DefaultQuestionCount, nil
	}
	if n < MinQuestionCount || n > MaxQuestionCount {
		return 0, ValidationError{
			Field:   "numQuestions",
			Message: fmt.Sprintf("must be between %d and %d", MinQuestionCount, MaxQuestionCount),
		}
	}
	return n, nil
}

// ValidateRelationshipType accepts parent or teacher
func ValidateRelationshipType(value string) error {
	switch value {
	case models.RelationshipParent, models.RelationshipTeacher:
		return nil
	}
	return ValidationError{Field: "relationship_type", Message: "must be parent or teacher"}
}

// EventInput is the wire shape of an analytics event
type EventInput struct {
	EventType string  `json:"event_type"`
	BookID    string  `json:"book_id"`
	AgeBand   *string `json:"age_band,omitempty"`
	Score     *int    `json:"score,omitempty"`
	UserID    *string `json:"user_id,omitempty"`
}

// ValidateEvent enforces the analytics event schema
func ValidateEvent(in EventInput) error {
	switch in.EventType {
	case models.EventQuizStarted, models.EventQuizCompleted:
	default:
		return ValidationError{Field: "event_type", Message: "must be quiz_started or quiz_completed"}
	}
	if err := ValidateUUID("book_id", in.BookID); err != nil {
		return err
	}
	if in.AgeBand != nil {
		switch models.Difficulty(*in.AgeBand) {
		case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		default:
			return ValidationError{Field: "age_band", Message: "must be easy, medium or hard"}
		}
	}
	if in.Score != nil && (*in.Score < 0 || *in.Score > 100) {
		return ValidationError{Field: "score", Message: "must be between 0 and 100"}
	}
	if in.UserID != nil {
		if err := ValidateUUID("user_id", *in.UserID); err != nil {
			return err
		}
	}
	return nil
}
