package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Quiz sources
const (
	QuizSourceCached      = "cached"
	QuizSourceAIGenerated = "ai_generated"
)

// OptionsPerQuestion is fixed; every generated question has exactly three choices.
const OptionsPerQuestion = 3

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var ErrUnknownDifficulty = errors.New("difficulty must be easy, medium or hard")

// ParseDifficulty normalises user input into a Difficulty
func ParseDifficulty(value string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(value)))
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, value)
}

// AgeBand maps a difficulty tier to the age range used for vocabulary
func (d Difficulty) AgeBand() string {
	switch d {
	case DifficultyEasy:
		return "5-6"
	case DifficultyMedium:
		return "7-8"
	case DifficultyHard:
		return "9-10"
	}
	return ""
}

// AllDifficulties lists tiers in ascending order
func AllDifficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

type Question struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

// Validate checks a single question's shape
func (q Question) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return errors.New("question text is empty")
	}
	if len(q.Options) != OptionsPerQuestion {
		return fmt.Errorf("expected %d options, got %d", OptionsPerQuestion, len(q.Options))
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("option %d is empty", i)
		}
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= OptionsPerQuestion {
		return fmt.Errorf("correct_index %d out of range", q.CorrectIndex)
	}
	return nil
}

// QuestionList is stored as a JSON text column
type QuestionList []Question

func (l QuestionList) Value() (driver.Value, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *QuestionList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into QuestionList", src)
	}
	return json.Unmarshal(data, l)
}

type QuizTemplate struct {
	ID            string       `db:"id" json:"id"`
	BookID        string       `db:"book_id" json:"book_id"`
	AgeBand       string       `db:"age_band" json:"age_band"`
	QuestionCount int          `db:"question_count" json:"question_count"`
	Questions     QuestionList `db:"questions" json:"questions"`
	Source        string       `db:"source" json:"source"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

// Quiz is what callers receive from quiz generation
type Quiz struct {
	Questions []Question `json:"questions"`
	Source    string     `json:"source"`
}
