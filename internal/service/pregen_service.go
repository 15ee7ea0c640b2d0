package service

import (
	"context"
	"fmt"
	"time"

	"readquest/internal/logger"
	"readquest/internal/models"
	"readquest/internal/repository"
	"readquest/internal/validation"
)

const (
	DefaultPregenLimit = 10
	MaxPregenLimit     = 50
)

// PregenResult summarises one batch run
type PregenResult struct {
	Processed int `json:"processed"`
	Generated int `json:"generated"`
	Failed    int `json:"failed"`
}

// PregenService warms the quiz cache for books missing templates
type PregenService struct {
	books     *repository.BookRepository
	templates *repository.QuizTemplateRepository
	quizzes   *QuizService
	now       func() time.Time
}

func NewPregenService(books *repository.BookRepository, templates *repository.QuizTemplateRepository, quizzes *QuizService) *PregenService {
	return &PregenService{books: books, templates: templates, quizzes: quizzes, now: time.Now}
}

// Run generates the default-size quiz for every missing age band on up to
// limit books, one at a time. Each visited book moves to the back of the
// queue, so repeated runs work through the whole catalog even when some
// books cannot be generated.
func (s *PregenService) Run(ctx context.Context, limit int) (*PregenResult, error) {
	if limit == 0 {
		limit = DefaultPregenLimit
	}
	if limit < 1 || limit > MaxPregenLimit {
		return nil, invalid(validation.ValidationError{Field: "limit", Message: fmt.Sprintf("must be between 1 and %d", MaxPregenLimit)})
	}

	difficulties := models.AllDifficulties()
	books, err := s.books.ListMissingTemplates(ctx, validation.DefaultQuestionCount, len(difficulties), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}

	result := &PregenResult{}
	for _, book := range books {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Processed++
		if err := s.books.MarkPregenAttempted(ctx, book.ID, s.now()); err != nil {
			return nil, fmt.Errorf("failed to mark book attempted: %w", err)
		}

		existing, err := s.templates.ListAgeBands(ctx, book.ID, validation.DefaultQuestionCount)
		if err != nil {
			return nil, fmt.Errorf("failed to list templates: %w", err)
		}
		have := make(map[string]bool, len(existing))
		for _, band := range existing {
			have[band] = true
		}

		for _, d := range difficulties {
			if have[d.AgeBand()] {
				continue
			}
			quiz, err := s.quizzes.GetQuiz(ctx, book.ID, validation.DefaultQuestionCount, string(d))
			if err != nil {
				result.Failed++
				logger.Warn("pre-generation failed", "book_id", book.ID, "difficulty", d, "error", err)
				continue
			}
			if quiz.Source == models.QuizSourceAIGenerated {
				result.Generated++
			}
		}
	}

	logger.Info("pre-generation finished", "processed", result.Processed, "generated", result.Generated, "failed", result.Failed)
	return result, nil
}
