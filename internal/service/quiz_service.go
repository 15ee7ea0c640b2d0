package service

import (
	"context"
	"fmt"

	"readquest/internal/content"
	"readquest/internal/database"
	"readquest/internal/logger"
	"readquest/internal/models"
	"readquest/internal/repository"
	"readquest/internal/validation"
)

// QuestionGenerator produces a fresh question set for a book
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, book models.Book, difficulty models.Difficulty, count int) ([]models.Question, error)
}

// BookEnricher tops up a book's descriptive material from external sources
type BookEnricher interface {
	EnrichBook(ctx context.Context, bookID string) (*models.Book, error)
}

// QuizService returns cached quizzes and generates missing ones
type QuizService struct {
	books     *repository.BookRepository
	templates *repository.QuizTemplateRepository
	generator QuestionGenerator
	enricher  BookEnricher
}

// NewQuizService creates a quiz service. enricher may be nil.
func NewQuizService(books *repository.BookRepository, templates *repository.QuizTemplateRepository, generator QuestionGenerator, enricher BookEnricher) *QuizService {
	return &QuizService{
		books:     books,
		templates: templates,
		generator: generator,
		enricher:  enricher,
	}
}

// GetQuiz returns the question set for (book, difficulty, count), generating
// and caching it on first request.
func (s *QuizService) GetQuiz(ctx context.Context, bookID string, questionCount int, difficulty string) (*models.Quiz, error) {
	tier, err := models.ParseDifficulty(difficulty)
	if err != nil {
		return nil, invalid(err)
	}
	count, err := validation.QuestionCount(questionCount)
	if err != nil {
		return nil, invalid(err)
	}
	if err := validation.ValidateUUID("bookId", bookID); err != nil {
		return nil, invalid(err)
	}

	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to load book: %w", err)
	}
	if book == nil {
		return nil, ErrBookNotFound
	}

	ageBand := tier.AgeBand()
	tmpl, err := s.templates.Get(ctx, book.ID, ageBand, count)
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz template: %w", err)
	}
	if tmpl != nil {
		return &models.Quiz{Questions: tmpl.Questions, Source: models.QuizSourceCached}, nil
	}

	book, err = s.ensureMaterial(ctx, book)
	if err != nil {
		return nil, err
	}

	questions, err := s.generator.GenerateQuestions(ctx, *book, tier, count)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	if err := ValidateQuestions(questions, count); err != nil {
		logger.Warn("rejected generated quiz", "book_id", book.ID, "age_band", ageBand, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	s.persist(ctx, &models.QuizTemplate{
		BookID:        book.ID,
		AgeBand:       ageBand,
		QuestionCount: count,
		Questions:     questions,
		Source:        models.QuizSourceAIGenerated,
	})

	return &models.Quiz{Questions: questions, Source: models.QuizSourceAIGenerated}, nil
}

// ensureMaterial runs one enrichment pass when the book's description is too
// thin to build questions from.
func (s *QuizService) ensureMaterial(ctx context.Context, book *models.Book) (*models.Book, error) {
	if content.HasSufficientMaterial(book) {
		return book, nil
	}
	if s.enricher != nil {
		enriched, err := s.enricher.EnrichBook(ctx, book.ID)
		if err != nil {
			logger.Warn("enrichment before generation failed", "book_id", book.ID, "error", err)
		} else if enriched != nil {
			book = enriched
		}
	}
	if !content.HasSufficientMaterial(book) {
		return nil, ErrInsufficientData
	}
	return book, nil
}

// persist stores a template without failing the caller. Two concurrent
// first requests may both get here; the unique key keeps one.
func (s *QuizService) persist(ctx context.Context, tmpl *models.QuizTemplate) {
	err := s.templates.Create(ctx, tmpl)
	switch {
	case err == nil:
		logger.Info("cached quiz template", "book_id", tmpl.BookID, "age_band", tmpl.AgeBand, "count", tmpl.QuestionCount)
	case database.IsUniqueViolation(err):
		logger.Debug("quiz template already cached", "book_id", tmpl.BookID, "age_band", tmpl.AgeBand, "count", tmpl.QuestionCount)
	default:
		logger.Warn("failed to cache quiz template", "book_id", tmpl.BookID, "error", err)
	}
}

// DeleteTemplates drops every cached quiz for a book so the next request regenerates
func (s *QuizService) DeleteTemplates(ctx context.Context, bookID string) (int64, error) {
	exists, err := s.books.Exists(ctx, bookID)
	if err != nil {
		return 0, fmt.Errorf("failed to load book: %w", err)
	}
	if !exists {
		return 0, ErrBookNotFound
	}
	deleted, err := s.templates.DeleteForBook(ctx, bookID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete quiz templates: %w", err)
	}
	return deleted, nil
}

// ValidateQuestions requires exactly count well-formed questions. Nothing is
// truncated or padded.
func ValidateQuestions(questions []models.Question, count int) error {
	if len(questions) != count {
		return fmt.Errorf("expected %d questions, got %d", count, len(questions))
	}
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}
