package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"readquest/internal/database"
	"readquest/internal/models"
	"readquest/internal/repository"
)

var longDescription = strings.Repeat("A small mouse takes a walk through a deep dark wood and meets a fox, an owl and a snake. ", 3)

func seedBook(t *testing.T, db *database.DB, title, description string) *models.Book {
	t.Helper()
	book := &models.Book{Title: title, Author: "Julia Donaldson", Description: description}
	if err := repository.NewBookRepository(db).Create(context.Background(), book); err != nil {
		t.Fatalf("create book: %v", err)
	}
	return book
}

func makeQuestions(n int) []models.Question {
	qs := make([]models.Question, n)
	for i := range qs {
		qs[i] = models.Question{
			Question:     fmt.Sprintf("Question %d?", i+1),
			Options:      []string{"one", "two", "three"},
			CorrectIndex: i % 3,
		}
	}
	return qs
}

// fakeGenerator returns canned questions and counts calls
type fakeGenerator struct {
	mu        sync.Mutex
	calls     int
	err       error
	questions func(count int) []models.Question
}

func (g *fakeGenerator) GenerateQuestions(_ context.Context, _ models.Book, _ models.Difficulty, count int) ([]models.Question, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	if g.questions != nil {
		return g.questions(count), nil
	}
	return makeQuestions(count), nil
}

func (g *fakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func newQuizService(db *database.DB, gen QuestionGenerator, enricher BookEnricher) *QuizService {
	return NewQuizService(repository.NewBookRepository(db), repository.NewQuizTemplateRepository(db), gen, enricher)
}

func newGamificationService(t *testing.T, db *database.DB) *GamificationService {
	t.Helper()
	svc := NewGamificationService(db,
		repository.NewStatsRepository(db),
		repository.NewHistoryRepository(db),
		repository.NewAchievementRepository(db),
		repository.NewBookRepository(db),
		nil,
	)
	if err := svc.SeedCatalog(context.Background()); err != nil {
		t.Fatalf("SeedCatalog() error = %v", err)
	}
	return svc
}
