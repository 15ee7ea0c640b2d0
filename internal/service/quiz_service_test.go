package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/google/uuid"

	"readquest/internal/content"
	"readquest/internal/models"
	"readquest/internal/repository"
	"readquest/internal/testutil"
)

func TestGetQuizCachesOnFirstRequest(t *testing.T) {
	db := testutil.NewDB(t)
	gen := &fakeGenerator{}
	svc := newQuizService(db, gen, nil)
	book := seedBook(t, db, "The Gruffalo", longDescription)
	ctx := context.Background()

	first, err := svc.GetQuiz(ctx, book.ID, 5, "medium")
	if err != nil {
		t.Fatalf("GetQuiz() error = %v", err)
	}
	if first.Source != models.QuizSourceAIGenerated || len(first.Questions) != 5 {
		t.Fatalf("first quiz = %s with %d questions", first.Source, len(first.Questions))
	}

	second, err := svc.GetQuiz(ctx, book.ID, 5, "medium")
	if err != nil {
		t.Fatalf("GetQuiz() second error = %v", err)
	}
	if second.Source != models.QuizSourceCached {
		t.Errorf("second source = %s, want cached", second.Source)
	}
	if !reflect.DeepEqual([]models.Question(second.Questions), []models.Question(first.Questions)) {
		t.Errorf("cached questions differ from generated ones")
	}
	if gen.Calls() != 1 {
		t.Errorf("generator called %d times, want 1", gen.Calls())
	}

	// A different size or band is a separate template
	if _, err := svc.GetQuiz(ctx, book.ID, 5, "hard"); err != nil {
		t.Fatalf("GetQuiz(hard) error = %v", err)
	}
	if gen.Calls() != 2 {
		t.Errorf("generator called %d times, want 2", gen.Calls())
	}
}

func TestGetQuizDefaultsQuestionCount(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newQuizService(db, &fakeGenerator{}, nil)
	book := seedBook(t, db, "Room on the Broom", longDescription)

	quiz, err := svc.GetQuiz(context.Background(), book.ID, 0, "easy")
	if err != nil {
		t.Fatalf("GetQuiz() error = %v", err)
	}
	if len(quiz.Questions) != 10 {
		t.Errorf("got %d questions, want 10", len(quiz.Questions))
	}
}

func TestGetQuizRejectsBadInput(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newQuizService(db, &fakeGenerator{}, nil)
	book := seedBook(t, db, "Stick Man", longDescription)

	tests := []struct {
		name       string
		bookID     string
		count      int
		difficulty string
		want       error
	}{
		{name: "unknown difficulty", bookID: book.ID, count: 5, difficulty: "expert", want: ErrValidation},
		{name: "too few questions", bookID: book.ID, count: 2, difficulty: "easy", want: ErrValidation},
		{name: "too many questions", bookID: book.ID, count: 21, difficulty: "easy", want: ErrValidation},
		{name: "malformed book id", bookID: "42", count: 5, difficulty: "easy", want: ErrValidation},
		{name: "missing book", bookID: uuid.NewString(), count: 5, difficulty: "easy", want: ErrBookNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetQuiz(context.Background(), tt.bookID, tt.count, tt.difficulty)
			if !errors.Is(err, tt.want) {
				t.Errorf("GetQuiz() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGetQuizRejectsInvalidGeneration(t *testing.T) {
	tests := []struct {
		name      string
		questions func(count int) []models.Question
	}{
		{name: "too few questions", questions: func(count int) []models.Question { return makeQuestions(count - 1) }},
		{name: "too many questions", questions: func(count int) []models.Question { return makeQuestions(count + 1) }},
		{name: "two options", questions: func(count int) []models.Question {
			qs := makeQuestions(count)
			qs[1].Options = qs[1].Options[:2]
			return qs
		}},
		{name: "index out of range", questions: func(count int) []models.Question {
			qs := makeQuestions(count)
			qs[0].CorrectIndex = 3
			return qs
		}},
		{name: "blank question", questions: func(count int) []models.Question {
			qs := makeQuestions(count)
			qs[2].Question = "  "
			return qs
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewDB(t)
			svc := newQuizService(db, &fakeGenerator{questions: tt.questions}, nil)
			book := seedBook(t, db, "Zog", longDescription)

			_, err := svc.GetQuiz(context.Background(), book.ID, 5, "easy")
			if !errors.Is(err, ErrGenerationFailed) {
				t.Fatalf("GetQuiz() error = %v, want ErrGenerationFailed", err)
			}

			count, err := repository.NewQuizTemplateRepository(db).Count(context.Background())
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if count != 0 {
				t.Errorf("invalid quiz was persisted")
			}
		})
	}
}

func TestGetQuizUpstreamFailureIsDistinguishable(t *testing.T) {
	db := testutil.NewDB(t)
	upstream := &content.UpstreamError{Service: "ai", StatusCode: 503}
	svc := newQuizService(db, &fakeGenerator{err: upstream}, nil)
	book := seedBook(t, db, "Tiddler", longDescription)

	_, err := svc.GetQuiz(context.Background(), book.ID, 5, "easy")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("error = %v, want ErrGenerationFailed", err)
	}
	if !errors.Is(err, content.ErrUpstream) {
		t.Errorf("upstream cause lost: %v", err)
	}
	if errors.Is(err, ErrInsufficientData) {
		t.Errorf("upstream failure reported as insufficient data")
	}
}

type stubEnricher struct {
	calls       int
	description string
	books       *repository.BookRepository
}

func (e *stubEnricher) EnrichBook(ctx context.Context, bookID string) (*models.Book, error) {
	e.calls++
	book, err := e.books.GetByID(ctx, bookID)
	if err != nil || book == nil {
		return book, err
	}
	if e.description != "" {
		book.Description = e.description
		if err := e.books.Update(ctx, book); err != nil {
			return nil, err
		}
	}
	return book, nil
}

func TestGetQuizRequiresSourceMaterial(t *testing.T) {
	db := testutil.NewDB(t)
	books := repository.NewBookRepository(db)

	t.Run("insufficient after enrichment", func(t *testing.T) {
		gen := &fakeGenerator{}
		enricher := &stubEnricher{books: books}
		svc := newQuizService(db, gen, enricher)
		book := seedBook(t, db, "Short Blurb", "Too short.")

		_, err := svc.GetQuiz(context.Background(), book.ID, 5, "easy")
		if !errors.Is(err, ErrInsufficientData) {
			t.Fatalf("error = %v, want ErrInsufficientData", err)
		}
		if errors.Is(err, ErrGenerationFailed) {
			t.Errorf("insufficient data reported as generation failure")
		}
		if enricher.calls != 1 || gen.Calls() != 0 {
			t.Errorf("enricher calls = %d, generator calls = %d", enricher.calls, gen.Calls())
		}
	})

	t.Run("enrichment fills the gap", func(t *testing.T) {
		gen := &fakeGenerator{}
		svc := newQuizService(db, gen, &stubEnricher{books: books, description: longDescription})
		book := seedBook(t, db, "Thin Record", "")

		quiz, err := svc.GetQuiz(context.Background(), book.ID, 5, "easy")
		if err != nil {
			t.Fatalf("GetQuiz() error = %v", err)
		}
		if quiz.Source != models.QuizSourceAIGenerated {
			t.Errorf("source = %s", quiz.Source)
		}
	})

	t.Run("no enricher configured", func(t *testing.T) {
		svc := newQuizService(db, &fakeGenerator{}, nil)
		book := seedBook(t, db, "No Enricher", "tiny")
		if _, err := svc.GetQuiz(context.Background(), book.ID, 5, "easy"); !errors.Is(err, ErrInsufficientData) {
			t.Fatalf("error = %v, want ErrInsufficientData", err)
		}
	})
}

func TestGetQuizConcurrentFirstRequests(t *testing.T) {
	db := testutil.NewDB(t)
	svc := newQuizService(db, &fakeGenerator{}, nil)
	book := seedBook(t, db, "The Snail and the Whale", longDescription)

	const workers = 4
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for n := 0; n < workers; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			quiz, err := svc.GetQuiz(context.Background(), book.ID, 4, "medium")
			if err == nil && len(quiz.Questions) != 4 {
				err = errors.New("wrong question count")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent GetQuiz() error = %v", err)
		}
	}

	count, err := repository.NewQuizTemplateRepository(db).Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("templates stored = %d, want 1", count)
	}
}

func TestDeleteTemplatesForcesRegeneration(t *testing.T) {
	db := testutil.NewDB(t)
	gen := &fakeGenerator{}
	svc := newQuizService(db, gen, nil)
	book := seedBook(t, db, "Superworm", longDescription)
	ctx := context.Background()

	if _, err := svc.GetQuiz(ctx, book.ID, 3, "easy"); err != nil {
		t.Fatalf("GetQuiz() error = %v", err)
	}
	deleted, err := svc.DeleteTemplates(ctx, book.ID)
	if err != nil || deleted != 1 {
		t.Fatalf("DeleteTemplates() = %d, %v", deleted, err)
	}
	quiz, err := svc.GetQuiz(ctx, book.ID, 3, "easy")
	if err != nil {
		t.Fatalf("GetQuiz() error = %v", err)
	}
	if quiz.Source != models.QuizSourceAIGenerated || gen.Calls() != 2 {
		t.Errorf("expected regeneration, source = %s calls = %d", quiz.Source, gen.Calls())
	}

	if _, err := svc.DeleteTemplates(ctx, uuid.NewString()); !errors.Is(err, ErrBookNotFound) {
		t.Errorf("DeleteTemplates(missing) error = %v", err)
	}
}
