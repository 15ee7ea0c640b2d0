package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"readquest/internal/database"
	"readquest/internal/models"
)

const templateColumns = `id, book_id, age_band, question_count, questions, source, created_at`

// QuizTemplateRepository stores generated question sets
type QuizTemplateRepository struct {
	db database.DBTX
}

func NewQuizTemplateRepository(db database.DBTX) *QuizTemplateRepository {
	return &QuizTemplateRepository{db: db}
}

// Get returns the template for (book, age band, count) or nil
func (r *QuizTemplateRepository) Get(ctx context.Context, bookID, ageBand string, questionCount int) (*models.QuizTemplate, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM quiz_templates
		WHERE book_id = ? AND age_band = ? AND question_count = ?
	`
	var tmpl models.QuizTemplate
	if err := r.db.GetContext(ctx, &tmpl, query, bookID, ageBand, questionCount); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &tmpl, nil
}

// Create inserts a template. A unique violation means another request
// already cached the same key.
func (r *QuizTemplateRepository) Create(ctx context.Context, tmpl *models.QuizTemplate) error {
	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}
	if tmpl.CreatedAt.IsZero() {
		tmpl.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO quiz_templates (` + templateColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		tmpl.ID, tmpl.BookID, tmpl.AgeBand, tmpl.QuestionCount, tmpl.Questions, tmpl.Source, tmpl.CreatedAt,
	)
	return err
}

// ListAgeBands returns the age bands already cached for a book at this size
func (r *QuizTemplateRepository) ListAgeBands(ctx context.Context, bookID string, questionCount int) ([]string, error) {
	bands := []string{}
	query := `SELECT age_band FROM quiz_templates WHERE book_id = ? AND question_count = ? ORDER BY age_band`
	if err := r.db.SelectContext(ctx, &bands, query, bookID, questionCount); err != nil {
		return nil, err
	}
	return bands, nil
}

// DeleteForBook drops every cached template for a book
func (r *QuizTemplateRepository) DeleteForBook(ctx context.Context, bookID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM quiz_templates WHERE book_id = ?`, bookID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *QuizTemplateRepository) ListAll(ctx context.Context) ([]models.QuizTemplate, error) {
	templates := []models.QuizTemplate{}
	query := `SELECT ` + templateColumns + ` FROM quiz_templates ORDER BY book_id, age_band, question_count`
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *QuizTemplateRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM quiz_templates`)
	return count, err
}
