package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"readquest/internal/database"
	"readquest/internal/models"
)

const bookColumns = `id, title, author, cover_url, description, age_min, age_max, source, source_id, created_at, updated_at`

// BookRepository handles book catalog database operations
type BookRepository struct {
	db database.DBTX
}

// NewBookRepository creates a new book repository
func NewBookRepository(db database.DBTX) *BookRepository {
	return &BookRepository{db: db}
}

// Create inserts a book, assigning an id when none is set
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	if book.Source == "" {
		book.Source = models.BookSourceManual
	}
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now

	query := `
		INSERT INTO books (` + bookColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		book.ID, book.Title, book.Author, book.CoverURL, book.Description,
		book.AgeMin, book.AgeMax, book.Source, book.SourceID, book.CreatedAt, book.UpdatedAt,
	)
	return err
}

// GetByID retrieves a book by id, returning nil when it does not exist
func (r *BookRepository) GetByID(ctx context.Context, id string) (*models.Book, error) {
	return r.getOne(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
}

// GetBySourceID retrieves a book by its upstream identifier
func (r *BookRepository) GetBySourceID(ctx context.Context, sourceID string) (*models.Book, error) {
	return r.getOne(ctx, `SELECT `+bookColumns+` FROM books WHERE source_id = ?`, sourceID)
}

func (r *BookRepository) getOne(ctx context.Context, query string, args ...any) (*models.Book, error) {
	var book models.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &book, nil
}

// UpsertBySourceID stores an imported book keyed by source_id. Existing rows
// get fresh metadata but keep whichever description is longer.
func (r *BookRepository) UpsertBySourceID(ctx context.Context, book *models.Book) (*models.Book, error) {
	sourceID := book.ExternalID()
	if sourceID == "" {
		return nil, fmt.Errorf("book %q has no source id", book.Title)
	}

	existing, err := r.GetBySourceID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		err := r.Create(ctx, book)
		if err == nil {
			return book, nil
		}
		if !database.IsUniqueViolation(err) {
			return nil, err
		}
		// Lost a race with a concurrent import of the same volume
		existing, err = r.GetBySourceID(ctx, sourceID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload book %s: %w", sourceID, err)
		}
		if existing == nil {
			return nil, fmt.Errorf("book %s vanished during upsert", sourceID)
		}
	}

	existing.Title = book.Title
	if book.Author != "" {
		existing.Author = book.Author
	}
	if book.CoverURL != "" {
		existing.CoverURL = book.CoverURL
	}
	if len(book.Description) > len(existing.Description) {
		existing.Description = book.Description
	}
	if book.AgeMin > 0 {
		existing.AgeMin = book.AgeMin
		existing.AgeMax = book.AgeMax
	}
	if err := r.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Update writes all mutable metadata columns
func (r *BookRepository) Update(ctx context.Context, book *models.Book) error {
	book.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE books
		SET title = ?, author = ?, cover_url = ?, description = ?, age_min = ?, age_max = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		book.Title, book.Author, book.CoverURL, book.Description,
		book.AgeMin, book.AgeMax, book.UpdatedAt, book.ID,
	)
	return err
}

// SearchLocal matches title or author case-insensitively
func (r *BookRepository) SearchLocal(ctx context.Context, term string, limit int) ([]models.Book, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
	query := `
		SELECT ` + bookColumns + `
		FROM books
		WHERE LOWER(title) LIKE ? OR LOWER(author) LIKE ?
		ORDER BY title
		LIMIT ?
	`
	books := []models.Book{}
	if err := r.db.SelectContext(ctx, &books, query, pattern, pattern, limit); err != nil {
		return nil, err
	}
	return books, nil
}

// Delete removes a book; dependent templates, history and caches cascade
func (r *BookRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListMissingTemplates returns books that lack a template of the given size
// for at least one of bandCount age bands. Books never attempted come first,
// then the least recently attempted, so books that keep failing cannot
// starve the rest of the catalog.
func (r *BookRepository) ListMissingTemplates(ctx context.Context, questionCount, bandCount, limit int) ([]models.Book, error) {
	query := `
		SELECT ` + bookColumns + `
		FROM books b
		WHERE (
			SELECT COUNT(*) FROM quiz_templates t
			WHERE t.book_id = b.id AND t.question_count = ?
		) < ?
		ORDER BY CASE WHEN b.pregen_attempted_at IS NULL THEN 0 ELSE 1 END,
		         b.pregen_attempted_at, b.created_at, b.id
		LIMIT ?
	`
	books := []models.Book{}
	if err := r.db.SelectContext(ctx, &books, query, questionCount, bandCount, limit); err != nil {
		return nil, err
	}
	return books, nil
}

// MarkPregenAttempted records when pre-generation last visited a book
func (r *BookRepository) MarkPregenAttempted(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE books SET pregen_attempted_at = ? WHERE id = ?`, at.UTC(), id)
	return err
}

// ListAll returns the full catalog
func (r *BookRepository) ListAll(ctx context.Context) ([]models.Book, error) {
	books := []models.Book{}
	if err := r.db.SelectContext(ctx, &books, `SELECT `+bookColumns+` FROM books ORDER BY created_at, id`); err != nil {
		return nil, err
	}
	return books, nil
}

// Count returns the number of books in the catalog
func (r *BookRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM books`)
	return count, err
}

// Exists reports whether a book with this id is present
func (r *BookRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM books WHERE id = ?`, id); err != nil {
		return false, err
	}
	return count > 0, nil
}
