package repository

import (
	"context"
	"time"

	"readquest/internal/database"
	"readquest/internal/models"
)

// PopularityRepository maintains the book_popularity aggregate
type PopularityRepository struct {
	db database.DBTX
}

func NewPopularityRepository(db database.DBTX) *PopularityRepository {
	return &PopularityRepository{db: db}
}

// WithTx returns a copy bound to a transaction
func (r *PopularityRepository) WithTx(tx database.DBTX) *PopularityRepository {
	return &PopularityRepository{db: tx}
}

// Rebuild replaces the aggregate from the events table. Events for books
// that no longer exist are ignored.
func (r *PopularityRepository) Rebuild(ctx context.Context, at time.Time) (int64, error) {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM book_popularity`); err != nil {
		return 0, err
	}

	query := `
		INSERT INTO book_popularity (book_id, completions, starts, avg_score, computed_at)
		SELECT e.book_id,
		       SUM(CASE WHEN e.event_type = 'quiz_completed' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN e.event_type = 'quiz_started' THEN 1 ELSE 0 END),
		       COALESCE(AVG(CASE WHEN e.event_type = 'quiz_completed' THEN e.score END), 0),
		       ?
		FROM events e
		JOIN books b ON b.id = e.book_id
		GROUP BY e.book_id
	`
	result, err := r.db.ExecContext(ctx, query, at.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Top returns the most completed books
func (r *PopularityRepository) Top(ctx context.Context, limit int) ([]models.BookPopularity, error) {
	query := `
		SELECT p.book_id, b.title, p.completions, p.starts, p.avg_score, p.computed_at
		FROM book_popularity p
		JOIN books b ON b.id = p.book_id
		ORDER BY p.completions DESC, p.starts DESC, b.title
		LIMIT ?
	`
	rows := []models.BookPopularity{}
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, err
	}
	return rows, nil
}
