package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"readquest/internal/database"
	"readquest/internal/models"
)

// HistoryRepository handles the append-only quiz_history table
type HistoryRepository struct {
	db database.DBTX
}

func NewHistoryRepository(db database.DBTX) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// WithTx returns a copy bound to a transaction
func (r *HistoryRepository) WithTx(tx database.DBTX) *HistoryRepository {
	return &HistoryRepository{db: tx}
}

// Create appends a completed attempt
func (r *HistoryRepository) Create(ctx context.Context, h *models.QuizHistory) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.CompletedAt.IsZero() {
		h.CompletedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO quiz_history (id, user_id, book_id, score, total_questions, difficulty, points_earned, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		h.ID, h.UserID, h.BookID, h.Score, h.TotalQuestions, h.Difficulty, h.PointsEarned, h.CompletedAt,
	)
	return err
}

// HasCompletedBook reports whether the user already has history for the book
func (r *HistoryRepository) HasCompletedBook(ctx context.Context, userID, bookID string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM quiz_history WHERE user_id = ? AND book_id = ?`
	if err := r.db.GetContext(ctx, &count, query, userID, bookID); err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListRecent returns the newest attempts first
func (r *HistoryRepository) ListRecent(ctx context.Context, userID string, limit int) ([]models.QuizHistory, error) {
	query := `
		SELECT h.id, h.user_id, h.book_id, COALESCE(b.title, '') AS book_title, h.score,
		       h.total_questions, h.difficulty, h.points_earned, h.completed_at
		FROM quiz_history h
		LEFT JOIN books b ON b.id = h.book_id
		WHERE h.user_id = ?
		ORDER BY h.completed_at DESC, h.id
		LIMIT ?
	`
	history := []models.QuizHistory{}
	if err := r.db.SelectContext(ctx, &history, query, userID, limit); err != nil {
		return nil, err
	}
	return history, nil
}

// CountByUser returns how many attempts a user has recorded
func (r *HistoryRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM quiz_history WHERE user_id = ?`, userID)
	return count, err
}

// CountSince counts completions across all users after a point in time
func (r *HistoryRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM quiz_history WHERE completed_at >= ?`, since.UTC())
	return count, err
}
