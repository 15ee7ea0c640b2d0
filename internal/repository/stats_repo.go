package repository

import (
	"context"
	"time"

	"readquest/internal/database"
	"readquest/internal/models"
)

const statsColumns = `user_id, total_points, quizzes_completed, books_read, current_streak, longest_streak, last_quiz_date, updated_at`

// StatsRepository reads and writes user_stats rows
type StatsRepository struct {
	db database.DBTX
}

func NewStatsRepository(db database.DBTX) *StatsRepository {
	return &StatsRepository{db: db}
}

// WithTx returns a copy bound to a transaction
func (r *StatsRepository) WithTx(tx database.DBTX) *StatsRepository {
	return &StatsRepository{db: tx}
}

// Get returns the user's stats or nil if they have none yet
func (r *StatsRepository) Get(ctx context.Context, userID string) (*models.UserStats, error) {
	var stats models.UserStats
	err := r.db.GetContext(ctx, &stats, `SELECT `+statsColumns+` FROM user_stats WHERE user_id = ?`, userID)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &stats, nil
}

// GetForUpdate reads the user's stats and locks the row until the
// surrounding transaction ends
func (r *StatsRepository) GetForUpdate(ctx context.Context, userID string) (*models.UserStats, error) {
	query := `SELECT ` + statsColumns + ` FROM user_stats WHERE user_id = ?` + r.db.GetDialect().ForUpdate()
	var stats models.UserStats
	if err := r.db.GetContext(ctx, &stats, query, userID); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &stats, nil
}

// Ensure creates an empty stats row unless one exists. It is safe to race:
// a concurrent insert for the same user is skipped, not reported.
func (r *StatsRepository) Ensure(ctx context.Context, userID string) error {
	query := r.db.GetDialect().InsertIgnore("user_stats", statsColumns, "?, ?, ?, ?, ?, ?, ?, ?", "user_id")
	_, err := r.db.ExecContext(ctx, query, userID, 0, 0, 0, 0, 0, nil, time.Now().UTC())
	return err
}

// Update overwrites every counter for an existing row
func (r *StatsRepository) Update(ctx context.Context, s *models.UserStats) error {
	s.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE user_stats
		SET total_points = ?, quizzes_completed = ?, books_read = ?, current_streak = ?,
		    longest_streak = ?, last_quiz_date = ?, updated_at = ?
		WHERE user_id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		s.TotalPoints, s.QuizzesCompleted, s.BooksRead, s.CurrentStreak,
		s.LongestStreak, s.LastQuizDate, s.UpdatedAt, s.UserID,
	)
	return err
}

// AddPoints increments total_points in place
func (r *StatsRepository) AddPoints(ctx context.Context, userID string, delta int) error {
	query := `UPDATE user_stats SET total_points = total_points + ?, updated_at = ? WHERE user_id = ?`
	_, err := r.db.ExecContext(ctx, query, delta, time.Now().UTC(), userID)
	return err
}

// CountUsers returns how many users have played at least once
func (r *StatsRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM user_stats`)
	return count, err
}
