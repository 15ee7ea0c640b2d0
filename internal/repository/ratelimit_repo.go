package repository

import (
	"context"
	"time"

	"readquest/internal/database"
)

// RateLimitRepository stores one row per rate-limited request
type RateLimitRepository struct {
	db database.DBTX
}

func NewRateLimitRepository(db database.DBTX) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// Log records a request
func (r *RateLimitRepository) Log(ctx context.Context, clientIP, endpoint string, at time.Time) error {
	query := `INSERT INTO rate_limit_log (client_ip, endpoint, created_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecReturningID(ctx, query, clientIP, endpoint, at.UTC())
	return err
}

// CountSince counts requests for (ip, endpoint) strictly after since
func (r *RateLimitRepository) CountSince(ctx context.Context, clientIP, endpoint string, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM rate_limit_log WHERE client_ip = ? AND endpoint = ? AND created_at > ?`
	err := r.db.GetContext(ctx, &count, query, clientIP, endpoint, since.UTC())
	return count, err
}

// NthSince returns the n-th oldest (zero-based) request logged after since,
// or the zero time when there are not that many.
func (r *RateLimitRepository) NthSince(ctx context.Context, clientIP, endpoint string, since time.Time, n int) (time.Time, error) {
	var oldest []time.Time
	query := `
		SELECT created_at FROM rate_limit_log
		WHERE client_ip = ? AND endpoint = ? AND created_at > ?
		ORDER BY created_at
		LIMIT 1 OFFSET ?
	`
	if err := r.db.SelectContext(ctx, &oldest, query, clientIP, endpoint, since.UTC(), n); err != nil {
		return time.Time{}, err
	}
	if len(oldest) == 0 {
		return time.Time{}, nil
	}
	return oldest[0], nil
}

// DeleteBefore prunes rows older than cutoff
func (r *RateLimitRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rate_limit_log WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
