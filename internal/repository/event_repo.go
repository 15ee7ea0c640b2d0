package repository

import (
	"context"
	"time"

	"readquest/internal/database"
	"readquest/internal/models"
)

// EventRepository handles analytics events
type EventRepository struct {
	db database.DBTX
}

func NewEventRepository(db database.DBTX) *EventRepository {
	return &EventRepository{db: db}
}

// Create appends an event and fills in its id
func (r *EventRepository) Create(ctx context.Context, e *models.Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO events (event_type, book_id, age_band, score, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, e.EventType, e.BookID, e.AgeBand, e.Score, e.UserID, e.CreatedAt)
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// CountByType counts events per type since a point in time
func (r *EventRepository) CountByType(ctx context.Context, since time.Time) (map[string]int, error) {
	var rows []struct {
		EventType string `db:"event_type"`
		Count     int    `db:"count"`
	}
	query := `SELECT event_type, COUNT(*) AS count FROM events WHERE created_at >= ? GROUP BY event_type`
	if err := r.db.SelectContext(ctx, &rows, query, since.UTC()); err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.EventType] = row.Count
	}
	return counts, nil
}

// DailyCounts buckets events by calendar day (UTC) and type
func (r *EventRepository) DailyCounts(ctx context.Context, since time.Time) ([]models.DailyCount, error) {
	day := r.db.GetDialect().DateExpr("created_at")
	query := `
		SELECT ` + day + ` AS day, event_type, COUNT(*) AS count
		FROM events
		WHERE created_at >= ?
		GROUP BY ` + day + `, event_type
		ORDER BY day, event_type
	`
	counts := []models.DailyCount{}
	if err := r.db.SelectContext(ctx, &counts, query, since.UTC()); err != nil {
		return nil, err
	}
	return counts, nil
}

// ListRecent returns the newest events first
func (r *EventRepository) ListRecent(ctx context.Context, limit int) ([]models.Event, error) {
	events := []models.Event{}
	query := `
		SELECT id, event_type, book_id, age_band, score, user_id, created_at
		FROM events
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	if err := r.db.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, err
	}
	return events, nil
}
