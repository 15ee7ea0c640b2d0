package models

import "time"

// Event types
const (
	EventQuizStarted   = "quiz_started"
	EventQuizCompleted = "quiz_completed"
)

// Event is an append-only analytics record. AgeBand carries the difficulty
// tier name (easy/medium/hard).
type Event struct {
	ID        int64     `db:"id" json:"id"`
	EventType string    `db:"event_type" json:"event_type"`
	BookID    string    `db:"book_id" json:"book_id"`
	AgeBand   *string   `db:"age_band" json:"age_band,omitempty"`
	Score     *int      `db:"score" json:"score,omitempty"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type UserRole struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Role      string    `db:"role" json:"role"`
	GrantedAt time.Time `db:"granted_at" json:"granted_at"`
}

// RoleAdmin is the only role the service checks
const RoleAdmin = "admin"

// DailyCount is one bucket of a per-day aggregate
type DailyCount struct {
	Day       string `db:"day" json:"day"`
	EventType string `db:"event_type" json:"event_type"`
	Count     int    `db:"count" json:"count"`
}

type AnalyticsOverview struct {
	Days             int              `json:"days"`
	ActiveUsers      int              `json:"active_users"`
	QuizzesCompleted int              `json:"quizzes_completed"`
	Books            int              `json:"books"`
	Templates        int              `json:"templates"`
	StartedEvents    int              `json:"started_events"`
	CompletedEvents  int              `json:"completed_events"`
	CompletionRate   float64          `json:"completion_rate"`
	EventsPerDay     []DailyCount     `json:"events_per_day"`
	PopularBooks     []BookPopularity `json:"popular_books"`
}
