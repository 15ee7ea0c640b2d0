package models

import "time"

// Book sources
const (
	BookSourceManual      = "manual"
	BookSourceGoogleBooks = "google_books"
	BookSourceOpenLibrary = "open_library"
)

type Book struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Author      string    `db:"author" json:"author"`
	CoverURL    string    `db:"cover_url" json:"cover_url"`
	Description string    `db:"description" json:"description"`
	AgeMin      int       `db:"age_min" json:"age_min"`
	AgeMax      int       `db:"age_max" json:"age_max"`
	Source      string    `db:"source" json:"source"`
	SourceID    *string   `db:"source_id" json:"source_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ExternalID returns the upstream identifier or "" for manually added books
func (b *Book) ExternalID() string {
	if b.SourceID == nil {
		return ""
	}
	return *b.SourceID
}

// BookVideo caches the result of a read-aloud video lookup. A row with
// HasVideo=false is a cached miss.
type BookVideo struct {
	BookID       string    `db:"book_id" json:"-"`
	HasVideo     bool      `db:"has_video" json:"hasVideo"`
	VideoID      string    `db:"video_id" json:"videoId,omitempty"`
	Title        string    `db:"title" json:"title,omitempty"`
	ChannelTitle string    `db:"channel_title" json:"channelTitle,omitempty"`
	FetchedAt    time.Time `db:"fetched_at" json:"-"`
}

type BookPopularity struct {
	BookID      string    `db:"book_id" json:"book_id"`
	Title       string    `db:"title" json:"title"`
	Completions int       `db:"completions" json:"completions"`
	Starts      int       `db:"starts" json:"starts"`
	AvgScore    float64   `db:"avg_score" json:"avg_score"`
	ComputedAt  time.Time `db:"computed_at" json:"computed_at"`
}
