package repository

import (
	"context"
	"time"

	"readquest/internal/database"
	"readquest/internal/models"
)

// BookVideoRepository caches read-aloud video lookups
type BookVideoRepository struct {
	db database.DBTX
}

func NewBookVideoRepository(db database.DBTX) *BookVideoRepository {
	return &BookVideoRepository{db: db}
}

func (r *BookVideoRepository) Get(ctx context.Context, bookID string) (*models.BookVideo, error) {
	var video models.BookVideo
	query := `SELECT book_id, has_video, video_id, title, channel_title, fetched_at FROM book_videos WHERE book_id = ?`
	if err := r.db.GetContext(ctx, &video, query, bookID); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &video, nil
}

// Save stores a lookup result, replacing any earlier one
func (r *BookVideoRepository) Save(ctx context.Context, v *models.BookVideo) error {
	if v.FetchedAt.IsZero() {
		v.FetchedAt = time.Now().UTC()
	}
	insert := `
		INSERT INTO book_videos (book_id, has_video, video_id, title, channel_title, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, insert, v.BookID, v.HasVideo, v.VideoID, v.Title, v.ChannelTitle, v.FetchedAt)
	if err == nil || !database.IsUniqueViolation(err) {
		return err
	}

	update := `
		UPDATE book_videos
		SET has_video = ?, video_id = ?, title = ?, channel_title = ?, fetched_at = ?
		WHERE book_id = ?
	`
	_, err = r.db.ExecContext(ctx, update, v.HasVideo, v.VideoID, v.Title, v.ChannelTitle, v.FetchedAt, v.BookID)
	return err
}
