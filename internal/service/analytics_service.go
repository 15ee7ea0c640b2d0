package service

import (
	"context"
	"fmt"
	"time"

	"readquest/internal/database"
	"readquest/internal/logger"
	"readquest/internal/models"
	"readquest/internal/repository"
)

const (
	defaultAnalyticsDays = 30
	maxAnalyticsDays     = 365
	popularBooksLimit    = 10
)

// AnalyticsService builds the admin overview
type AnalyticsService struct {
	db         *database.DB
	events     *repository.EventRepository
	history    *repository.HistoryRepository
	stats      *repository.StatsRepository
	books      *repository.BookRepository
	templates  *repository.QuizTemplateRepository
	popularity *repository.PopularityRepository
	now        func() time.Time
}

func NewAnalyticsService(db *database.DB, events *repository.EventRepository, history *repository.HistoryRepository, stats *repository.StatsRepository, books *repository.BookRepository, templates *repository.QuizTemplateRepository, popularity *repository.PopularityRepository) *AnalyticsService {
	return &AnalyticsService{
		db:         db,
		events:     events,
		history:    history,
		stats:      stats,
		books:      books,
		templates:  templates,
		popularity: popularity,
		now:        time.Now,
	}
}

// Overview aggregates usage over the last days (default 30)
func (s *AnalyticsService) Overview(ctx context.Context, days int) (*models.AnalyticsOverview, error) {
	if days == 0 {
		days = defaultAnalyticsDays
	}
	if days < 1 || days > maxAnalyticsDays {
		return nil, invalid(fmt.Errorf("days must be between 1 and %d", maxAnalyticsDays))
	}
	since := s.now().UTC().AddDate(0, 0, -days)

	overview := &models.AnalyticsOverview{Days: days}
	var err error

	if overview.ActiveUsers, err = s.stats.CountUsers(ctx); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if overview.QuizzesCompleted, err = s.history.CountSince(ctx, since); err != nil {
		return nil, fmt.Errorf("failed to count quizzes: %w", err)
	}
	if overview.Books, err = s.books.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}
	if overview.Templates, err = s.templates.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count templates: %w", err)
	}

	byType, err := s.events.CountByType(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	overview.StartedEvents = byType[models.EventQuizStarted]
	overview.CompletedEvents = byType[models.EventQuizCompleted]
	overview.CompletionRate = CompletionRate(overview.StartedEvents, overview.CompletedEvents)

	if overview.EventsPerDay, err = s.events.DailyCounts(ctx, since); err != nil {
		return nil, fmt.Errorf("failed to count daily events: %w", err)
	}
	if overview.PopularBooks, err = s.popularity.Top(ctx, popularBooksLimit); err != nil {
		return nil, fmt.Errorf("failed to load popular books: %w", err)
	}
	return overview, nil
}

// CompletionRate is completed/started, capped at 1
func CompletionRate(started, completed int) float64 {
	if started <= 0 {
		return 0
	}
	rate := float64(completed) / float64(started)
	if rate > 1 {
		return 1
	}
	return rate
}

// RecomputePopularity rebuilds the book_popularity aggregate atomically
func (s *AnalyticsService) RecomputePopularity(ctx context.Context) error {
	var rows int64
	err := s.db.InTx(ctx, func(tx *database.Tx) error {
		var err error
		rows, err = s.popularity.WithTx(tx).Rebuild(ctx, s.now().UTC())
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to recompute popularity: %w", err)
	}
	logger.Debug("book popularity recomputed", "books", rows)
	return nil
}
