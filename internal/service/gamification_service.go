package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"readquest/internal/database"
	"readquest/internal/logger"
	"readquest/internal/models"
	"readquest/internal/repository"
)

// PointsPerCorrectAnswer is the only scoring rule; every caller uses PointsForScore
const PointsPerCorrectAnswer = 10

// PointsForScore converts a quiz score into points
func PointsForScore(score, total int) int {
	return score * PointsPerCorrectAnswer
}

// DefaultAchievements is the catalog seeded at startup
var DefaultAchievements = []models.Achievement{
	{Code: "first_quiz", Name: "First Steps", Description: "Complete your first quiz", CriteriaType: models.CriteriaQuizzesCompleted, CriteriaValue: 1, PointsReward: 10, Icon: "footprints"},
	{Code: "quiz_explorer", Name: "Quiz Explorer", Description: "Complete 10 quizzes", CriteriaType: models.CriteriaQuizzesCompleted, CriteriaValue: 10, PointsReward: 50, Icon: "compass"},
	{Code: "quiz_master", Name: "Quiz Master", Description: "Complete 50 quizzes", CriteriaType: models.CriteriaQuizzesCompleted, CriteriaValue: 50, PointsReward: 200, Icon: "crown"},
	{Code: "bookworm", Name: "Bookworm", Description: "Take quizzes on 5 different books", CriteriaType: models.CriteriaBooksRead, CriteriaValue: 5, PointsReward: 50, Icon: "book"},
	{Code: "library_legend", Name: "Library Legend", Description: "Take quizzes on 25 different books", CriteriaType: models.CriteriaBooksRead, CriteriaValue: 25, PointsReward: 150, Icon: "library"},
	{Code: "points_100", Name: "Century", Description: "Earn 100 points", CriteriaType: models.CriteriaTotalPoints, CriteriaValue: 100, PointsReward: 10, Icon: "star"},
	{Code: "points_1000", Name: "Point Collector", Description: "Earn 1000 points", CriteriaType: models.CriteriaTotalPoints, CriteriaValue: 1000, PointsReward: 100, Icon: "gem"},
	{Code: "streak_3", Name: "On a Roll", Description: "Read 3 days in a row", CriteriaType: models.CriteriaCurrentStreak, CriteriaValue: 3, PointsReward: 30, Icon: "flame"},
	{Code: "streak_7", Name: "Week Warrior", Description: "Read 7 days in a row", CriteriaType: models.CriteriaCurrentStreak, CriteriaValue: 7, PointsReward: 70, Icon: "calendar"},
	{Code: "perfect_score", Name: "Perfect!", Description: "Answer every question correctly", CriteriaType: models.CriteriaPerfectScore, CriteriaValue: 1, PointsReward: 25, Icon: "trophy"},
}

// Completion describes one finished quiz
type Completion struct {
	UserID         string
	BookID         string
	Score          int
	TotalQuestions int
	Difficulty     string
	PointsEarned   int
}

// GamificationService updates stats, streaks and achievements
type GamificationService struct {
	db           *database.DB
	stats        *repository.StatsRepository
	history      *repository.HistoryRepository
	achievements *repository.AchievementRepository
	books        *repository.BookRepository
	loc          *time.Location
	now          func() time.Time
}

// NewGamificationService creates the engine. Calendar days are evaluated in loc.
func NewGamificationService(db *database.DB, stats *repository.StatsRepository, history *repository.HistoryRepository, achievements *repository.AchievementRepository, books *repository.BookRepository, loc *time.Location) *GamificationService {
	if loc == nil {
		loc = time.UTC
	}
	return &GamificationService{
		db:           db,
		stats:        stats,
		history:      history,
		achievements: achievements,
		books:        books,
		loc:          loc,
		now:          time.Now,
	}
}

// SetClock overrides the time source
func (s *GamificationService) SetClock(now func() time.Time) {
	s.now = now
}

// SeedCatalog makes sure every default achievement exists
func (s *GamificationService) SeedCatalog(ctx context.Context) error {
	added, err := s.achievements.EnsureCatalog(ctx, DefaultAchievements)
	if err != nil {
		return fmt.Errorf("failed to seed achievements: %w", err)
	}
	if added > 0 {
		logger.Info("seeded achievement catalog", "added", added)
	}
	return nil
}

func (c Completion) validate() (models.Difficulty, error) {
	if strings.TrimSpace(c.UserID) == "" {
		return "", invalid(errors.New("user id is required"))
	}
	if strings.TrimSpace(c.BookID) == "" {
		return "", invalid(errors.New("book id is required"))
	}
	if c.TotalQuestions < 1 {
		return "", invalid(errors.New("total questions must be at least 1"))
	}
	if c.Score < 0 || c.Score > c.TotalQuestions {
		return "", invalid(fmt.Errorf("score must be between 0 and %d", c.TotalQuestions))
	}
	if c.PointsEarned != PointsForScore(c.Score, c.TotalQuestions) {
		return "", invalid(fmt.Errorf("points earned must be %d for a score of %d", PointsForScore(c.Score, c.TotalQuestions), c.Score))
	}
	d, err := models.ParseDifficulty(c.Difficulty)
	if err != nil {
		return "", invalid(err)
	}
	return d, nil
}

// RecordQuizCompletion applies a finished quiz to the user's stats, appends
// history and awards newly met achievements. The stats row is locked for the
// read-modify-write so concurrent completions for one user queue up instead
// of overwriting each other. The stats update and history append commit
// together; achievement rows follow in their own transaction. The returned
// stats include achievement rewards.
func (s *GamificationService) RecordQuizCompletion(ctx context.Context, c Completion) (*models.CompletionResult, error) {
	difficulty, err := c.validate()
	if err != nil {
		return nil, err
	}

	exists, err := s.books.Exists(ctx, c.BookID)
	if err != nil {
		return nil, fmt.Errorf("failed to load book: %w", err)
	}
	if !exists {
		return nil, ErrBookNotFound
	}

	now := s.now()
	today := now.In(s.loc).Format(models.DateLayout)

	var updated models.UserStats
	var newBook bool
	err = s.db.InTx(ctx, func(tx *database.Tx) error {
		stats := s.stats.WithTx(tx)
		history := s.history.WithTx(tx)

		if err := stats.Ensure(ctx, c.UserID); err != nil {
			return fmt.Errorf("failed to create stats: %w", err)
		}
		current, err := stats.GetForUpdate(ctx, c.UserID)
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}
		if current == nil {
			return fmt.Errorf("stats row missing for user %s", c.UserID)
		}

		seen, err := history.HasCompletedBook(ctx, c.UserID, c.BookID)
		if err != nil {
			return fmt.Errorf("failed to check history: %w", err)
		}
		newBook = !seen

		ApplyCompletion(current, today, c.PointsEarned, newBook)

		if err := stats.Update(ctx, current); err != nil {
			return fmt.Errorf("failed to save stats: %w", err)
		}

		entry := &models.QuizHistory{
			UserID:         c.UserID,
			BookID:         c.BookID,
			Score:          c.Score,
			TotalQuestions: c.TotalQuestions,
			Difficulty:     string(difficulty),
			PointsEarned:   c.PointsEarned,
			CompletedAt:    now.UTC(),
		}
		if err := history.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to save history: %w", err)
		}

		updated = *current
		return nil
	})
	if err != nil {
		return nil, err
	}

	awarded, err := s.awardAchievements(ctx, c.UserID, &updated, c.Score == c.TotalQuestions, now)
	if err != nil {
		return nil, err
	}

	logger.Info("quiz completion recorded",
		"user_id", c.UserID, "book_id", c.BookID, "score", c.Score, "total", c.TotalQuestions,
		"points", updated.TotalPoints, "streak", updated.CurrentStreak, "new_achievements", len(awarded))

	return &models.CompletionResult{Stats: updated, NewAchievements: awarded, IsNewBook: newBook}, nil
}

// awardAchievements inserts every newly qualifying achievement and rolls the
// rewards into total_points, all in one transaction. An achievement already
// held, for instance one awarded by a concurrent completion, is skipped and
// earns no bonus.
func (s *GamificationService) awardAchievements(ctx context.Context, userID string, stats *models.UserStats, perfect bool, at time.Time) ([]models.Achievement, error) {
	catalog, err := s.achievements.ListCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}
	earned, err := s.achievements.ListEarned(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load earned achievements: %w", err)
	}
	have := make(map[string]bool, len(earned))
	for _, e := range earned {
		have[e.AchievementID] = true
	}

	var qualifying []models.Achievement
	for _, a := range catalog {
		if !have[a.ID] && Qualifies(a, stats, perfect) {
			qualifying = append(qualifying, a)
		}
	}
	if len(qualifying) == 0 {
		return []models.Achievement{}, nil
	}

	var awarded []models.Achievement
	bonus := 0
	err = s.db.InTx(ctx, func(tx *database.Tx) error {
		awarded = []models.Achievement{}
		bonus = 0
		achievements := s.achievements.WithTx(tx)
		for _, a := range qualifying {
			inserted, err := achievements.Award(ctx, userID, a.ID, at)
			if err != nil {
				return fmt.Errorf("failed to award achievement %s: %w", a.Code, err)
			}
			if inserted {
				awarded = append(awarded, a)
				bonus += a.PointsReward
			}
		}
		if bonus > 0 {
			if err := s.stats.WithTx(tx).AddPoints(ctx, userID, bonus); err != nil {
				return fmt.Errorf("failed to add achievement bonus: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	stats.TotalPoints += bonus
	return awarded, nil
}

// ApplyCompletion mutates stats for one quiz finished on today (YYYY-MM-DD)
func ApplyCompletion(stats *models.UserStats, today string, points int, newBook bool) {
	stats.TotalPoints += points
	stats.QuizzesCompleted++
	if newBook {
		stats.BooksRead++
	}
	stats.CurrentStreak = NextStreak(stats.LastQuizDate, today, stats.CurrentStreak)
	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}
	stats.LastQuizDate = &today
}

// NextStreak applies the calendar-day streak rule. Same day keeps the
// streak, the next day extends it, any longer gap restarts at 1.
func NextStreak(lastQuizDate *string, today string, current int) int {
	if lastQuizDate == nil || *lastQuizDate == "" {
		return 1
	}
	last, err := time.Parse(models.DateLayout, *lastQuizDate)
	if err != nil {
		return 1
	}
	now, err := time.Parse(models.DateLayout, today)
	if err != nil {
		return 1
	}

	days := int(now.Sub(last).Hours() / 24)
	switch {
	case days <= 0:
		// Same day, or the stored date is ahead after a timezone change
		if current < 1 {
			return 1
		}
		return current
	case days == 1:
		return current + 1
	default:
		return 1
	}
}

// Qualifies compares updated stats against one catalog criterion
func Qualifies(a models.Achievement, stats *models.UserStats, perfect bool) bool {
	switch a.CriteriaType {
	case models.CriteriaQuizzesCompleted:
		return stats.QuizzesCompleted >= a.CriteriaValue
	case models.CriteriaBooksRead:
		return stats.BooksRead >= a.CriteriaValue
	case models.CriteriaTotalPoints:
		return stats.TotalPoints >= a.CriteriaValue
	case models.CriteriaCurrentStreak:
		return stats.CurrentStreak >= a.CriteriaValue
	case models.CriteriaPerfectScore:
		return perfect
	}
	return false
}

// GetStats returns the user's stats, zeroed when they have not played yet
func (s *GamificationService) GetStats(ctx context.Context, userID string) (*models.UserStats, error) {
	stats, err := s.stats.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	if stats == nil {
		stats = &models.UserStats{UserID: userID}
	}
	return stats, nil
}

// GetHistory returns recent attempts, newest first
func (s *GamificationService) GetHistory(ctx context.Context, userID string, limit int) ([]models.QuizHistory, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	history, err := s.history.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return history, nil
}

// GetAchievements returns the catalog annotated with what the user has earned
func (s *GamificationService) GetAchievements(ctx context.Context, userID string) ([]models.AchievementStatus, error) {
	catalog, err := s.achievements.ListCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievements: %w", err)
	}
	earned, err := s.achievements.ListEarned(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load earned achievements: %w", err)
	}
	earnedAt := make(map[string]time.Time, len(earned))
	for _, e := range earned {
		earnedAt[e.AchievementID] = e.EarnedAt
	}

	out := make([]models.AchievementStatus, 0, len(catalog))
	for _, a := range catalog {
		status := models.AchievementStatus{Achievement: a}
		if at, ok := earnedAt[a.ID]; ok {
			status.Earned = true
			status.EarnedAt = &at
		}
		out = append(out, status)
	}
	return out, nil
}
