package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"readquest/internal/database"
	"readquest/internal/models"
)

const achievementColumns = `id, code, name, description, criteria_type, criteria_value, points_reward, icon`

// AchievementRepository handles the achievement catalog and earned rows
type AchievementRepository struct {
	db database.DBTX
}

func NewAchievementRepository(db database.DBTX) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// WithTx returns a copy bound to a transaction
func (r *AchievementRepository) WithTx(tx database.DBTX) *AchievementRepository {
	return &AchievementRepository{db: tx}
}

// EnsureCatalog inserts catalog entries whose code is not yet present.
// Returns how many were added.
func (r *AchievementRepository) EnsureCatalog(ctx context.Context, catalog []models.Achievement) (int, error) {
	added := 0
	for _, a := range catalog {
		var count int
		if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM achievements WHERE code = ?`, a.Code); err != nil {
			return added, err
		}
		if count > 0 {
			continue
		}
		if err := r.Create(ctx, &a); err != nil {
			if database.IsUniqueViolation(err) {
				continue
			}
			return added, err
		}
		added++
	}
	return added, nil
}

func (r *AchievementRepository) Create(ctx context.Context, a *models.Achievement) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	query := `INSERT INTO achievements (` + achievementColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Code, a.Name, a.Description, a.CriteriaType, a.CriteriaValue, a.PointsReward, a.Icon,
	)
	return err
}

// ListCatalog returns every achievement, grouped by criteria and threshold
func (r *AchievementRepository) ListCatalog(ctx context.Context) ([]models.Achievement, error) {
	achievements := []models.Achievement{}
	query := `SELECT ` + achievementColumns + ` FROM achievements ORDER BY criteria_type, criteria_value, code`
	if err := r.db.SelectContext(ctx, &achievements, query); err != nil {
		return nil, err
	}
	return achievements, nil
}

// ListEarned returns the user's earned rows
func (r *AchievementRepository) ListEarned(ctx context.Context, userID string) ([]models.UserAchievement, error) {
	earned := []models.UserAchievement{}
	query := `SELECT id, user_id, achievement_id, earned_at FROM user_achievements WHERE user_id = ? ORDER BY earned_at`
	if err := r.db.SelectContext(ctx, &earned, query, userID); err != nil {
		return nil, err
	}
	return earned, nil
}

// Award records an earned achievement. It returns false without error when
// the user already holds it.
func (r *AchievementRepository) Award(ctx context.Context, userID, achievementID string, at time.Time) (bool, error) {
	query := r.db.GetDialect().InsertIgnore("user_achievements", "id, user_id, achievement_id, earned_at", "?, ?, ?, ?", "user_id, achievement_id")
	result, err := r.db.ExecContext(ctx, query, uuid.NewString(), userID, achievementID, at.UTC())
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
