package repository

import (
	"context"
	"time"

	"readquest/internal/database"
	"readquest/internal/models"
)

// RoleRepository handles user_roles
type RoleRepository struct {
	db database.DBTX
}

func NewRoleRepository(db database.DBTX) *RoleRepository {
	return &RoleRepository{db: db}
}

// Grant adds a role. Returns false when the user already had it.
func (r *RoleRepository) Grant(ctx context.Context, userID, role string) (bool, error) {
	query := `INSERT INTO user_roles (user_id, role, granted_at) VALUES (?, ?, ?)`
	if _, err := r.db.ExecReturningID(ctx, query, userID, role, time.Now().UTC()); err != nil {
		if database.IsUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Revoke removes a role and reports whether it was present
func (r *RoleRepository) Revoke(ctx context.Context, userID, role string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = ? AND role = ?`, userID, role)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *RoleRepository) HasRole(ctx context.Context, userID, role string) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM user_roles WHERE user_id = ? AND role = ?`, userID, role); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *RoleRepository) List(ctx context.Context) ([]models.UserRole, error) {
	roles := []models.UserRole{}
	if err := r.db.SelectContext(ctx, &roles, `SELECT id, user_id, role, granted_at FROM user_roles ORDER BY user_id, role`); err != nil {
		return nil, err
	}
	return roles, nil
}
