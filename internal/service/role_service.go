package service

import (
	"context"
	"fmt"
	"strings"

	"readquest/internal/logger"
	"readquest/internal/models"
	"readquest/internal/repository"
	"readquest/internal/validation"
)

// RoleService manages locally granted roles
type RoleService struct {
	repo *repository.RoleRepository
}

func NewRoleService(repo *repository.RoleRepository) *RoleService {
	return &RoleService{repo: repo}
}

func normalizeRole(role string) (string, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role != models.RoleAdmin {
		return "", invalid(validation.ValidationError{Field: "role", Message: "unknown role"})
	}
	return role, nil
}

// IsAdmin reports whether userID holds the admin role locally
func (s *RoleService) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	return s.repo.HasRole(ctx, userID, models.RoleAdmin)
}

// Grant adds a role. Granting an existing role is a no-op that returns false.
func (s *RoleService) Grant(ctx context.Context, userID, role string) (bool, error) {
	if err := validation.ValidateUUID("user_id", userID); err != nil {
		return false, invalid(err)
	}
	role, err := normalizeRole(role)
	if err != nil {
		return false, err
	}
	created, err := s.repo.Grant(ctx, userID, role)
	if err != nil {
		return false, fmt.Errorf("failed to grant role: %w", err)
	}
	if created {
		logger.Info("role granted", "user_id", userID, "role", role)
	}
	return created, nil
}

// Revoke removes a role and reports whether it was held
func (s *RoleService) Revoke(ctx context.Context, userID, role string) (bool, error) {
	role, err := normalizeRole(role)
	if err != nil {
		return false, err
	}
	removed, err := s.repo.Revoke(ctx, userID, role)
	if err != nil {
		return false, fmt.Errorf("failed to revoke role: %w", err)
	}
	if removed {
		logger.Info("role revoked", "user_id", userID, "role", role)
	}
	return removed, nil
}

func (s *RoleService) List(ctx context.Context) ([]models.UserRole, error) {
	roles, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}
