package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"readquest/internal/codes"
	"readquest/internal/database"
	"readquest/internal/logger"
	"readquest/internal/models"
	"readquest/internal/repository"
	"readquest/internal/validation"
)

const maxCodeAttempts = 5

// InvitationMailer delivers invitation codes
type InvitationMailer interface {
	SendInvitationEmail(ctx context.Context, toEmail, code, relationshipType string) error
}

// Relationships groups a user's links in both directions
type Relationships struct {
	AsGuardian []models.GuardianRelationship `json:"as_guardian"`
	AsStudent  []models.GuardianRelationship `json:"as_student"`
}

// GuardianService manages parent/teacher invitations and progress access
type GuardianService struct {
	repo         *repository.GuardianRepository
	gamification *GamificationService
	mailer       InvitationMailer
	now          func() time.Time
}

// NewGuardianService creates a guardian service. mailer may be nil.
func NewGuardianService(repo *repository.GuardianRepository, gamification *GamificationService, mailer InvitationMailer) *GuardianService {
	return &GuardianService{
		repo:         repo,
		gamification: gamification,
		mailer:       mailer,
		now:          time.Now,
	}
}

// CreateInvitation opens a pending relationship with a fresh code. When an
// email is given the code is mailed; delivery failures are only logged.
func (s *GuardianService) CreateInvitation(ctx context.Context, guardianID, relationshipType, invitedEmail string) (*models.GuardianRelationship, error) {
	if strings.TrimSpace(guardianID) == "" {
		return nil, invalid(errors.New("guardian id is required"))
	}
	relationshipType = strings.ToLower(strings.TrimSpace(relationshipType))
	if err := validation.ValidateRelationshipType(relationshipType); err != nil {
		return nil, invalid(err)
	}
	invitedEmail = strings.TrimSpace(invitedEmail)
	if invitedEmail != "" {
		if err := validation.ValidateEmail(invitedEmail); err != nil {
			return nil, invalid(err)
		}
	}

	rel := &models.GuardianRelationship{
		GuardianID:       guardianID,
		RelationshipType: relationshipType,
		Status:           models.RelationshipPending,
		InvitedEmail:     invitedEmail,
	}

	var err error
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		rel.InvitationCode, err = codes.NewInvitationCode(s.now())
		if err != nil {
			return nil, fmt.Errorf("failed to generate invitation code: %w", err)
		}
		err = s.repo.Create(ctx, rel)
		if err == nil {
			break
		}
		if !database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create invitation: %w", err)
		}
		logger.Debug("invitation code collision, retrying", "attempt", attempt)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	logger.Info("guardian invitation created", "guardian_id", guardianID, "type", relationshipType)

	if invitedEmail != "" && s.mailer != nil {
		if err := s.mailer.SendInvitationEmail(ctx, invitedEmail, rel.InvitationCode, relationshipType); err != nil {
			logger.Warn("failed to send invitation email", "relationship_id", rel.ID, "error", err)
		}
	}

	return rel, nil
}

// loadPending finds an invitation the user may respond to
func (s *GuardianService) loadPending(ctx context.Context, code, userID string) (*models.GuardianRelationship, error) {
	code = codes.Normalize(code)
	if code == "" {
		return nil, invalid(errors.New("invitation code is required"))
	}
	rel, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to load invitation: %w", err)
	}
	if rel == nil {
		return nil, ErrInvalidInvitation
	}
	if !rel.IsPending() {
		return nil, fmt.Errorf("%w: invitation already %s", ErrInvalidAction, rel.Status)
	}
	if rel.GuardianID == userID {
		return nil, fmt.Errorf("%w: cannot respond to your own invitation", ErrInvalidAction)
	}
	return rel, nil
}

// AcceptInvitation binds the invitation to userID as the student
func (s *GuardianService) AcceptInvitation(ctx context.Context, code, userID string) (*models.GuardianRelationship, error) {
	rel, err := s.loadPending(ctx, code, userID)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	ok, err := s.repo.Approve(ctx, rel.ID, userID, at)
	if err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: invitation already answered", ErrInvalidAction)
	}

	rel.Status = models.RelationshipApproved
	rel.StudentID = &userID
	rel.ApprovedAt = &at
	rel.RespondedAt = &at
	logger.Info("guardian invitation accepted", "relationship_id", rel.ID, "student_id", userID)
	return rel, nil
}

// RejectInvitation declines a pending invitation
func (s *GuardianService) RejectInvitation(ctx context.Context, code, userID string) (*models.GuardianRelationship, error) {
	rel, err := s.loadPending(ctx, code, userID)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	ok, err := s.repo.Reject(ctx, rel.ID, at)
	if err != nil {
		return nil, fmt.Errorf("failed to reject invitation: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: invitation already answered", ErrInvalidAction)
	}

	rel.Status = models.RelationshipRejected
	rel.RespondedAt = &at
	logger.Info("guardian invitation rejected", "relationship_id", rel.ID)
	return rel, nil
}

// ListForGuardian returns invitations the user sent, newest first
func (s *GuardianService) ListForGuardian(ctx context.Context, guardianID string) ([]models.GuardianRelationship, error) {
	rels, err := s.repo.ListForGuardian(ctx, guardianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	return rels, nil
}

// ListForStudent returns relationships the user accepted or declined
func (s *GuardianService) ListForStudent(ctx context.Context, studentID string) ([]models.GuardianRelationship, error) {
	rels, err := s.repo.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	return rels, nil
}

// ListRelationships returns both sides of a user's links
func (s *GuardianService) ListRelationships(ctx context.Context, userID string) (*Relationships, error) {
	asGuardian, err := s.ListForGuardian(ctx, userID)
	if err != nil {
		return nil, err
	}
	asStudent, err := s.ListForStudent(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Relationships{AsGuardian: asGuardian, AsStudent: asStudent}, nil
}

// CanViewProgress reports whether an approved relationship links the two users
func (s *GuardianService) CanViewProgress(ctx context.Context, guardianID, studentID string) (bool, error) {
	if guardianID == "" || studentID == "" {
		return false, nil
	}
	ok, err := s.repo.HasApproved(ctx, guardianID, studentID)
	if err != nil {
		return false, fmt.Errorf("failed to check relationship: %w", err)
	}
	return ok, nil
}

// GetStudentProgress returns a student's stats, history and achievements to
// an approved guardian.
func (s *GuardianService) GetStudentProgress(ctx context.Context, guardianID, studentID string) (*models.StudentProgress, error) {
	ok, err := s.CanViewProgress(ctx, guardianID, studentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccessDenied
	}

	stats, err := s.gamification.GetStats(ctx, studentID)
	if err != nil {
		return nil, err
	}
	history, err := s.gamification.GetHistory(ctx, studentID, 20)
	if err != nil {
		return nil, err
	}
	achievements, err := s.gamification.GetAchievements(ctx, studentID)
	if err != nil {
		return nil, err
	}

	return &models.StudentProgress{
		StudentID:     studentID,
		Stats:         *stats,
		RecentHistory: history,
		Achievements:  achievements,
	}, nil
}
