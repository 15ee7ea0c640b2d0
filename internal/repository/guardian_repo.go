package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"readquest/internal/database"
	"readquest/internal/models"
)

const relationshipColumns = `id, guardian_id, student_id, relationship_type, status, invitation_code, invited_email, created_at, approved_at, responded_at`

// GuardianRepository handles guardian_relationships
type GuardianRepository struct {
	db database.DBTX
}

func NewGuardianRepository(db database.DBTX) *GuardianRepository {
	return &GuardianRepository{db: db}
}

// Create inserts a pending relationship. A unique violation means the
// invitation code collided.
func (r *GuardianRepository) Create(ctx context.Context, rel *models.GuardianRelationship) error {
	if rel.ID == "" {
		rel.ID = uuid.NewString()
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO guardian_relationships (id, guardian_id, student_id, relationship_type, status, invitation_code, invited_email, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		rel.ID, rel.GuardianID, rel.StudentID, rel.RelationshipType, rel.Status,
		rel.InvitationCode, rel.InvitedEmail, rel.CreatedAt,
	)
	return err
}

// GetByCode returns the relationship for an invitation code or nil
func (r *GuardianRepository) GetByCode(ctx context.Context, code string) (*models.GuardianRelationship, error) {
	var rel models.GuardianRelationship
	query := `SELECT ` + relationshipColumns + ` FROM guardian_relationships WHERE invitation_code = ?`
	if err := r.db.GetContext(ctx, &rel, query, code); err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &rel, nil
}

// Approve binds the student and marks the relationship approved. It only
// touches rows that are still pending and reports whether one changed.
func (r *GuardianRepository) Approve(ctx context.Context, id, studentID string, at time.Time) (bool, error) {
	query := `
		UPDATE guardian_relationships
		SET status = ?, student_id = ?, approved_at = ?, responded_at = ?
		WHERE id = ? AND status = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		models.RelationshipApproved, studentID, at.UTC(), at.UTC(), id, models.RelationshipPending,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

// Reject marks a pending relationship rejected, leaving student_id untouched
func (r *GuardianRepository) Reject(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE guardian_relationships
		SET status = ?, responded_at = ?
		WHERE id = ? AND status = ?
	`
	result, err := r.db.ExecContext(ctx, query, models.RelationshipRejected, at.UTC(), id, models.RelationshipPending)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *GuardianRepository) ListForGuardian(ctx context.Context, guardianID string) ([]models.GuardianRelationship, error) {
	return r.list(ctx, `SELECT `+relationshipColumns+` FROM guardian_relationships WHERE guardian_id = ? ORDER BY created_at DESC, id`, guardianID)
}

func (r *GuardianRepository) ListForStudent(ctx context.Context, studentID string) ([]models.GuardianRelationship, error) {
	return r.list(ctx, `SELECT `+relationshipColumns+` FROM guardian_relationships WHERE student_id = ? ORDER BY created_at DESC, id`, studentID)
}

func (r *GuardianRepository) list(ctx context.Context, query string, args ...any) ([]models.GuardianRelationship, error) {
	rels := []models.GuardianRelationship{}
	if err := r.db.SelectContext(ctx, &rels, query, args...); err != nil {
		return nil, err
	}
	return rels, nil
}

// HasApproved reports whether an approved guardian→student link exists
func (r *GuardianRepository) HasApproved(ctx context.Context, guardianID, studentID string) (bool, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM guardian_relationships
		WHERE guardian_id = ? AND student_id = ? AND status = ?
	`
	if err := r.db.GetContext(ctx, &count, query, guardianID, studentID, models.RelationshipApproved); err != nil {
		return false, err
	}
	return count > 0, nil
}
