package models

import "time"

// Relationship statuses
const (
	RelationshipPending  = "pending"
	RelationshipApproved = "approved"
	RelationshipRejected = "rejected"
)

// Relationship types
const (
	RelationshipParent  = "parent"
	RelationshipTeacher = "teacher"
)

// GuardianRelationship links a guardian to a student. StudentID stays nil
// until the invitation is accepted.
type GuardianRelationship struct {
	ID               string     `db:"id" json:"id"`
	GuardianID       string     `db:"guardian_id" json:"guardian_id"`
	StudentID        *string    `db:"student_id" json:"student_id"`
	RelationshipType string     `db:"relationship_type" json:"relationship_type"`
	Status           string     `db:"status" json:"status"`
	InvitationCode   string     `db:"invitation_code" json:"invitation_code"`
	InvitedEmail     string     `db:"invited_email" json:"invited_email,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	ApprovedAt       *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	RespondedAt      *time.Time `db:"responded_at" json:"responded_at,omitempty"`
}

func (r *GuardianRelationship) IsPending() bool {
	return r.Status == RelationshipPending
}

// GrantsAccess reports whether guardianID may view studentID through r
func (r *GuardianRelationship) GrantsAccess(guardianID, studentID string) bool {
	return r.Status == RelationshipApproved &&
		r.GuardianID == guardianID &&
		r.StudentID != nil && *r.StudentID == studentID
}
