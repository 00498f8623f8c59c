package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Audit actions written by the moderation and identity flows.
const (
	AuditPostRedacted     = "post_redacted"
	AuditPostUnredacted   = "post_unredacted"
	AuditAnswerRedacted   = "answer_redacted"
	AuditAnswerUnredacted = "answer_unredacted"
	AuditIdentityRevealed = "identity_revealed"
)

// AuditLog is an append-only trail of moderator and identity actions. Rows
// are never updated or deleted by the application.
type AuditLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"index;not null" json:"user_id"` // subject: owner of the content acted upon
	PerformedByID uint      `gorm:"index;not null" json:"performed_by_id"`
	AuditableType string    `gorm:"size:32;not null;index:idx_audit_auditable" json:"auditable_type"`
	AuditableID   uint      `gorm:"not null;index:idx_audit_auditable" json:"auditable_id"`
	Action        string    `gorm:"size:64;not null" json:"action"`
	Metadata      string    `gorm:"type:text" json:"metadata,omitempty"` // JSON object
	CreatedAt     time.Time `json:"created_at"`
}

// RecordAudit appends one audit entry. Metadata marshalling failures fall
// back to an empty object so the action itself is never lost.
func RecordAudit(db *gorm.DB, subjectID, actorID uint, auditableType string, auditableID uint, action string, metadata map[string]any) error {
	meta := "{}"
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			meta = string(b)
		}
	}
	entry := AuditLog{
		UserID:        subjectID,
		PerformedByID: actorID,
		AuditableType: auditableType,
		AuditableID:   auditableID,
		Action:        action,
		Metadata:      meta,
	}
	return db.Create(&entry).Error
}
