package services

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/models"
)

// Placeholder bodies shown in place of redacted content.
const (
	PartialPlaceholder  = "[Portions of this content have been redacted by CU moderators]"
	RedactedPlaceholder = "[Content removed by CU moderators]"
)

var redactionPlaceholders = map[models.RedactionState]string{
	models.RedactionPartial:  PartialPlaceholder,
	models.RedactionRedacted: RedactedPlaceholder,
}

// RedactionService moves content between visible, partial and redacted
// states. Precondition violations come back as errors; persistence failures
// are logged and reported as a false success flag instead, because a
// moderation action must never crash the surrounding request.
type RedactionService struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewRedactionService creates a RedactionService.
func NewRedactionService(db *gorm.DB, log *zap.SugaredLogger) *RedactionService {
	return &RedactionService{db: db, log: log}
}

// Redact hides item's body behind the placeholder for state. On the first
// transition away from visible the current body is snapshotted into
// RedactedBody; re-redacting never overwrites the snapshot, so the true
// original survives repeated state changes.
func (s *RedactionService) Redact(item models.Redactable, moderator *models.User, reason string, state models.RedactionState) (bool, error) {
	if moderator == nil || !moderator.CanModerate() {
		return false, ErrNotModerator
	}
	placeholder, ok := redactionPlaceholders[state]
	if !ok {
		return false, ErrInvalidRedactionState
	}

	red := item.Redaction()
	prev := *red
	prevBody := item.GetBody()

	if !red.Redacted() {
		body := item.GetBody()
		red.RedactedBody = &body
	}
	red.RedactionState = state
	red.RedactionReason = reason
	red.RedactedByID = &moderator.ID
	now := time.Now()
	red.RedactedAt = &now
	item.SetBody(placeholder)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(item).Error; err != nil {
			return err
		}
		return models.RecordAudit(tx, item.OwnerID(), moderator.ID,
			item.AuditableType(), item.AuditableID(), redactAction(item),
			map[string]any{"reason": reason, "state": string(state)})
	})
	if err != nil {
		// Keep the caller's struct in step with the store.
		*red = prev
		item.SetBody(prevBody)
		s.log.Errorf("RedactionService.Redact failed for %s %d: %v", item.AuditableType(), item.AuditableID(), err)
		return false, nil
	}
	return true, nil
}

// Unredact restores item's original body from the snapshot and returns the
// content to the visible state.
func (s *RedactionService) Unredact(item models.Redactable, moderator *models.User) (bool, error) {
	if moderator == nil || !moderator.CanModerate() {
		return false, ErrNotModerator
	}
	red := item.Redaction()
	if !red.Redacted() {
		return false, ErrNotRedacted
	}
	prev := *red
	prevBody := item.GetBody()

	if red.RedactedBody != nil {
		item.SetBody(*red.RedactedBody)
	}
	red.RedactionState = models.RedactionVisible
	red.RedactedBody = nil
	red.RedactionReason = ""
	red.RedactedByID = nil
	red.RedactedAt = nil

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(item).Error; err != nil {
			return err
		}
		return models.RecordAudit(tx, item.OwnerID(), moderator.ID,
			item.AuditableType(), item.AuditableID(), unredactAction(item), nil)
	})
	if err != nil {
		*red = prev
		item.SetBody(prevBody)
		s.log.Errorf("RedactionService.Unredact failed for %s %d: %v", item.AuditableType(), item.AuditableID(), err)
		return false, nil
	}
	return true, nil
}

func redactAction(item models.Redactable) string {
	if item.AuditableType() == "Answer" {
		return models.AuditAnswerRedacted
	}
	return models.AuditPostRedacted
}

func unredactAction(item models.Redactable) string {
	if item.AuditableType() == "Answer" {
		return models.AuditAnswerUnredacted
	}
	return models.AuditPostUnredacted
}
