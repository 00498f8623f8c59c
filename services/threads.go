package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/models"
)

// ThreadService coordinates accepted-answer locking, appeals against AI
// flags, and the author's real-identity toggle.
type ThreadService struct {
	db *gorm.DB
}

// NewThreadService creates a ThreadService.
func NewThreadService(db *gorm.DB) *ThreadService {
	return &ThreadService{db: db}
}

// LockWith marks post solved with answer as its accepted answer and locks
// the thread. The answer must belong to the post.
func (s *ThreadService) LockWith(post *models.Post, answer *models.Answer) error {
	if answer.PostID != post.ID {
		return ErrAnswerMismatch
	}
	now := time.Now()
	err := s.db.Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]any{
		"accepted_answer_id": answer.ID,
		"status":             models.PostStatusSolved,
		"locked_at":          now,
	}).Error
	if err != nil {
		return err
	}
	post.AcceptedAnswerID = &answer.ID
	post.Status = models.PostStatusSolved
	post.LockedAt = &now
	return nil
}

// Unlock reopens a locked thread. Valid only while an accepted answer is
// present; if the accepted answer was deleted the reference is already
// nulled and there is nothing to unlock.
func (s *ThreadService) Unlock(post *models.Post) error {
	if !post.Locked() || post.AcceptedAnswerID == nil {
		return ErrNotUnlockable
	}
	err := s.db.Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]any{
		"locked_at": nil,
		"status":    models.PostStatusOpen,
	}).Error
	if err != nil {
		return err
	}
	post.LockedAt = nil
	post.Status = models.PostStatusOpen
	return nil
}

// RequestAppeal lets the author of an AI-flagged post ask for review.
func (s *ThreadService) RequestAppeal(post *models.Post, actor *models.User) error {
	if post.UserID != actor.ID {
		return ErrNotAuthor
	}
	if !post.AIFlagged {
		return ErrNotFlagged
	}
	now := time.Now()
	err := s.db.Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]any{
		"appeal_requested":    true,
		"appeal_requested_at": now,
	}).Error
	if err != nil {
		return err
	}
	post.AppealRequested = true
	post.AppealRequestedAt = &now
	return nil
}

// ClearAppeal resets the appeal fields after moderator review.
func (s *ThreadService) ClearAppeal(post *models.Post, moderator *models.User) error {
	if !moderator.CanModerate() {
		return ErrNotModerator
	}
	err := s.db.Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]any{
		"appeal_requested":    false,
		"appeal_requested_at": nil,
	}).Error
	if err != nil {
		return err
	}
	post.AppealRequested = false
	post.AppealRequestedAt = nil
	return nil
}

// RevealIdentity shows the author's real identity on the thread and records
// the reveal in the audit trail.
func (s *ThreadService) RevealIdentity(post *models.Post, actor *models.User) error {
	if post.UserID != actor.ID {
		return ErrNotAuthor
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("show_real_identity", true).Error; err != nil {
			return err
		}
		post.ShowRealIdentity = true
		return models.RecordAudit(tx, post.UserID, actor.ID, "Post", post.ID,
			models.AuditIdentityRevealed, map[string]any{"post_id": post.ID})
	})
}

// HideIdentity re-anonymizes the author on the thread. Hiding is not
// audited; only the reveal is.
func (s *ThreadService) HideIdentity(post *models.Post, actor *models.User) error {
	if post.UserID != actor.ID {
		return ErrNotAuthor
	}
	err := s.db.Model(&models.Post{}).Where("id = ?", post.ID).
		UpdateColumn("show_real_identity", false).Error
	if err != nil {
		return err
	}
	post.ShowRealIdentity = false
	return nil
}
