package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/models"
)

// UrgentReviewThreshold is the report count at which a post needs urgent
// moderator attention.
const UrgentReviewThreshold = 3

// ReportService tracks community reports. Each (user, post) pair may report
// once; Post.ReportsCount is a counter cache kept consistent with atomic
// SQL increments inside the create/destroy transaction, never
// read-modify-write on the cached value.
type ReportService struct {
	db *gorm.DB
}

// NewReportService creates a ReportService.
func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// Report files a report against post on behalf of user. Preconditions are
// checked in order: self-report, duplicate report, reason taxonomy.
func (s *ReportService) Report(user *models.User, post *models.Post, reason string) error {
	if post.UserID == user.ID {
		return ErrSelfReport
	}
	var existing int64
	if err := s.db.Model(&models.PostReport{}).
		Where("user_id = ? AND post_id = ?", user.ID, post.ID).
		Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return ErrDuplicateReport
	}
	if !models.ValidReportReason(reason) {
		return ErrInvalidReason
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		report := models.PostReport{UserID: user.ID, PostID: post.ID, Reason: reason}
		if err := tx.Create(&report).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateReport
			}
			return err
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("reports_count", gorm.Expr("reports_count + 1")).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.PostReport{}).Where("post_id = ?", post.ID).Count(&count).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]any{
			"reported":        true,
			"reported_at":     time.Now(),
			"reported_reason": reportSummary(count),
		}).Error
	})
	if err != nil {
		return err
	}
	return s.reload(post)
}

// Dismiss removes reports from a post. Moderators clear every report and all
// reported flags; other users remove only their own report, after which the
// flags are recomputed from the remaining live count.
func (s *ReportService) Dismiss(actor *models.User, post *models.Post) error {
	var err error
	if actor.CanModerate() {
		err = s.dismissAll(post)
	} else {
		err = s.dismissOwn(actor, post)
	}
	if err != nil {
		return err
	}
	return s.reload(post)
}

// reload refreshes post from the database into a fresh struct; scanning into
// the already-populated struct would leave pointer fields stale when their
// columns are NULL (e.g. reported_at after a dismiss).
func (s *ReportService) reload(post *models.Post) error {
	var fresh models.Post
	if err := s.db.First(&fresh, post.ID).Error; err != nil {
		return err
	}
	*post = fresh
	return nil
}

func (s *ReportService) dismissAll(post *models.Post) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.PostReport{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]any{
			"reports_count":   0,
			"reported":        false,
			"reported_at":     nil,
			"reported_reason": "",
		}).Error
	})
}

func (s *ReportService) dismissOwn(actor *models.User, post *models.Post) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", post.ID, actor.ID).Delete(&models.PostReport{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrReportNotFound
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("reports_count", gorm.Expr("reports_count - 1")).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.PostReport{}).Where("post_id = ?", post.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return tx.Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]any{
				"reported":        false,
				"reported_at":     nil,
				"reported_reason": "",
			}).Error
		}
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("reported_reason", reportSummary(count)).Error
	})
}

// NeedsUrgentReview reports whether the post crossed the report threshold.
func (s *ReportService) NeedsUrgentReview(post *models.Post) bool {
	return post.ReportsCount >= UrgentReviewThreshold
}

func reportSummary(count int64) string {
	return fmt.Sprintf("%d report(s)", count)
}
