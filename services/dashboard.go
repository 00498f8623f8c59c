package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/models"
)

// DashboardStats aggregates the moderation overview numbers.
type DashboardStats struct {
	TotalPosts     int64            `json:"total_posts"`
	TotalAnswers   int64            `json:"total_answers"`
	TotalUsers     int64            `json:"total_users"`
	ResponseRate   float64          `json:"response_rate"`   // % of posts with at least one answer
	ResolutionRate float64          `json:"resolution_rate"` // % of posts marked solved
	RedactedPosts  int64            `json:"redacted_posts"`
	AIFlaggedPosts int64            `json:"ai_flagged_posts"`
	ReportedPosts  int64            `json:"reported_posts"`
	DailyPosts     map[string]int64 `json:"daily_posts"` // date -> count, last 30 days
	TopicCounts    map[string]int64 `json:"topic_counts"`
}

// DashboardService computes moderation statistics.
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// Stats builds the dashboard snapshot.
func (s *DashboardService) Stats() (*DashboardStats, error) {
	stats := &DashboardStats{
		DailyPosts:  map[string]int64{},
		TopicCounts: map[string]int64{},
	}

	if err := s.db.Model(&models.Post{}).Count(&stats.TotalPosts).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Answer{}).Count(&stats.TotalAnswers).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Post{}).Where("redaction_state <> ?", models.RedactionVisible).
		Count(&stats.RedactedPosts).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Post{}).Where("ai_flagged = ?", true).
		Count(&stats.AIFlaggedPosts).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Post{}).Where("reported = ?", true).
		Count(&stats.ReportedPosts).Error; err != nil {
		return nil, err
	}

	if stats.TotalPosts > 0 {
		var answered int64
		if err := s.db.Model(&models.Post{}).
			Where("EXISTS (SELECT 1 FROM answers WHERE answers.post_id = posts.id)").
			Count(&answered).Error; err != nil {
			return nil, err
		}
		stats.ResponseRate = round1(float64(answered) / float64(stats.TotalPosts) * 100)

		var solved int64
		if err := s.db.Model(&models.Post{}).Where("status = ?", models.PostStatusSolved).
			Count(&solved).Error; err != nil {
			return nil, err
		}
		stats.ResolutionRate = round1(float64(solved) / float64(stats.TotalPosts) * 100)
	}

	type dateCount struct {
		Day   string
		Count int64
	}
	var daily []dateCount
	since := time.Now().AddDate(0, 0, -30)
	if err := s.db.Model(&models.Post{}).
		Select("DATE(created_at) AS day, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("DATE(created_at)").
		Scan(&daily).Error; err != nil {
		return nil, err
	}
	for _, d := range daily {
		stats.DailyPosts[d.Day] = d.Count
	}

	type topicCount struct {
		Name  string
		Count int64
	}
	var topics []topicCount
	if err := s.db.Model(&models.Post{}).
		Select("topics.name AS name, COUNT(*) AS count").
		Joins("JOIN topics ON topics.id = posts.topic_id").
		Group("topics.name").
		Scan(&topics).Error; err != nil {
		return nil, err
	}
	for _, t := range topics {
		stats.TopicCounts[t.Name] = t.Count
	}

	return stats, nil
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
