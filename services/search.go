package services

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/models"
)

// Timeframes accepted by the search filter.
var searchTimeframes = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
}

// SearchFilters is the normalized filter form for thread listings.
type SearchFilters struct {
	Query      string
	TopicID    uint
	TagIDs     []uint
	Status     string
	School     string
	CourseCode string
	Timeframe  string
	AuthorID   uint   // scope to one author ("my threads")
	PostIDs    []uint // scope to an explicit set ("bookmarked")
}

// SearchService lists active threads with the viewer-dependent AI-flag
// visibility rule: moderators see everything, authors see their own flagged
// posts, everyone else sees only unflagged content.
type SearchService struct {
	db *gorm.DB
}

// NewSearchService creates a SearchService.
func NewSearchService(db *gorm.DB) *SearchService {
	return &SearchService{db: db}
}

// Search returns matching, unexpired posts, newest first.
func (s *SearchService) Search(filters SearchFilters, viewer *models.User) ([]models.Post, error) {
	now := time.Now()
	scope := s.db.Model(&models.Post{}).
		Preload("User").Preload("Topic").Preload("Tags").
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("posts.created_at DESC")

	scope = s.applyFlagVisibility(scope, viewer)

	if q := strings.TrimSpace(filters.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		scope = scope.Where("LOWER(title) LIKE ? OR LOWER(body) LIKE ?", pattern, pattern)
	}
	if filters.TopicID != 0 {
		scope = scope.Where("topic_id = ?", filters.TopicID)
	}
	if len(filters.TagIDs) > 0 {
		scope = scope.
			Joins("JOIN post_tags ON post_tags.post_id = posts.id").
			Where("post_tags.tag_id IN ?", filters.TagIDs).
			Group("posts.id").
			Having("COUNT(DISTINCT post_tags.tag_id) = ?", len(filters.TagIDs))
	}
	if filters.Status != "" {
		scope = scope.Where("status = ?", filters.Status)
	}
	if filters.School != "" {
		scope = scope.Where("school = ?", filters.School)
	}
	if filters.CourseCode != "" {
		scope = scope.Where("course_code = ?", filters.CourseCode)
	}
	if window, ok := searchTimeframes[filters.Timeframe]; ok {
		scope = scope.Where("posts.created_at >= ?", now.Add(-window))
	}
	if filters.AuthorID != 0 {
		scope = scope.Where("posts.user_id = ?", filters.AuthorID)
	}
	if filters.PostIDs != nil {
		scope = scope.Where("posts.id IN ?", filters.PostIDs)
	}

	var posts []models.Post
	if err := scope.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *SearchService) applyFlagVisibility(scope *gorm.DB, viewer *models.User) *gorm.DB {
	if viewer != nil && viewer.CanModerate() {
		return scope
	}
	if viewer != nil {
		return scope.Where("ai_flagged = ? OR posts.user_id = ?", false, viewer.ID)
	}
	return scope.Where("ai_flagged = ?", false)
}

// DuplicateFinderLimit bounds how many candidate duplicates are suggested.
const DuplicateFinderLimit = 5

// DuplicateFinder surfaces existing threads that look like a draft post, so
// the composer can warn before creating near-duplicates.
type DuplicateFinder struct {
	db    *gorm.DB
	limit int
}

// NewDuplicateFinder creates a DuplicateFinder.
func NewDuplicateFinder(db *gorm.DB) *DuplicateFinder {
	return &DuplicateFinder{db: db, limit: DuplicateFinderLimit}
}

// Find matches on the whole title, a body snippet, and title keywords longer
// than three characters.
func (f *DuplicateFinder) Find(title, body string, excludeID uint) ([]models.Post, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)

	var clauses []string
	var terms []any
	if title != "" {
		clauses = append(clauses, "LOWER(title) LIKE ?")
		terms = append(terms, "%"+strings.ToLower(title)+"%")
	}
	if body != "" {
		snippet := strings.ToLower(body)
		if len(snippet) > 120 {
			snippet = snippet[:120]
		}
		clauses = append(clauses, "LOWER(body) LIKE ?")
		terms = append(terms, "%"+snippet+"%")
	}
	if len(title) > 10 {
		for _, word := range strings.Fields(strings.ToLower(title)) {
			if len(word) > 3 {
				clauses = append(clauses, "LOWER(title) LIKE ?")
				terms = append(terms, "%"+word+"%")
			}
		}
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	scope := f.db.
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Where(strings.Join(clauses, " OR "), terms...).
		Order("created_at DESC").
		Limit(f.limit)
	if excludeID != 0 {
		scope = scope.Where("id <> ?", excludeID)
	}

	var posts []models.Post
	if err := scope.Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}
