package models

import "time"

// Report reasons accepted from the community.
const (
	ReasonInappropriate  = "inappropriate"
	ReasonHarassment     = "harassment"
	ReasonSpam           = "spam"
	ReasonMisinformation = "misinformation"
	ReasonOther          = "other"
)

// ReportReasons lists every valid PostReport.Reason value.
var ReportReasons = []string{
	ReasonInappropriate,
	ReasonHarassment,
	ReasonSpam,
	ReasonMisinformation,
	ReasonOther,
}

// ValidReportReason reports whether reason is in the fixed taxonomy.
func ValidReportReason(reason string) bool {
	for _, r := range ReportReasons {
		if r == reason {
			return true
		}
	}
	return false
}

// PostReport records one user's report of a post. A user may report a given
// post at most once; Post.ReportsCount is a counter cache over these rows.
type PostReport struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_reports_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_reports_user_post" json:"post_id"`
	Reason    string    `gorm:"size:32;not null;default:'inappropriate'" json:"reason"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Bookmark marks that a user saved a post. Pure existence marker.
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_bookmarks_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_bookmarks_user_post" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
