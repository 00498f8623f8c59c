package models

import (
	"time"
)

// RedactionFields carries the moderator-redaction state shared by posts and
// answers. The original body is preserved in RedactedBody while the visible
// body holds a placeholder.
type RedactionFields struct {
	RedactionState  RedactionState `gorm:"size:16;not null;default:'visible'" json:"redaction_state"`
	RedactedBody    *string        `gorm:"type:text" json:"-"`
	RedactionReason string         `gorm:"size:255" json:"redaction_reason,omitempty"`
	RedactedByID    *uint          `json:"redacted_by_id,omitempty"`
	RedactedAt      *time.Time     `json:"redacted_at,omitempty"`
}

// Redacted reports whether the content is in any non-visible state.
func (r *RedactionFields) Redacted() bool {
	return r.RedactionState != RedactionVisible
}

// Post represents a question thread created by a user.
type Post struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	UserID     uint   `gorm:"index;not null" json:"user_id"`
	Title      string `gorm:"size:255;not null" json:"title"`
	Body       string `gorm:"type:text;not null" json:"body"`
	TopicID    uint   `gorm:"index;not null" json:"topic_id"`
	School     string `gorm:"size:32;not null" json:"school"`
	CourseCode string `gorm:"size:32" json:"course_code,omitempty"`

	Status           PostStatus `gorm:"size:16;not null;default:'open'" json:"status"`
	AcceptedAnswerID *uint      `json:"accepted_answer_id,omitempty"`
	LockedAt         *time.Time `json:"locked_at,omitempty"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	ShowRealIdentity bool       `gorm:"not null;default:false" json:"show_real_identity"`

	RedactionFields `gorm:"embedded"`

	AIFlagged    bool       `gorm:"not null;default:false;index" json:"ai_flagged"`
	AICategories string     `gorm:"type:text" json:"ai_categories,omitempty"` // JSON map[string]bool
	AIScores     string     `gorm:"type:text" json:"ai_scores,omitempty"`     // JSON map[string]float64
	AIScreenedAt *time.Time `json:"ai_screened_at,omitempty"`

	AppealRequested   bool       `gorm:"not null;default:false" json:"appeal_requested"`
	AppealRequestedAt *time.Time `json:"appeal_requested_at,omitempty"`

	Reported       bool       `gorm:"not null;default:false" json:"reported"`
	ReportedReason string     `gorm:"size:255" json:"reported_reason,omitempty"`
	ReportedAt     *time.Time `json:"reported_at,omitempty"`
	ReportsCount   int        `gorm:"not null;default:0;index" json:"reports_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User           User         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Topic          Topic        `json:"topic"`
	Tags           []Tag        `gorm:"many2many:post_tags;" json:"tags"`
	Answers        []Answer     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"answers,omitempty"`
	AcceptedAnswer *Answer      `gorm:"foreignKey:AcceptedAnswerID;constraint:OnDelete:SET NULL;" json:"accepted_answer,omitempty"`
	Reports        []PostReport `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

// Locked reports whether the thread is currently locked.
func (p *Post) Locked() bool {
	return p.LockedAt != nil
}

// Active reports whether the post has not expired.
func (p *Post) Active(now time.Time) bool {
	return p.ExpiresAt == nil || p.ExpiresAt.After(now)
}

// GetBody implements Redactable.
func (p *Post) GetBody() string { return p.Body }

// SetBody implements Redactable.
func (p *Post) SetBody(body string) { p.Body = body }

// Redaction implements Redactable.
func (p *Post) Redaction() *RedactionFields { return &p.RedactionFields }

// AuditableType implements Redactable.
func (p *Post) AuditableType() string { return "Post" }

// AuditableID implements Redactable.
func (p *Post) AuditableID() uint { return p.ID }

// OwnerID implements Redactable.
func (p *Post) OwnerID() uint { return p.UserID }
