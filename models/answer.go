package models

import "time"

// Answer is a reply to a post. Redaction works exactly as it does for posts.
type Answer struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	PostID uint   `gorm:"index;not null" json:"post_id"`
	UserID uint   `gorm:"index;not null" json:"user_id"`
	Body   string `gorm:"type:text;not null" json:"body"`

	RedactionFields `gorm:"embedded"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User     User            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Comments []AnswerComment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
}

// GetBody implements Redactable.
func (a *Answer) GetBody() string { return a.Body }

// SetBody implements Redactable.
func (a *Answer) SetBody(body string) { a.Body = body }

// Redaction implements Redactable.
func (a *Answer) Redaction() *RedactionFields { return &a.RedactionFields }

// AuditableType implements Redactable.
func (a *Answer) AuditableType() string { return "Answer" }

// AuditableID implements Redactable.
func (a *Answer) AuditableID() uint { return a.ID }

// OwnerID implements Redactable.
func (a *Answer) OwnerID() uint { return a.UserID }

// Redactable is implemented by content a moderator can redact and restore.
type Redactable interface {
	GetBody() string
	SetBody(string)
	Redaction() *RedactionFields
	AuditableType() string
	AuditableID() uint
	OwnerID() uint
}

// AnswerComment is a short reply nested under an answer.
type AnswerComment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AnswerID  uint      `gorm:"index;not null" json:"answer_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User   User   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Answer Answer `json:"-"`
}
