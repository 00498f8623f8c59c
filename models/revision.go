package models

import "time"

// PostRevision preserves a post's previous title and body when the author
// edits it. Rows are append-only; the newest row holds the most recent
// prior version.
type PostRevision struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// AnswerRevision preserves an answer's previous body across edits.
type AnswerRevision struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AnswerID  uint      `gorm:"index;not null" json:"answer_id"`
	UserID    uint      `gorm:"not null" json:"user_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
