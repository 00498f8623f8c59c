package models

import "time"

// ThreadIdentity pins a user's pseudonym inside one thread. Exactly one row
// exists per (user, post) pair and the pseudonym never changes once written.
type ThreadIdentity struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_identities_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_identities_user_post" json:"post_id"`
	Pseudonym string    `gorm:"size:32;not null" json:"pseudonym"`
	CreatedAt time.Time `json:"created_at"`
}
