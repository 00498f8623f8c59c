package models

import (
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents a forum member. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Email        string         `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	Provider     string         `gorm:"size:32" json:"provider"`
	ProviderID   string         `gorm:"size:255" json:"provider_id"`
	Role         Role           `gorm:"not null;default:0" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Posts      []Post           `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Answers    []Answer         `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Bookmarks  []Bookmark       `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Identities []ThreadIdentity `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

// CanModerate reports whether the user may perform moderator actions.
func (u *User) CanModerate() bool {
	return u.Role.CanModerate()
}

// AnonymousHandle derives the stable pseudonym base for this user: the id in
// base36, upper-cased, padded to four characters. The handle is only a
// generation scheme; once a ThreadIdentity row exists its stored pseudonym
// wins, so changing this function never rewrites existing threads.
func (u *User) AnonymousHandle() string {
	base := strings.ToUpper(strconv.FormatUint(uint64(u.ID), 36))
	for len(base) < 4 {
		base = "0" + base
	}
	return "Lion #" + base[:4]
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}
