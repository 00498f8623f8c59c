package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Vote is one user's vote on one target. At most one row exists per
// (user, target) pair; the unique indexes on the concrete tables are the
// durable guarantee, not application checks.
type Vote interface {
	Polarity() int
	SetPolarity(int)
}

// Votable is implemented by content that can be voted on. It gives the vote
// ledger a single code path across posts, answers and comments.
type Votable interface {
	// FindVote returns the caller's vote row, or nil when none exists.
	FindVote(db *gorm.DB, userID uint) (Vote, error)
	// NewVote builds an unsaved vote row for this target.
	NewVote(userID uint, polarity int) Vote
	// VoteScope scopes db to this target's vote rows.
	VoteScope(db *gorm.DB) *gorm.DB
}

// Like is a vote on a post.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_post" json:"post_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_post" json:"user_id"`
	VoteType  int       `gorm:"not null;default:1" json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *Like) Polarity() int     { return l.VoteType }
func (l *Like) SetPolarity(p int) { l.VoteType = p }

// AnswerLike is a vote on an answer.
type AnswerLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AnswerID  uint      `gorm:"not null;uniqueIndex:idx_answer_likes_user_answer" json:"answer_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_answer_likes_user_answer" json:"user_id"`
	VoteType  int       `gorm:"not null;default:1" json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *AnswerLike) Polarity() int     { return l.VoteType }
func (l *AnswerLike) SetPolarity(p int) { l.VoteType = p }

// AnswerCommentLike is a vote on an answer comment.
type AnswerCommentLike struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	AnswerCommentID uint      `gorm:"not null;uniqueIndex:idx_comment_likes_user_comment" json:"answer_comment_id"`
	UserID          uint      `gorm:"not null;uniqueIndex:idx_comment_likes_user_comment" json:"user_id"`
	VoteType        int       `gorm:"not null;default:1" json:"vote_type"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (l *AnswerCommentLike) Polarity() int     { return l.VoteType }
func (l *AnswerCommentLike) SetPolarity(p int) { l.VoteType = p }

// Votable implementation for Post.

func (p *Post) FindVote(db *gorm.DB, userID uint) (Vote, error) {
	var like Like
	err := db.Where("post_id = ? AND user_id = ?", p.ID, userID).First(&like).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &like, nil
}

func (p *Post) NewVote(userID uint, polarity int) Vote {
	return &Like{PostID: p.ID, UserID: userID, VoteType: polarity}
}

func (p *Post) VoteScope(db *gorm.DB) *gorm.DB {
	return db.Model(&Like{}).Where("post_id = ?", p.ID)
}

// Votable implementation for Answer.

func (a *Answer) FindVote(db *gorm.DB, userID uint) (Vote, error) {
	var like AnswerLike
	err := db.Where("answer_id = ? AND user_id = ?", a.ID, userID).First(&like).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &like, nil
}

func (a *Answer) NewVote(userID uint, polarity int) Vote {
	return &AnswerLike{AnswerID: a.ID, UserID: userID, VoteType: polarity}
}

func (a *Answer) VoteScope(db *gorm.DB) *gorm.DB {
	return db.Model(&AnswerLike{}).Where("answer_id = ?", a.ID)
}

// Votable implementation for AnswerComment.

func (c *AnswerComment) FindVote(db *gorm.DB, userID uint) (Vote, error) {
	var like AnswerCommentLike
	err := db.Where("answer_comment_id = ? AND user_id = ?", c.ID, userID).First(&like).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &like, nil
}

func (c *AnswerComment) NewVote(userID uint, polarity int) Vote {
	return &AnswerCommentLike{AnswerCommentID: c.ID, UserID: userID, VoteType: polarity}
}

func (c *AnswerComment) VoteScope(db *gorm.DB) *gorm.DB {
	return db.Model(&AnswerCommentLike{}).Where("answer_comment_id = ?", c.ID)
}
