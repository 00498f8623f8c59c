package services

import (
	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/models"
)

// VoteService applies the toggling vote state machine uniformly across
// posts, answers and answer comments via the Votable interface.
//
// Transition table, reproduced exactly:
//
//	no vote          -> create with requested polarity
//	same polarity    -> delete (toggle off)
//	opposite polarity -> update in place (switch)
type VoteService struct {
	db *gorm.DB
}

// NewVoteService creates a VoteService.
func NewVoteService(db *gorm.DB) *VoteService {
	return &VoteService{db: db}
}

// Upvote records, removes or switches an upvote for (user, target).
func (s *VoteService) Upvote(userID uint, target models.Votable) error {
	return s.vote(userID, target, models.Upvote)
}

// Downvote records, removes or switches a downvote for (user, target).
func (s *VoteService) Downvote(userID uint, target models.Votable) error {
	return s.vote(userID, target, models.Downvote)
}

func (s *VoteService) vote(userID uint, target models.Votable, polarity int) error {
	existing, err := target.FindVote(s.db, userID)
	if err != nil {
		return err
	}

	if existing == nil {
		vote := target.NewVote(userID, polarity)
		err := s.db.Create(vote).Error
		if err == nil {
			return nil
		}
		if !isDuplicateKey(err) {
			return err
		}
		// A concurrent request created the row first; re-read and continue
		// the transition table against it.
		existing, err = target.FindVote(s.db, userID)
		if err != nil {
			return err
		}
		if existing == nil {
			// Deleted again in the meantime; treat the toggle as applied.
			return nil
		}
	}

	if existing.Polarity() == polarity {
		return s.db.Delete(existing).Error
	}
	existing.SetPolarity(polarity)
	return s.db.Save(existing).Error
}

// FindVote returns the caller's current vote on target, or nil.
func (s *VoteService) FindVote(userID uint, target models.Votable) (models.Vote, error) {
	return target.FindVote(s.db, userID)
}

// NetScore computes upvotes minus downvotes on demand. Polarities are +1 and
// -1, so the difference is the sum of vote_type over the target's rows.
func (s *VoteService) NetScore(target models.Votable) (int, error) {
	var score int64
	err := target.VoteScope(s.db).Select("COALESCE(SUM(vote_type), 0)").Scan(&score).Error
	if err != nil {
		return 0, err
	}
	return int(score), nil
}
