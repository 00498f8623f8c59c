package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/middleware"
	"github.com/esa0624/CU-Blueboard/models"
	"github.com/esa0624/CU-Blueboard/services"
	"github.com/esa0624/CU-Blueboard/utils"
)

// VoteController handles up/down voting on posts, answers and comments.
type VoteController struct {
	db    *gorm.DB
	votes *services.VoteService
}

// NewVoteController creates a VoteController.
func NewVoteController(db *gorm.DB, votes *services.VoteService) *VoteController {
	return &VoteController{db: db, votes: votes}
}

// VotePost toggles the current user's vote on a post.
func (v *VoteController) VotePost(ctx *gin.Context) {
	v.toggle(ctx, func(id uint) (models.Votable, error) {
		var post models.Post
		err := v.db.First(&post, id).Error
		return &post, err
	})
}

// VoteAnswer toggles the current user's vote on an answer.
func (v *VoteController) VoteAnswer(ctx *gin.Context) {
	v.toggle(ctx, func(id uint) (models.Votable, error) {
		var answer models.Answer
		err := v.db.First(&answer, id).Error
		return &answer, err
	})
}

// VoteComment toggles the current user's vote on an answer comment.
func (v *VoteController) VoteComment(ctx *gin.Context) {
	v.toggle(ctx, func(id uint) (models.Votable, error) {
		var comment models.AnswerComment
		err := v.db.First(&comment, id).Error
		return &comment, err
	})
}

func (v *VoteController) toggle(ctx *gin.Context, load func(uint) (models.Votable, error)) {
	user := middleware.CurrentUser(ctx, v.db)
	if user == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "authentication required")
		return
	}

	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	target, err := load(id)
	if err != nil {
		serviceError(ctx, err)
		return
	}

	var req struct {
		Direction string `json:"direction" binding:"required,oneof=up down"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40015, "direction must be up or down")
		return
	}

	if req.Direction == "up" {
		err = v.votes.Upvote(user.ID, target)
	} else {
		err = v.votes.Downvote(user.ID, target)
	}
	if err != nil {
		serviceError(ctx, err)
		return
	}

	score, err := v.votes.NetScore(target)
	if err != nil {
		serviceError(ctx, err)
		return
	}

	polarity := 0
	if vote, err := v.votes.FindVote(user.ID, target); err == nil && vote != nil {
		polarity = vote.Polarity()
	}
	utils.Success(ctx, gin.H{"net_score": score, "my_vote": polarity})
}
