package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/models"
	"github.com/esa0624/CU-Blueboard/services"
	"github.com/esa0624/CU-Blueboard/utils"
)

// serviceError maps service sentinels onto the JSON envelope.
func serviceError(ctx *gin.Context, err error) {
	switch {
	case services.IsValidation(err):
		utils.Error(ctx, http.StatusUnprocessableEntity, 42201, err.Error())
	case errors.Is(err, services.ErrNotModerator):
		utils.Error(ctx, http.StatusForbidden, 40301, "moderator access required")
	case errors.Is(err, services.ErrNotAuthor):
		utils.Error(ctx, http.StatusForbidden, 40303, "only the author may do that")
	case errors.Is(err, services.ErrSelfReport):
		utils.Error(ctx, http.StatusUnprocessableEntity, 42202, "you cannot report your own post")
	case errors.Is(err, services.ErrDuplicateReport):
		utils.Error(ctx, http.StatusConflict, 40902, "you have already reported this post")
	case errors.Is(err, services.ErrInvalidReason):
		utils.Error(ctx, http.StatusUnprocessableEntity, 42203, "invalid report reason")
	case errors.Is(err, services.ErrReportNotFound):
		utils.Error(ctx, http.StatusNotFound, 40402, "report not found")
	case errors.Is(err, services.ErrInvalidRedactionState):
		utils.Error(ctx, http.StatusUnprocessableEntity, 42204, "invalid redaction state")
	case errors.Is(err, services.ErrNotRedacted):
		utils.Error(ctx, http.StatusUnprocessableEntity, 42205, "content is not redacted")
	case errors.Is(err, services.ErrThreadLocked):
		utils.Error(ctx, http.StatusUnprocessableEntity, 42206, "thread is locked")
	case errors.Is(err, services.ErrAnswerMismatch):
		utils.Error(ctx, http.StatusUnprocessableEntity, 42207, "answer does not belong to this post")
	case errors.Is(err, services.ErrNotUnlockable):
		utils.Error(ctx, http.StatusUnprocessableEntity, 42208, "thread is not locked")
	case errors.Is(err, services.ErrNotFlagged):
		utils.Error(ctx, http.StatusUnprocessableEntity, 42209, "post is not flagged")
	case errors.Is(err, services.ErrAlreadyBookmarked):
		utils.Error(ctx, http.StatusConflict, 40903, "already bookmarked")
	case errors.Is(err, services.ErrBookmarkNotFound):
		utils.Error(ctx, http.StatusNotFound, 40403, "bookmark not found")
	case errors.Is(err, gorm.ErrRecordNotFound):
		utils.Error(ctx, http.StatusNotFound, 40404, "not found")
	default:
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal error")
	}
}

func paramID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// postView builds the JSON view of a post for a given viewer. The author is
// only ever exposed through the thread identity rules.
func postView(post *models.Post, identities *services.IdentityService, votes *services.VoteService, viewer *models.User) gin.H {
	score, _ := votes.NetScore(post)
	view := gin.H{
		"id":              post.ID,
		"title":           post.Title,
		"body":            post.Body,
		"topic_id":        post.TopicID,
		"school":          post.School,
		"course_code":     post.CourseCode,
		"status":          post.Status,
		"redaction_state": post.RedactionState,
		"author_name":     identities.DisplayName(post, &post.User, viewer),
		"net_score":       score,
		"reports_count":   post.ReportsCount,
		"ai_flagged":      post.AIFlagged,
		"locked_at":       post.LockedAt,
		"expires_at":      post.ExpiresAt,
		"created_at":      post.CreatedAt,
		"updated_at":      post.UpdatedAt,
	}
	if post.Topic.ID != 0 {
		view["topic"] = post.Topic
	}
	if len(post.Tags) > 0 {
		view["tags"] = post.Tags
	}
	if post.AcceptedAnswerID != nil {
		view["accepted_answer_id"] = *post.AcceptedAnswerID
	}
	return view
}

func answerView(post *models.Post, answer *models.Answer, identities *services.IdentityService, votes *services.VoteService, viewer *models.User) gin.H {
	score, _ := votes.NetScore(answer)
	comments := make([]gin.H, 0, len(answer.Comments))
	for i := range answer.Comments {
		c := &answer.Comments[i]
		cScore, _ := votes.NetScore(c)
		comments = append(comments, gin.H{
			"id":          c.ID,
			"answer_id":   c.AnswerID,
			"body":        c.Body,
			"author_name": identities.DisplayName(post, &c.User, viewer),
			"net_score":   cScore,
			"created_at":  c.CreatedAt,
		})
	}
	return gin.H{
		"id":              answer.ID,
		"post_id":         answer.PostID,
		"body":            answer.Body,
		"redaction_state": answer.RedactionState,
		"author_name":     identities.DisplayName(post, &answer.User, viewer),
		"accepted":        post.AcceptedAnswerID != nil && *post.AcceptedAnswerID == answer.ID,
		"net_score":       score,
		"comments":        comments,
		"created_at":      answer.CreatedAt,
		"updated_at":      answer.UpdatedAt,
	}
}
