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

// AnswerController handles answers and their comments.
type AnswerController struct {
	db         *gorm.DB
	answers    *services.AnswerService
	comments   *services.CommentService
	identities *services.IdentityService
	votes      *services.VoteService
}

// NewAnswerController creates an AnswerController.
func NewAnswerController(db *gorm.DB, answers *services.AnswerService, comments *services.CommentService, identities *services.IdentityService, votes *services.VoteService) *AnswerController {
	return &AnswerController{db: db, answers: answers, comments: comments, identities: identities, votes: votes}
}

type bodyRequest struct {
	Body string `json:"body" binding:"required"`
}

// Create posts an answer on an open thread.
func (a *AnswerController) Create(ctx *gin.Context) {
	user, post, ok := a.loadUserAndPost(ctx)
	if !ok {
		return
	}

	var req bodyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40013, "invalid request payload")
		return
	}

	answer, err := a.answers.Create(user, post, req.Body)
	if err != nil {
		serviceError(ctx, err)
		return
	}
	answer.User = *user
	utils.Respond(ctx, http.StatusCreated, 0, "success", answerView(post, answer, a.identities, a.votes, user))
}

// Update edits the author's own answer.
func (a *AnswerController) Update(ctx *gin.Context) {
	user, post, answer, ok := a.loadAll(ctx)
	if !ok {
		return
	}

	var req bodyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40013, "invalid request payload")
		return
	}

	if err := a.answers.Update(user, post, answer, req.Body); err != nil {
		serviceError(ctx, err)
		return
	}
	answer.User = *user
	utils.Success(ctx, answerView(post, answer, a.identities, a.votes, user))
}

// Delete removes the author's own answer. Deleting the accepted answer
// reopens the thread.
func (a *AnswerController) Delete(ctx *gin.Context) {
	user, post, answer, ok := a.loadAll(ctx)
	if !ok {
		return
	}
	if err := a.answers.Delete(user, post, answer); err != nil {
		serviceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": true})
}

// CreateComment adds a comment under an answer.
func (a *AnswerController) CreateComment(ctx *gin.Context) {
	user, post, answer, ok := a.loadAll(ctx)
	if !ok {
		return
	}

	var req bodyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40014, "invalid request payload")
		return
	}

	comment, err := a.comments.Create(user, post, answer, req.Body)
	if err != nil {
		serviceError(ctx, err)
		return
	}

	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{
		"id":          comment.ID,
		"answer_id":   comment.AnswerID,
		"body":        comment.Body,
		"author_name": a.identities.DisplayName(post, user, user),
		"created_at":  comment.CreatedAt,
	})
}

func (a *AnswerController) loadUserAndPost(ctx *gin.Context) (*models.User, *models.Post, bool) {
	user := middleware.CurrentUser(ctx, a.db)
	if user == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "authentication required")
		return nil, nil, false
	}
	postID, ok := paramID(ctx, "id")
	if !ok {
		return nil, nil, false
	}
	var post models.Post
	if err := a.db.First(&post, postID).Error; err != nil {
		serviceError(ctx, err)
		return nil, nil, false
	}
	return user, &post, true
}

func (a *AnswerController) loadAll(ctx *gin.Context) (*models.User, *models.Post, *models.Answer, bool) {
	user, post, ok := a.loadUserAndPost(ctx)
	if !ok {
		return nil, nil, nil, false
	}
	answerID, ok := paramID(ctx, "answer_id")
	if !ok {
		return nil, nil, nil, false
	}
	var answer models.Answer
	if err := a.db.Preload("Comments").Preload("Comments.User").First(&answer, answerID).Error; err != nil {
		serviceError(ctx, err)
		return nil, nil, nil, false
	}
	return user, post, &answer, true
}
