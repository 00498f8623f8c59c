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

// ModerationController exposes the moderator workflow: the review queue,
// redaction, report handling and the dashboard.
type ModerationController struct {
	db        *gorm.DB
	redaction *services.RedactionService
	reports   *services.ReportService
	threads   *services.ThreadService
	posts     *services.PostService
	dashboard *services.DashboardService
}

// NewModerationController creates a ModerationController.
func NewModerationController(
	db *gorm.DB,
	redaction *services.RedactionService,
	reports *services.ReportService,
	threads *services.ThreadService,
	posts *services.PostService,
	dashboard *services.DashboardService,
) *ModerationController {
	return &ModerationController{
		db:        db,
		redaction: redaction,
		reports:   reports,
		threads:   threads,
		posts:     posts,
		dashboard: dashboard,
	}
}

// Queue lists posts needing moderator attention: AI flagged, reported or
// under appeal. Urgent posts sort first.
func (m *ModerationController) Queue(ctx *gin.Context) {
	var posts []models.Post
	err := m.db.
		Preload("User").
		Preload("Reports").
		Where("ai_flagged = ? OR reported = ? OR appeal_requested = ?", true, true, true).
		Order("reports_count DESC, created_at DESC").
		Find(&posts).Error
	if err != nil {
		serviceError(ctx, err)
		return
	}

	items := make([]gin.H, 0, len(posts))
	for i := range posts {
		post := &posts[i]
		reasons := make([]string, 0, len(post.Reports))
		for _, r := range post.Reports {
			reasons = append(reasons, r.Reason)
		}
		items = append(items, gin.H{
			"id":               post.ID,
			"title":            post.Title,
			"body":             post.Body,
			"redaction_state":  post.RedactionState,
			"ai_flagged":       post.AIFlagged,
			"ai_categories":    post.AICategories,
			"reported":         post.Reported,
			"reports_count":    post.ReportsCount,
			"report_reasons":   reasons,
			"appeal_requested": post.AppealRequested,
			"urgent":           m.reports.NeedsUrgentReview(post),
			"created_at":       post.CreatedAt,
		})
	}
	utils.Success(ctx, gin.H{"items": items, "total": len(items)})
}

type redactRequest struct {
	Reason string `json:"reason" binding:"required"`
	State  string `json:"state" binding:"required,oneof=partial redacted"`
}

// RedactPost hides a post's body behind a moderation placeholder.
func (m *ModerationController) RedactPost(ctx *gin.Context) {
	moderator, post, ok := m.loadPost(ctx)
	if !ok {
		return
	}
	var req redactRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	m.applyRedaction(ctx, post, moderator, req)
}

// UnredactPost restores a redacted post.
func (m *ModerationController) UnredactPost(ctx *gin.Context) {
	moderator, post, ok := m.loadPost(ctx)
	if !ok {
		return
	}
	m.applyUnredaction(ctx, post, moderator)
}

// RedactAnswer hides an answer's body behind a moderation placeholder.
func (m *ModerationController) RedactAnswer(ctx *gin.Context) {
	moderator, answer, ok := m.loadAnswer(ctx)
	if !ok {
		return
	}
	var req redactRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	m.applyRedaction(ctx, answer, moderator, req)
}

// UnredactAnswer restores a redacted answer.
func (m *ModerationController) UnredactAnswer(ctx *gin.Context) {
	moderator, answer, ok := m.loadAnswer(ctx)
	if !ok {
		return
	}
	m.applyUnredaction(ctx, answer, moderator)
}

// DismissReports removes every report on a post and clears its flags.
func (m *ModerationController) DismissReports(ctx *gin.Context) {
	moderator, post, ok := m.loadPost(ctx)
	if !ok {
		return
	}
	if err := m.reports.Dismiss(moderator, post); err != nil {
		serviceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"reported": post.Reported, "reports_count": post.ReportsCount})
}

// ClearAIFlag marks an AI screening result as a false positive.
func (m *ModerationController) ClearAIFlag(ctx *gin.Context) {
	moderator, post, ok := m.loadPost(ctx)
	if !ok {
		return
	}
	if err := m.posts.ClearAIFlag(post, moderator); err != nil {
		serviceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"ai_flagged": false})
}

// ClearAppeal resolves an author's appeal without touching the flag itself.
func (m *ModerationController) ClearAppeal(ctx *gin.Context) {
	moderator, post, ok := m.loadPost(ctx)
	if !ok {
		return
	}
	if err := m.threads.ClearAppeal(post, moderator); err != nil {
		serviceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"appeal_requested": false})
}

// Stats returns the moderation dashboard snapshot.
func (m *ModerationController) Stats(ctx *gin.Context) {
	stats, err := m.dashboard.Stats()
	if err != nil {
		serviceError(ctx, err)
		return
	}
	utils.Success(ctx, stats)
}

// AuditLogs lists recent moderation actions, newest first.
func (m *ModerationController) AuditLogs(ctx *gin.Context) {
	var logs []models.AuditLog
	if err := m.db.Order("created_at DESC").Limit(200).Find(&logs).Error; err != nil {
		serviceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"items": logs})
}

func (m *ModerationController) applyRedaction(ctx *gin.Context, item models.Redactable, moderator *models.User, req redactRequest) {
	done, err := m.redaction.Redact(item, moderator, req.Reason, models.RedactionState(req.State))
	if err != nil {
		serviceError(ctx, err)
		return
	}
	if !done {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "redaction failed")
		return
	}
	utils.Success(ctx, gin.H{"redaction_state": req.State})
}

func (m *ModerationController) applyUnredaction(ctx *gin.Context, item models.Redactable, moderator *models.User) {
	done, err := m.redaction.Unredact(item, moderator)
	if err != nil {
		serviceError(ctx, err)
		return
	}
	if !done {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "unredaction failed")
		return
	}
	utils.Success(ctx, gin.H{"redaction_state": models.RedactionVisible})
}

func (m *ModerationController) loadPost(ctx *gin.Context) (*models.User, *models.Post, bool) {
	moderator := middleware.CurrentUser(ctx, m.db)
	if moderator == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "authentication required")
		return nil, nil, false
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return nil, nil, false
	}
	var post models.Post
	if err := m.db.First(&post, id).Error; err != nil {
		serviceError(ctx, err)
		return nil, nil, false
	}
	return moderator, &post, true
}

func (m *ModerationController) loadAnswer(ctx *gin.Context) (*models.User, *models.Answer, bool) {
	moderator := middleware.CurrentUser(ctx, m.db)
	if moderator == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "authentication required")
		return nil, nil, false
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return nil, nil, false
	}
	var answer models.Answer
	if err := m.db.First(&answer, id).Error; err != nil {
		serviceError(ctx, err)
		return nil, nil, false
	}
	return moderator, &answer, true
}
