package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/middleware"
	"github.com/esa0624/CU-Blueboard/models"
	"github.com/esa0624/CU-Blueboard/services"
	"github.com/esa0624/CU-Blueboard/utils"
)

// PostController handles the question lifecycle: browsing, creation,
// bookmarking, reporting and appeals.
type PostController struct {
	db         *gorm.DB
	posts      *services.PostService
	search     *services.SearchService
	duplicates *services.DuplicateFinder
	reports    *services.ReportService
	threads    *services.ThreadService
	identities *services.IdentityService
	votes      *services.VoteService
}

// NewPostController creates a PostController.
func NewPostController(
	db *gorm.DB,
	posts *services.PostService,
	search *services.SearchService,
	duplicates *services.DuplicateFinder,
	reports *services.ReportService,
	threads *services.ThreadService,
	identities *services.IdentityService,
	votes *services.VoteService,
) *PostController {
	return &PostController{
		db:         db,
		posts:      posts,
		search:     search,
		duplicates: duplicates,
		reports:    reports,
		threads:    threads,
		identities: identities,
		votes:      votes,
	}
}

// List returns posts matching the query filters, most recent first.
func (p *PostController) List(ctx *gin.Context) {
	viewer := middleware.CurrentUser(ctx, p.db)

	filters := services.SearchFilters{
		Query:      strings.TrimSpace(ctx.Query("q")),
		Status:     strings.TrimSpace(ctx.Query("status")),
		School:     strings.TrimSpace(ctx.Query("school")),
		CourseCode: strings.TrimSpace(ctx.Query("course_code")),
		Timeframe:  strings.TrimSpace(ctx.Query("timeframe")),
	}
	if v := ctx.Query("topic_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			filters.TopicID = uint(id)
		}
	}
	for _, v := range ctx.QueryArray("tag_ids") {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil {
			filters.TagIDs = append(filters.TagIDs, uint(id))
		}
	}
	if ctx.Query("mine") == "true" && viewer != nil {
		filters.AuthorID = viewer.ID
	}

	posts, err := p.search.Search(filters, viewer)
	if err != nil {
		serviceError(ctx, err)
		return
	}

	items := make([]gin.H, 0, len(posts))
	for i := range posts {
		items = append(items, postView(&posts[i], p.identities, p.votes, viewer))
	}
	utils.Success(ctx, gin.H{"items": items, "total": len(items)})
}

// Get returns a single post with its answers and comments.
func (p *PostController) Get(ctx *gin.Context) {
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	viewer := middleware.CurrentUser(ctx, p.db)

	var post models.Post
	err := p.db.
		Preload("User").
		Preload("Topic").
		Preload("Tags").
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Answers.User").
		Preload("Answers.Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Answers.Comments.User").
		First(&post, id).Error
	if err != nil {
		serviceError(ctx, err)
		return
	}

	view := postView(&post, p.identities, p.votes, viewer)
	answers := make([]gin.H, 0, len(post.Answers))
	for i := range post.Answers {
		answers = append(answers, answerView(&post, &post.Answers[i], p.identities, p.votes, viewer))
	}
	view["answers"] = answers
	utils.Success(ctx, view)
}

// Create publishes a new question and assigns the author's thread pseudonym.
func (p *PostController) Create(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx, p.db)
	if user == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "authentication required")
		return
	}

	var in services.PostInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}

	post, err := p.posts.Create(user, in)
	if err != nil {
		serviceError(ctx, err)
		return
	}

	post.User = *user
	utils.Respond(ctx, http.StatusCreated, 0, "success", postView(post, p.identities, p.votes, user))
}

// Update edits the author's own post.
func (p *PostController) Update(ctx *gin.Context) {
	user, post, ok := p.loadUserAndPost(ctx)
	if !ok {
		return
	}

	var in services.PostInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "invalid request payload")
		return
	}

	if err := p.posts.Update(user, post, in); err != nil {
		serviceError(ctx, err)
		return
	}
	utils.Success(ctx, postView(post, p.identities, p.votes, user))
}

// Delete removes a post along with its answers, votes, reports, bookmarks
// and thread identities. Authors may delete their own posts; moderators may
// delete any.
func (p *PostController) Delete(ctx *gin.Context) {
	user, post, ok := p.loadUserAndPost(ctx)
	if !ok {
		return
	}
	if err := p.posts.Delete(user, post); err != nil {
		serviceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"deleted": true})
}

// Similar returns existing posts that look like the draft, to discourage
// duplicate questions before submission.
func (p *PostController) Similar(ctx *gin.Context) {
	title := strings.TrimSpace(ctx.Query("title"))
	body := strings.TrimSpace(ctx.Query("body"))
	if title == "" && body == "" {
		utils.Success(ctx, gin.H{"items": []gin.H{}})
		return
	}

	posts, err := p.duplicates.Find(title, body, 0)
	if err != nil {
		serviceError(ctx, err)
		return
	}

	items := make([]gin.H, 0, len(posts))
	for _, post := range posts {
		items = append(items, gin.H{"id": post.ID, "title": post.Title, "created_at": post.CreatedAt})
	}
	utils.Success(ctx, gin.H{"items": items})
}

// Bookmark saves the post for the current user.
func (p *PostController) Bookmark(ctx *gin.Context) {
	user, post, ok := p.loadUserAndPost(ctx)
	if !ok {
		return
	}
	if err := p.posts.Bookmark(user, post); err != nil {
		serviceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"bookmarked": true})
}

// Unbookmark removes the saved post.
func (p *PostController) Unbookmark(ctx *gin.Context) {
	user, post, ok := p.loadUserAndPost(ctx)
	if !ok {
		return
	}
	if err := p.posts.Unbookmark(user, post); err != nil {
		serviceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"bookmarked": false})
}

// Bookmarks lists the current user's saved posts.
func (p *PostController) Bookmarks(ctx *gin.Context) {
	user := middleware.CurrentUser(ctx, p.db)
	if user == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "authentication required")
		return
	}

	var bookmarks []models.Bookmark
	if err := p.db.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&bookmarks).Error; err != nil {
		serviceError(ctx, err)
		return
	}
	ids := make([]uint, 0, len(bookmarks))
	for _, b := range bookmarks {
		ids = append(ids, b.PostID)
	}

	posts, err := p.search.Search(services.SearchFilters{PostIDs: ids}, user)
	if err != nil {
		serviceError(ctx, err)
		return
	}
	items := make([]gin.H, 0, len(posts))
	for i := range posts {
		items = append(items, postView(&posts[i], p.identities, p.votes, user))
	}
	utils.Success(ctx, gin.H{"items": items})
}

// Report files a moderation report against the post.
func (p *PostController) Report(ctx *gin.Context) {
	user, post, ok := p.loadUserAndPost(ctx)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, "invalid request payload")
		return
	}

	if err := p.reports.Report(user, post, req.Reason); err != nil {
		serviceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"reported": true, "reports_count": post.ReportsCount})
}

// WithdrawReport removes the current user's own report.
func (p *PostController) WithdrawReport(ctx *gin.Context) {
	user, post, ok := p.loadUserAndPost(ctx)
	if !ok {
		return
	}
	if err := p.reports.Dismiss(user, post); err != nil {
		serviceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"reported": false})
}

// Appeal asks moderators to review an AI flag on the author's post.
func (p *PostController) Appeal(ctx *gin.Context) {
	user, post, ok := p.loadUserAndPost(ctx)
	if !ok {
		return
	}
	if err := p.threads.RequestAppeal(post, user); err != nil {
		serviceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"appeal_requested": true})
}

// Accept marks an answer as accepted and locks the thread.
func (p *PostController) Accept(ctx *gin.Context) {
	user, post, ok := p.loadUserAndPost(ctx)
	if !ok {
		return
	}
	if post.UserID != user.ID {
		serviceError(ctx, services.ErrNotAuthor)
		return
	}

	answerID, ok := paramID(ctx, "answer_id")
	if !ok {
		return
	}
	var answer models.Answer
	if err := p.db.First(&answer, answerID).Error; err != nil {
		serviceError(ctx, err)
		return
	}

	if err := p.threads.LockWith(post, &answer); err != nil {
		serviceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"status": post.Status, "accepted_answer_id": answer.ID})
}

// Reopen unlocks a solved thread so new answers may arrive.
func (p *PostController) Reopen(ctx *gin.Context) {
	user, post, ok := p.loadUserAndPost(ctx)
	if !ok {
		return
	}
	if post.UserID != user.ID && !user.CanModerate() {
		serviceError(ctx, services.ErrNotAuthor)
		return
	}
	if err := p.threads.Unlock(post); err != nil {
		serviceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"status": post.Status})
}

// RevealIdentity lets the author attach their real identity to the thread.
func (p *PostController) RevealIdentity(ctx *gin.Context) {
	user, post, ok := p.loadUserAndPost(ctx)
	if !ok {
		return
	}
	if post.UserID != user.ID {
		serviceError(ctx, services.ErrNotAuthor)
		return
	}
	if err := p.threads.RevealIdentity(post, user); err != nil {
		serviceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"show_real_identity": true})
}

// HideIdentity returns the thread to pseudonymous display.
func (p *PostController) HideIdentity(ctx *gin.Context) {
	user, post, ok := p.loadUserAndPost(ctx)
	if !ok {
		return
	}
	if post.UserID != user.ID {
		serviceError(ctx, services.ErrNotAuthor)
		return
	}
	if err := p.threads.HideIdentity(post, user); err != nil {
		serviceError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"show_real_identity": false})
}

func (p *PostController) loadUserAndPost(ctx *gin.Context) (*models.User, *models.Post, bool) {
	user := middleware.CurrentUser(ctx, p.db)
	if user == nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "authentication required")
		return nil, nil, false
	}

	id, ok := paramID(ctx, "id")
	if !ok {
		return nil, nil, false
	}
	var post models.Post
	if err := p.db.Preload("User").First(&post, id).Error; err != nil {
		serviceError(ctx, err)
		return nil, nil, false
	}
	return user, &post, true
}
