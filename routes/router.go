package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/esa0624/CU-Blueboard/config"
	"github.com/esa0624/CU-Blueboard/controllers"
	"github.com/esa0624/CU-Blueboard/middleware"
	"github.com/esa0624/CU-Blueboard/services"
	"github.com/esa0624/CU-Blueboard/utils"
)

// Services bundles the service layer handed to the router.
type Services struct {
	Posts      *services.PostService
	Answers    *services.AnswerService
	Comments   *services.CommentService
	Search     *services.SearchService
	Duplicates *services.DuplicateFinder
	Reports    *services.ReportService
	Redaction  *services.RedactionService
	Threads    *services.ThreadService
	Identities *services.IdentityService
	Votes      *services.VoteService
	Dashboard  *services.DashboardService
	Policy     services.IdentityPolicy
}

// SetupRouter wires routes, middlewares and controllers.
func SetupRouter(db *gorm.DB, svc Services) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl))
		r.Use(utils.RecoveryWithZap(gl))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db, svc.Policy)
	postController := controllers.NewPostController(db, svc.Posts, svc.Search, svc.Duplicates, svc.Reports, svc.Threads, svc.Identities, svc.Votes)
	answerController := controllers.NewAnswerController(db, svc.Answers, svc.Comments, svc.Identities, svc.Votes)
	voteController := controllers.NewVoteController(db, svc.Votes)
	moderationController := controllers.NewModerationController(db, svc.Redaction, svc.Reports, svc.Threads, svc.Posts, svc.Dashboard)
	taxonomyController := controllers.NewTaxonomyController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/oauth/google/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/google/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	api.GET("/topics", taxonomyController.Topics)
	api.GET("/tags", taxonomyController.Tags)

	postsGroup := api.Group("/posts")
	postsGroup.Use(middleware.AuthOptional())
	postsGroup.GET("", postController.List)
	postsGroup.GET("/similar", postController.Similar)
	postsGroup.GET("/:id", postController.Get)

	authed := api.Group("")
	authed.Use(middleware.AuthRequired())
	{
		authed.GET("/bookmarks", postController.Bookmarks)

		posts := authed.Group("/posts")
		posts.POST("", postController.Create)
		posts.PATCH("/:id", postController.Update)
		posts.DELETE("/:id", postController.Delete)
		posts.POST("/:id/bookmark", postController.Bookmark)
		posts.DELETE("/:id/bookmark", postController.Unbookmark)
		posts.POST("/:id/report", postController.Report)
		posts.DELETE("/:id/report", postController.WithdrawReport)
		posts.POST("/:id/appeal", postController.Appeal)
		posts.POST("/:id/accept/:answer_id", postController.Accept)
		posts.POST("/:id/reopen", postController.Reopen)
		posts.POST("/:id/reveal", postController.RevealIdentity)
		posts.POST("/:id/hide", postController.HideIdentity)
		posts.POST("/:id/vote", voteController.VotePost)

		posts.POST("/:id/answers", answerController.Create)
		posts.PATCH("/:id/answers/:answer_id", answerController.Update)
		posts.DELETE("/:id/answers/:answer_id", answerController.Delete)
		posts.POST("/:id/answers/:answer_id/comments", answerController.CreateComment)

		authed.POST("/answers/:id/vote", voteController.VoteAnswer)
		authed.POST("/comments/:id/vote", voteController.VoteComment)
	}

	moderation := api.Group("/moderation")
	moderation.Use(middleware.AuthRequired(), middleware.ModeratorRequired(db))
	{
		moderation.GET("/queue", moderationController.Queue)
		moderation.GET("/stats", moderationController.Stats)
		moderation.GET("/audit-logs", moderationController.AuditLogs)
		moderation.POST("/posts/:id/redact", moderationController.RedactPost)
		moderation.POST("/posts/:id/unredact", moderationController.UnredactPost)
		moderation.POST("/answers/:id/redact", moderationController.RedactAnswer)
		moderation.POST("/answers/:id/unredact", moderationController.UnredactAnswer)
		moderation.POST("/posts/:id/dismiss-reports", moderationController.DismissReports)
		moderation.POST("/posts/:id/clear-flag", moderationController.ClearAIFlag)
		moderation.POST("/posts/:id/clear-appeal", moderationController.ClearAppeal)
	}

	return r
}
