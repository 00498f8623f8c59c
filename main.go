package main

import (
	"context"

	"github.com/esa0624/CU-Blueboard/config"
	"github.com/esa0624/CU-Blueboard/models"
	"github.com/esa0624/CU-Blueboard/routes"
	"github.com/esa0624/CU-Blueboard/services"
	"github.com/esa0624/CU-Blueboard/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Topic{},
		&models.Tag{},
		&models.Post{},
		&models.Answer{},
		&models.AnswerComment{},
		&models.Like{},
		&models.AnswerLike{},
		&models.AnswerCommentLike{},
		&models.PostReport{},
		&models.Bookmark{},
		&models.ThreadIdentity{},
		&models.PostRevision{},
		&models.AnswerRevision{},
		&models.AuditLog{},
	)

	if err := services.SeedTaxonomy(db); err != nil {
		utils.Sugar.Fatalf("failed to seed topics and tags: %v", err)
	}

	identities := services.NewIdentityService(db)
	queue := services.NewRedisTaskQueue(utils.GetRedis())
	svc := routes.Services{
		Posts:      services.NewPostService(db, queue, identities, utils.Sugar),
		Answers:    services.NewAnswerService(db, identities),
		Comments:   services.NewCommentService(db, identities),
		Search:     services.NewSearchService(db),
		Duplicates: services.NewDuplicateFinder(db),
		Reports:    services.NewReportService(db),
		Redaction:  services.NewRedactionService(db, utils.Sugar),
		Threads:    services.NewThreadService(db),
		Identities: identities,
		Votes:      services.NewVoteService(db),
		Dashboard:  services.NewDashboardService(db),
		Policy: services.IdentityPolicy{
			AllowedDomains:     cfg.AllowedEmailDomains,
			AllowedLoginEmails: cfg.AllowedLoginEmails,
			ModeratorEmails:    cfg.ModeratorEmails,
		},
	}

	// Background screening worker. A missing API key disables screening but
	// never blocks the forum itself.
	screener, err := services.NewScreenerClient(cfg)
	if err != nil {
		utils.Sugar.Warnf("content screening disabled: %v", err)
		screener = nil
	}
	worker := services.NewScreeningWorker(db, queue, screenerOrNil(screener), utils.Sugar)
	go worker.Run(context.Background())

	r := routes.SetupRouter(db, svc)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

// screenerOrNil keeps a typed nil pointer from sneaking into the interface.
func screenerOrNil(c *services.ScreenerClient) services.Screener {
	if c == nil {
		return nil
	}
	return c
}
