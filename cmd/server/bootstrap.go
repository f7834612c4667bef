package main

import (
	"context"

	"github.com/hfeng/codegrader/internal/config"
	"github.com/hfeng/codegrader/internal/handlers"
	"github.com/hfeng/codegrader/internal/models"
	"github.com/hfeng/codegrader/internal/services"
	"github.com/hfeng/codegrader/internal/utils"
	"github.com/hfeng/codegrader/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg        *config.Config
	engine     *services.AnalysisEngine
	plagiarism *services.PlagiarismService
	scheduler  *services.PlagiarismScheduler
	taskQueue  services.TaskQueue
	worker     *services.Worker
	authHandler *handlers.AuthHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	db := models.GetDB()

	services.InitAuditLog(db)
	services.StartLogCleanupScheduler(db)

	engine := services.NewAnalysisEngine(db, &cfg.AI)
	plagiarism := services.NewPlagiarismService(db, &cfg.Plagiarism)

	// One processor serves both the sync queue and the Redis worker.
	processor := func(ctx context.Context, task *services.Task) error {
		switch task.Type {
		case services.TaskTypeAnalyze:
			return engine.ProcessSubmission(ctx, task.SubmissionID)
		case services.TaskTypePlagiarism:
			return plagiarism.Run(ctx, task.AssignmentID)
		default:
			logger.Warnf("[Worker] Unknown task type: %s", task.Type)
			return nil
		}
	}

	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(processor)
	}
	engine.SetQueue(taskQueue)

	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(processor)
			worker.Start()
		}
	}

	scheduler := services.NewPlagiarismScheduler(db, plagiarism, cfg.Plagiarism.Schedule)
	if err := scheduler.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start plagiarism sweep")
	}

	authHandler := handlers.NewAuthHandler(db, cfg)
	if err := authHandler.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		cfg:         cfg,
		engine:      engine,
		plagiarism:  plagiarism,
		scheduler:   scheduler,
		taskQueue:   taskQueue,
		worker:      worker,
		authHandler: authHandler,
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.scheduler.Stop()
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	logger.Info().Msg("All services stopped")
}
