package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/fathomcrm/fathom-backend/internal/ai"
	"github.com/fathomcrm/fathom-backend/internal/connector"
	"github.com/fathomcrm/fathom-backend/internal/jobs"
	"github.com/fathomcrm/fathom-backend/internal/jobs/pipeline"
	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/services"
)

type Services struct {
	Auth        services.AuthService
	User        services.UserService
	Sync        services.SyncService
	Job         services.JobService
	BatchStatus services.BatchStatusService
	Undo        services.UndoService
	Contact     services.ContactService
	Note        services.NoteService
	Notifier    services.JobNotifier

	Connectors *connector.Registry
	AI         ai.Client
	JobWorker  *jobs.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos) (Services, error) {
	log.Info("Wiring services...")

	notifier, err := services.NewRedisJobNotifier(log)
	if err != nil {
		log.Warn("Redis notifier unavailable, falling back to no-op", "error", err)
		notifier = services.NewNoopJobNotifier()
	}

	aiClient, err := ai.NewClient(log)
	if err != nil {
		log.Warn("AI client unavailable, extraction falls back to payload data", "error", err)
		aiClient = nil
	}

	connectors := connector.NewRegistry()

	syncService := services.NewSyncService(db, log, connectors, r.UserConnection, r.RawEvent, r.Job, notifier)
	jobService := services.NewJobService(db, log, r.Job, notifier)

	registry := jobs.NewRegistry()
	handlers := []jobs.Handler{
		pipeline.NewProviderSyncHandler(log, syncService),
		pipeline.NewNormalizeHandler(log, r.RawEvent, r.Interaction),
		pipeline.NewExtractContactsHandler(log, r.Job, r.Interaction, r.RawEvent, r.Contact, aiClient),
		pipeline.NewEmbedHandler(log, r.Job, r.Interaction, aiClient),
	}
	for _, h := range handlers {
		if err := registry.Register(h); err != nil {
			return Services{}, fmt.Errorf("register job handler: %w", err)
		}
	}
	worker := jobs.NewWorker(log, r.Job, registry, notifier, jobs.Options{
		SweepInterval:   cfg.SweepInterval,
		SweepLimit:      cfg.SweepLimit,
		Concurrency:     cfg.Concurrency,
		MaxAttempts:     cfg.MaxAttempts,
		StaleProcessing: cfg.StaleProcessing,
	})

	return Services{
		Auth:        services.NewAuthService(db, log, r.User, r.UserToken, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		User:        services.NewUserService(db, log, r.User, r.UserConnection),
		Sync:        syncService,
		Job:         jobService,
		BatchStatus: services.NewBatchStatusService(db, log, r.Job),
		Undo:        services.NewUndoService(db, log, r.RawEvent, r.Interaction, r.Job),
		Contact:     services.NewContactService(db, log, r.Contact, r.Interaction),
		Note:        services.NewNoteService(db, log, r.Note),
		Notifier:    notifier,
		Connectors:  connectors,
		AI:          aiClient,
		JobWorker:   worker,
	}, nil
}
