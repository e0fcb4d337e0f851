package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/repos"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

type JobService interface {
	// EnqueueProviderSync queues an asynchronous sync run. The job's
	// handler performs the actual ingestion and records the batch id it
	// produced in the job result.
	EnqueueProviderSync(ctx context.Context, userID uuid.UUID, opts SyncOptions) (*types.Job, error)
	GetForUser(ctx context.Context, userID uuid.UUID, jobID uuid.UUID) (*types.Job, error)
	ListForUser(ctx context.Context, userID uuid.UUID, batchID *uuid.UUID, limit int) ([]*types.Job, error)
}

type jobService struct {
	db     *gorm.DB
	log    *logger.Logger
	jobs   repos.JobRepo
	notify JobNotifier
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, jobs repos.JobRepo, notify JobNotifier) JobService {
	return &jobService{
		db:     db,
		log:    baseLog.With("service", "JobService"),
		jobs:   jobs,
		notify: notify,
	}
}

func (s *jobService) EnqueueProviderSync(ctx context.Context, userID uuid.UUID, opts SyncOptions) (*types.Job, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user id: %w", ErrInvalidInput)
	}
	if _, _, err := resolveWindowBounds(opts); err != nil {
		return nil, err
	}
	payload := map[string]any{
		"provider":    opts.Provider,
		"incremental": opts.Incremental,
	}
	if opts.OverlapHours != nil {
		payload["overlap_hours"] = *opts.OverlapHours
	}
	if opts.DaysBack != nil {
		payload["days_back"] = *opts.DaysBack
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	job := &types.Job{
		ID:      uuid.New(),
		UserID:  userID,
		Kind:    types.JobKindProviderSync,
		Status:  types.JobStatusQueued,
		Payload: datatypes.JSON(raw),
		Result:  datatypes.JSON([]byte(`{}`)),
	}
	if _, err := s.jobs.Create(ctx, nil, []*types.Job{job}); err != nil {
		return nil, fmt.Errorf("create provider_sync job: %w", err)
	}
	s.notify.JobQueued(job)
	return job, nil
}

func (s *jobService) GetForUser(ctx context.Context, userID uuid.UUID, jobID uuid.UUID) (*types.Job, error) {
	job, err := s.jobs.GetByID(ctx, nil, jobID)
	if err != nil {
		return nil, err
	}
	// Ownership check doubles as existence: foreign jobs look missing.
	if job == nil || job.UserID != userID {
		return nil, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
	}
	return job, nil
}

func (s *jobService) ListForUser(ctx context.Context, userID uuid.UUID, batchID *uuid.UUID, limit int) ([]*types.Job, error) {
	if batchID != nil && *batchID != uuid.Nil {
		return s.jobs.ListByBatch(ctx, nil, userID, *batchID)
	}
	return s.jobs.ListByUser(ctx, nil, userID, limit)
}
