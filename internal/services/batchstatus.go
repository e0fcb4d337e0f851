package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/repos"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

const (
	BatchStatusNotFound   = "not_found"
	BatchStatusFailed     = "failed"
	BatchStatusProcessing = "processing"
	BatchStatusQueued     = "queued"
	BatchStatusCompleted  = "completed"
)

type KindCounts struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
	Error      int `json:"error"`
}

type BatchSummary struct {
	TotalJobs       int                   `json:"total_jobs"`
	Completed       int                   `json:"completed"`
	Failed          int                   `json:"failed"`
	Processing      int                   `json:"processing"`
	Queued          int                   `json:"queued"`
	EventsProcessed int                   `json:"events_processed"`
	ContactsLinked  int                   `json:"contacts_linked"`
	Embedded        int                   `json:"embedded"`
	Kinds           map[string]KindCounts `json:"kinds"`
}

type BatchStatus struct {
	BatchID uuid.UUID    `json:"batch_id"`
	Status  string       `json:"status"`
	Summary BatchSummary `json:"summary"`
}

// BatchStatusService derives a batch's logical status from its job rows.
// It is pure read-side: safe to call at any point, including mid-pipeline.
type BatchStatusService interface {
	GetBatchStatus(ctx context.Context, userID uuid.UUID, batchID uuid.UUID) (*BatchStatus, error)
}

type batchStatusService struct {
	db   *gorm.DB
	log  *logger.Logger
	jobs repos.JobRepo
}

func NewBatchStatusService(db *gorm.DB, baseLog *logger.Logger, jobs repos.JobRepo) BatchStatusService {
	return &batchStatusService{
		db:   db,
		log:  baseLog.With("service", "BatchStatusService"),
		jobs: jobs,
	}
}

func (s *batchStatusService) GetBatchStatus(ctx context.Context, userID uuid.UUID, batchID uuid.UUID) (*BatchStatus, error) {
	rows, err := s.jobs.ListByBatch(ctx, nil, userID, batchID)
	if err != nil {
		return nil, err
	}
	status := &BatchStatus{
		BatchID: batchID,
		Status:  BatchStatusNotFound,
		Summary: BatchSummary{Kinds: map[string]KindCounts{}},
	}
	if len(rows) == 0 {
		return status, nil
	}

	for _, job := range rows {
		status.Summary.TotalJobs++
		kc := status.Summary.Kinds[job.Kind]
		switch job.Status {
		case types.JobStatusQueued:
			status.Summary.Queued++
			kc.Queued++
		case types.JobStatusProcessing:
			status.Summary.Processing++
			kc.Processing++
		case types.JobStatusDone:
			status.Summary.Completed++
			kc.Done++
		case types.JobStatusError:
			status.Summary.Failed++
			kc.Error++
		}
		status.Summary.Kinds[job.Kind] = kc
		mergeStageMetrics(&status.Summary, job)
	}

	switch {
	case status.Summary.Failed > 0:
		status.Status = BatchStatusFailed
	case status.Summary.Processing > 0:
		status.Status = BatchStatusProcessing
	case status.Summary.Queued > 0:
		status.Status = BatchStatusQueued
	default:
		status.Status = BatchStatusCompleted
	}
	return status, nil
}

// Stage handlers record their counters in the job result; the aggregator
// just surfaces them.
func mergeStageMetrics(summary *BatchSummary, job *types.Job) {
	if len(job.Result) == 0 {
		return
	}
	var metrics struct {
		EventsProcessed int `json:"events_processed"`
		ContactsLinked  int `json:"contacts_linked"`
		Embedded        int `json:"embedded"`
	}
	if err := json.Unmarshal(job.Result, &metrics); err != nil {
		return
	}
	summary.EventsProcessed += metrics.EventsProcessed
	summary.ContactsLinked += metrics.ContactsLinked
	summary.Embedded += metrics.Embedded
}
