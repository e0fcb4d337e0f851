package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/repos"
)

type UndoResult struct {
	DeletedEvents       int64 `json:"deleted_events"`
	DeletedInteractions int64 `json:"deleted_interactions"`
	AffectedJobs        int64 `json:"affected_jobs"`
}

// UndoService is the compensating transaction for an unwanted sync: it
// hard-deletes the batch's raw events and interactions and marks the
// batch's jobs done so they stop running but stay visible as history.
// Artifacts a stage wrote outside the batch-scoped tables (contacts
// resolved during extraction) are left in place.
type UndoService interface {
	Undo(ctx context.Context, userID uuid.UUID, batchID uuid.UUID) (*UndoResult, error)
}

type undoService struct {
	db           *gorm.DB
	log          *logger.Logger
	rawEvents    repos.RawEventRepo
	interactions repos.InteractionRepo
	jobs         repos.JobRepo
}

func NewUndoService(
	db *gorm.DB,
	baseLog *logger.Logger,
	rawEvents repos.RawEventRepo,
	interactions repos.InteractionRepo,
	jobs repos.JobRepo,
) UndoService {
	return &undoService{
		db:           db,
		log:          baseLog.With("service", "UndoService"),
		rawEvents:    rawEvents,
		interactions: interactions,
		jobs:         jobs,
	}
}

// Undo scopes every mutation to (userID, batchID), so an unknown or
// foreign batch id degrades to a zero-row no-op rather than an error.
// That also makes the whole operation idempotent.
func (s *undoService) Undo(ctx context.Context, userID uuid.UUID, batchID uuid.UUID) (*UndoResult, error) {
	if userID == uuid.Nil || batchID == uuid.Nil {
		return nil, fmt.Errorf("missing user or batch id: %w", ErrInvalidInput)
	}
	result := &UndoResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.interactions.DeleteByBatch(ctx, tx, userID, batchID)
		if err != nil {
			return fmt.Errorf("delete interactions: %w", err)
		}
		result.DeletedInteractions = n

		n, err = s.rawEvents.DeleteByBatch(ctx, tx, userID, batchID)
		if err != nil {
			return fmt.Errorf("delete raw events: %w", err)
		}
		result.DeletedEvents = n

		n, err = s.jobs.MarkBatchDone(ctx, tx, userID, batchID)
		if err != nil {
			return fmt.Errorf("mark jobs done: %w", err)
		}
		result.AffectedJobs = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Batch undone",
		"user_id", userID,
		"batch_id", batchID,
		"deleted_events", result.DeletedEvents,
		"deleted_interactions", result.DeletedInteractions,
		"affected_jobs", result.AffectedJobs,
	)
	return result, nil
}
