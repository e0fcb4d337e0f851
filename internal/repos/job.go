package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

type JobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, jobs []*types.Job) ([]*types.Job, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Job, error)
	ListByBatch(ctx context.Context, tx *gorm.DB, userID uuid.UUID, batchID uuid.UUID) ([]*types.Job, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Job, error)
	// ClaimPending transitions up to limit queued jobs to processing,
	// oldest first. The transition is a conditional update per row; a job
	// claimed by a concurrent sweep is simply skipped. Jobs stuck in
	// processing longer than staleProcessing are reclaimable.
	ClaimPending(ctx context.Context, tx *gorm.DB, limit int, staleProcessing time.Duration) ([]*types.Job, error)
	MarkDone(ctx context.Context, tx *gorm.DB, id uuid.UUID, result datatypes.JSON) error
	// MarkFailed increments attempts and either requeues the job or, once
	// attempts reach maxAttempts, parks it in terminal error. Returns true
	// when the job went terminal.
	MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, maxAttempts int, message string) (bool, error)
	// Requeue returns a processing job to queued without consuming an
	// attempt. Used when a stage's predecessor has not finished yet.
	Requeue(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	MarkBatchDone(ctx context.Context, tx *gorm.DB, userID uuid.UUID, batchID uuid.UUID) (int64, error)
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(db *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{
		db:  db,
		log: baseLog.With("repo", "JobRepo"),
	}
}

func (r *jobRepo) Create(ctx context.Context, tx *gorm.DB, jobs []*types.Job) ([]*types.Job, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(jobs) == 0 {
		return []*types.Job{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Job, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.Job
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *jobRepo) ListByBatch(ctx context.Context, tx *gorm.DB, userID uuid.UUID, batchID uuid.UUID) ([]*types.Job, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Job
	if userID == uuid.Nil || batchID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND batch_id = ?", userID, batchID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Job, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Job
	if userID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *jobRepo) ClaimPending(ctx context.Context, tx *gorm.DB, limit int, staleProcessing time.Duration) ([]*types.Job, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		return nil, nil
	}
	now := time.Now()
	staleCutoff := now.Add(-staleProcessing)
	var claimed []*types.Job
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		q := txx.
			Where(`
				status = ?
				OR (
					status = ?
					AND claimed_at IS NOT NULL
					AND claimed_at < ?
				)
			`, types.JobStatusQueued, types.JobStatusProcessing, staleCutoff).
			Order("created_at ASC").
			Limit(limit)
		if txx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		var candidates []*types.Job
		if err := q.Find(&candidates).Error; err != nil {
			return err
		}
		for _, job := range candidates {
			// Conditional transition; zero rows means another sweep won.
			res := txx.Model(&types.Job{}).
				Where(`
					id = ?
					AND (
						status = ?
						OR (status = ? AND claimed_at IS NOT NULL AND claimed_at < ?)
					)
				`, job.ID, types.JobStatusQueued, types.JobStatusProcessing, staleCutoff).
				Updates(map[string]interface{}{
					"status":     types.JobStatusProcessing,
					"claimed_at": now,
					"updated_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			job.Status = types.JobStatusProcessing
			job.ClaimedAt = &now
			claimed = append(claimed, job)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRepo) MarkDone(ctx context.Context, tx *gorm.DB, id uuid.UUID, result datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	updates := map[string]interface{}{
		"status":     types.JobStatusDone,
		"last_error": nil,
		"updated_at": time.Now(),
	}
	if len(result) > 0 {
		updates["result"] = result
	}
	return transaction.WithContext(ctx).
		Model(&types.Job{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *jobRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, maxAttempts int, message string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	terminal := false
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		now := time.Now()
		res := txx.Model(&types.Job{}).
			Where("id = ? AND status = ?", id, types.JobStatusProcessing).
			Updates(map[string]interface{}{
				"attempts":      gorm.Expr("attempts + 1"),
				"last_error":    message,
				"last_error_at": now,
				"updated_at":    now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		var job types.Job
		if err := txx.Where("id = ?", id).First(&job).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		next := types.JobStatusQueued
		if job.Attempts >= maxAttempts {
			next = types.JobStatusError
			terminal = true
		}
		return txx.Model(&types.Job{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"status":     next,
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return false, err
	}
	return terminal, nil
}

func (r *jobRepo) Requeue(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Job{}).
		Where("id = ? AND status = ?", id, types.JobStatusProcessing).
		Updates(map[string]interface{}{
			"status":     types.JobStatusQueued,
			"claimed_at": nil,
			"updated_at": time.Now(),
		}).Error
}

func (r *jobRepo) MarkBatchDone(ctx context.Context, tx *gorm.DB, userID uuid.UUID, batchID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || batchID == uuid.Nil {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Model(&types.Job{}).
		Where("user_id = ? AND batch_id = ? AND status <> ?", userID, batchID, types.JobStatusDone).
		Updates(map[string]interface{}{
			"status":     types.JobStatusDone,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}
