package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

type RawEventRepo interface {
	// InsertIfAbsent persists events, silently skipping rows whose
	// (user_id, provider, source_id) already exists. Returns how many rows
	// were actually inserted; the remainder were conflicts.
	InsertIfAbsent(ctx context.Context, tx *gorm.DB, events []*types.RawEvent) (int64, error)
	LatestOccurredAt(ctx context.Context, tx *gorm.DB, userID uuid.UUID, provider string) (*time.Time, error)
	ListByBatch(ctx context.Context, tx *gorm.DB, userID uuid.UUID, batchID uuid.UUID) ([]*types.RawEvent, error)
	SetContact(ctx context.Context, tx *gorm.DB, id uuid.UUID, contactID uuid.UUID) error
	DeleteByBatch(ctx context.Context, tx *gorm.DB, userID uuid.UUID, batchID uuid.UUID) (int64, error)
	CountByBatch(ctx context.Context, tx *gorm.DB, userID uuid.UUID, batchID uuid.UUID) (int64, error)
}

type rawEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRawEventRepo(db *gorm.DB, baseLog *logger.Logger) RawEventRepo {
	return &rawEventRepo{
		db:  db,
		log: baseLog.With("repo", "RawEventRepo"),
	}
}

func (r *rawEventRepo) InsertIfAbsent(ctx context.Context, tx *gorm.DB, events []*types.RawEvent) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(events) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}, {Name: "source_id"}},
			DoNothing: true,
		}).
		Create(&events)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *rawEventRepo) LatestOccurredAt(ctx context.Context, tx *gorm.DB, userID uuid.UUID, provider string) (*time.Time, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || provider == "" {
		return nil, nil
	}
	var event types.RawEvent
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		Order("occurred_at DESC").
		Limit(1).
		Find(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == uuid.Nil {
		return nil, nil
	}
	t := event.OccurredAt
	return &t, nil
}

func (r *rawEventRepo) ListByBatch(ctx context.Context, tx *gorm.DB, userID uuid.UUID, batchID uuid.UUID) ([]*types.RawEvent, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.RawEvent
	if userID == uuid.Nil || batchID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND batch_id = ?", userID, batchID).
		Order("occurred_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *rawEventRepo) SetContact(ctx context.Context, tx *gorm.DB, id uuid.UUID, contactID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || contactID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.RawEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"contact_id": contactID,
			"updated_at": time.Now(),
		}).Error
}

func (r *rawEventRepo) DeleteByBatch(ctx context.Context, tx *gorm.DB, userID uuid.UUID, batchID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || batchID == uuid.Nil {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Where("user_id = ? AND batch_id = ?", userID, batchID).
		Delete(&types.RawEvent{})
	return res.RowsAffected, res.Error
}

func (r *rawEventRepo) CountByBatch(ctx context.Context, tx *gorm.DB, userID uuid.UUID, batchID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if userID == uuid.Nil || batchID == uuid.Nil {
		return 0, nil
	}
	err := transaction.WithContext(ctx).
		Model(&types.RawEvent{}).
		Where("user_id = ? AND batch_id = ?", userID, batchID).
		Count(&n).Error
	return n, err
}
