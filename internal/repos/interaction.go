package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

type InteractionRepo interface {
	// CreateIgnoreDuplicates inserts interactions, skipping rows whose
	// raw_event_id is already linked. A retried normalize pass is a no-op
	// for events it has already derived.
	CreateIgnoreDuplicates(ctx context.Context, tx *gorm.DB, rows []*types.Interaction) (int64, error)
	ListByBatch(ctx context.Context, tx *gorm.DB, userID uuid.UUID, batchID uuid.UUID) ([]*types.Interaction, error)
	ListByContact(ctx context.Context, tx *gorm.DB, userID uuid.UUID, contactID uuid.UUID, limit int) ([]*types.Interaction, error)
	SetContact(ctx context.Context, tx *gorm.DB, id uuid.UUID, contactID uuid.UUID) error
	SetEmbedding(ctx context.Context, tx *gorm.DB, id uuid.UUID, embedding datatypes.JSON) error
	DeleteByBatch(ctx context.Context, tx *gorm.DB, userID uuid.UUID, batchID uuid.UUID) (int64, error)
}

type interactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInteractionRepo(db *gorm.DB, baseLog *logger.Logger) InteractionRepo {
	return &interactionRepo{
		db:  db,
		log: baseLog.With("repo", "InteractionRepo"),
	}
}

func (r *interactionRepo) CreateIgnoreDuplicates(ctx context.Context, tx *gorm.DB, rows []*types.Interaction) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "raw_event_id"}},
			DoNothing: true,
		}).
		Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *interactionRepo) ListByBatch(ctx context.Context, tx *gorm.DB, userID uuid.UUID, batchID uuid.UUID) ([]*types.Interaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Interaction
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

func (r *interactionRepo) ListByContact(ctx context.Context, tx *gorm.DB, userID uuid.UUID, contactID uuid.UUID, limit int) ([]*types.Interaction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Interaction
	if userID == uuid.Nil || contactID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(ctx).
		Where("user_id = ? AND contact_id = ?", userID, contactID).
		Order("occurred_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *interactionRepo) SetContact(ctx context.Context, tx *gorm.DB, id uuid.UUID, contactID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || contactID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Interaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"contact_id": contactID,
			"updated_at": time.Now(),
		}).Error
}

func (r *interactionRepo) SetEmbedding(ctx context.Context, tx *gorm.DB, id uuid.UUID, embedding datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.Interaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"embedding":   embedding,
			"embedded_at": now,
			"updated_at":  now,
		}).Error
}

func (r *interactionRepo) DeleteByBatch(ctx context.Context, tx *gorm.DB, userID uuid.UUID, batchID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || batchID == uuid.Nil {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Where("user_id = ? AND batch_id = ?", userID, batchID).
		Delete(&types.Interaction{})
	return res.RowsAffected, res.Error
}
