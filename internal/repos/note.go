package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

type NoteRepo interface {
	Create(ctx context.Context, tx *gorm.DB, note *types.Note) (*types.Note, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, id uuid.UUID) (*types.Note, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, contactID *uuid.UUID) ([]*types.Note, error)
	UpdateBody(ctx context.Context, tx *gorm.DB, userID uuid.UUID, id uuid.UUID, body string) (int64, error)
	Delete(ctx context.Context, tx *gorm.DB, userID uuid.UUID, id uuid.UUID) (int64, error)
}

type noteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNoteRepo(db *gorm.DB, baseLog *logger.Logger) NoteRepo {
	return &noteRepo{
		db:  db,
		log: baseLog.With("repo", "NoteRepo"),
	}
}

func (r *noteRepo) Create(ctx context.Context, tx *gorm.DB, note *types.Note) (*types.Note, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if note == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(note).Error; err != nil {
		return nil, err
	}
	return note, nil
}

func (r *noteRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, id uuid.UUID) (*types.Note, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var note types.Note
	err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Limit(1).
		Find(&note).Error
	if err != nil {
		return nil, err
	}
	if note.ID == uuid.Nil {
		return nil, nil
	}
	return &note, nil
}

func (r *noteRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, contactID *uuid.UUID) ([]*types.Note, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Note
	if userID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if contactID != nil && *contactID != uuid.Nil {
		q = q.Where("contact_id = ?", *contactID)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *noteRepo) UpdateBody(ctx context.Context, tx *gorm.DB, userID uuid.UUID, id uuid.UUID, body string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || id == uuid.Nil {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Model(&types.Note{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"body":       body,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (r *noteRepo) Delete(ctx context.Context, tx *gorm.DB, userID uuid.UUID, id uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || id == uuid.Nil {
		return 0, nil
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&types.Note{})
	return res.RowsAffected, res.Error
}
