package repos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

type ContactRepo interface {
	// FindOrCreateByEmail resolves a contact by (user_id, email), creating
	// it on first sight. Email comparison is case-insensitive.
	FindOrCreateByEmail(ctx context.Context, tx *gorm.DB, userID uuid.UUID, email string, displayName string) (*types.Contact, error)
	GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, id uuid.UUID) (*types.Contact, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Contact, error)
}

type contactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContactRepo(db *gorm.DB, baseLog *logger.Logger) ContactRepo {
	return &contactRepo{
		db:  db,
		log: baseLog.With("repo", "ContactRepo"),
	}
}

func (r *contactRepo) FindOrCreateByEmail(ctx context.Context, tx *gorm.DB, userID uuid.UUID, email string, displayName string) (*types.Contact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if userID == uuid.Nil || email == "" {
		return nil, nil
	}
	now := time.Now()
	contact := types.Contact{
		ID:          uuid.New(),
		UserID:      userID,
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND email = ?", userID, email).
		FirstOrCreate(&contact).Error; err != nil {
		return nil, err
	}
	// Backfill the display name when an earlier sync only had the address.
	if contact.DisplayName == "" && displayName != "" {
		if err := transaction.WithContext(ctx).
			Model(&types.Contact{}).
			Where("id = ?", contact.ID).
			Updates(map[string]interface{}{
				"display_name": displayName,
				"updated_at":   time.Now(),
			}).Error; err != nil {
			return nil, err
		}
		contact.DisplayName = displayName
	}
	return &contact, nil
}

func (r *contactRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, id uuid.UUID) (*types.Contact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || id == uuid.Nil {
		return nil, nil
	}
	var contact types.Contact
	err := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Limit(1).
		Find(&contact).Error
	if err != nil {
		return nil, err
	}
	if contact.ID == uuid.Nil {
		return nil, nil
	}
	return &contact, nil
}

func (r *contactRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Contact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Contact
	if userID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("display_name ASC, email ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
