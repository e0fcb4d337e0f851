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

type UserConnectionRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, conn *types.UserConnection) (*types.UserConnection, error)
	GetByUserProvider(ctx context.Context, tx *gorm.DB, userID uuid.UUID, provider string) (*types.UserConnection, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserConnection, error)
	MarkRevoked(ctx context.Context, tx *gorm.DB, userID uuid.UUID, provider string) error
}

type userConnectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserConnectionRepo(db *gorm.DB, baseLog *logger.Logger) UserConnectionRepo {
	return &userConnectionRepo{
		db:  db,
		log: baseLog.With("repo", "UserConnectionRepo"),
	}
}

func (r *userConnectionRepo) Upsert(ctx context.Context, tx *gorm.DB, conn *types.UserConnection) (*types.UserConnection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if conn == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_token", "refresh_token", "expires_at", "status", "updated_at"}),
		}).
		Create(conn).Error; err != nil {
		return nil, err
	}
	return conn, nil
}

func (r *userConnectionRepo) GetByUserProvider(ctx context.Context, tx *gorm.DB, userID uuid.UUID, provider string) (*types.UserConnection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || provider == "" {
		return nil, nil
	}
	var conn types.UserConnection
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		Limit(1).
		Find(&conn).Error
	if err != nil {
		return nil, err
	}
	if conn.ID == uuid.Nil {
		return nil, nil
	}
	return &conn, nil
}

func (r *userConnectionRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserConnection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.UserConnection
	if userID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("provider ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userConnectionRepo) MarkRevoked(ctx context.Context, tx *gorm.DB, userID uuid.UUID, provider string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || provider == "" {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.UserConnection{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Updates(map[string]interface{}{
			"status":     types.ConnectionStatusRevoked,
			"updated_at": time.Now(),
		}).Error
}
