package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/repos"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

type UserService interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
	ListConnections(ctx context.Context, userID uuid.UUID) ([]*types.UserConnection, error)
}

type userService struct {
	db          *gorm.DB
	log         *logger.Logger
	users       repos.UserRepo
	connections repos.UserConnectionRepo
}

func NewUserService(db *gorm.DB, baseLog *logger.Logger, users repos.UserRepo, connections repos.UserConnectionRepo) UserService {
	return &userService{
		db:          db,
		log:         baseLog.With("service", "UserService"),
		users:       users,
		connections: connections,
	}
}

func (s *userService) GetByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return user, nil
}

func (s *userService) ListConnections(ctx context.Context, userID uuid.UUID) ([]*types.UserConnection, error) {
	return s.connections.ListByUser(ctx, nil, userID)
}
