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

type ContactWithActivity struct {
	Contact      *types.Contact       `json:"contact"`
	Interactions []*types.Interaction `json:"interactions"`
}

type ContactService interface {
	List(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Contact, error)
	// Get returns the contact plus its most recent interactions.
	Get(ctx context.Context, userID uuid.UUID, contactID uuid.UUID) (*ContactWithActivity, error)
}

type contactService struct {
	db           *gorm.DB
	log          *logger.Logger
	contacts     repos.ContactRepo
	interactions repos.InteractionRepo
}

func NewContactService(db *gorm.DB, baseLog *logger.Logger, contacts repos.ContactRepo, interactions repos.InteractionRepo) ContactService {
	return &contactService{
		db:           db,
		log:          baseLog.With("service", "ContactService"),
		contacts:     contacts,
		interactions: interactions,
	}
}

func (s *contactService) List(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Contact, error) {
	return s.contacts.ListByUser(ctx, nil, userID, limit)
}

func (s *contactService) Get(ctx context.Context, userID uuid.UUID, contactID uuid.UUID) (*ContactWithActivity, error) {
	contact, err := s.contacts.GetByID(ctx, nil, userID, contactID)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, fmt.Errorf("contact %s: %w", contactID, ErrNotFound)
	}
	interactions, err := s.interactions.ListByContact(ctx, nil, userID, contactID, 50)
	if err != nil {
		return nil, err
	}
	return &ContactWithActivity{Contact: contact, Interactions: interactions}, nil
}
