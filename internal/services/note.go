package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fathomcrm/fathom-backend/internal/logger"
	"github.com/fathomcrm/fathom-backend/internal/repos"
	"github.com/fathomcrm/fathom-backend/internal/types"
)

type NoteService interface {
	Create(ctx context.Context, userID uuid.UUID, contactID *uuid.UUID, body string) (*types.Note, error)
	List(ctx context.Context, userID uuid.UUID, contactID *uuid.UUID) ([]*types.Note, error)
	Update(ctx context.Context, userID uuid.UUID, noteID uuid.UUID, body string) error
	Delete(ctx context.Context, userID uuid.UUID, noteID uuid.UUID) error
}

type noteService struct {
	db    *gorm.DB
	log   *logger.Logger
	notes repos.NoteRepo
}

func NewNoteService(db *gorm.DB, baseLog *logger.Logger, notes repos.NoteRepo) NoteService {
	return &noteService{
		db:    db,
		log:   baseLog.With("service", "NoteService"),
		notes: notes,
	}
}

func (s *noteService) Create(ctx context.Context, userID uuid.UUID, contactID *uuid.UUID, body string) (*types.Note, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("empty note body: %w", ErrInvalidInput)
	}
	note := &types.Note{
		ID:        uuid.New(),
		UserID:    userID,
		ContactID: contactID,
		Body:      body,
	}
	if _, err := s.notes.Create(ctx, nil, note); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return note, nil
}

func (s *noteService) List(ctx context.Context, userID uuid.UUID, contactID *uuid.UUID) ([]*types.Note, error) {
	return s.notes.ListByUser(ctx, nil, userID, contactID)
}

func (s *noteService) Update(ctx context.Context, userID uuid.UUID, noteID uuid.UUID, body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return fmt.Errorf("empty note body: %w", ErrInvalidInput)
	}
	n, err := s.notes.UpdateBody(ctx, nil, userID, noteID, body)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("note %s: %w", noteID, ErrNotFound)
	}
	return nil
}

func (s *noteService) Delete(ctx context.Context, userID uuid.UUID, noteID uuid.UUID) error {
	n, err := s.notes.Delete(ctx, nil, userID, noteID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("note %s: %w", noteID, ErrNotFound)
	}
	return nil
}
