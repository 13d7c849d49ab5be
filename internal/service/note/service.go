package note

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medtracker-api/internal/model"
	"github.com/jwalitptl/medtracker-api/internal/repository"
	apperrors "github.com/jwalitptl/medtracker-api/pkg/errors"
)

// MsgUpdateNotSupported is returned for any attempt to modify a note.
const MsgUpdateNotSupported = "Updates to doctor's notes are not supported."

type NoteService interface {
	CreateNote(ctx context.Context, req *model.CreateNoteRequest) (*model.Note, error)
	GetNote(ctx context.Context, id uuid.UUID) (*model.Note, error)
	ListNotes(ctx context.Context, search string) ([]*model.Note, error)
	UpdateNote(ctx context.Context, id uuid.UUID) error
	DeleteNote(ctx context.Context, id uuid.UUID) (*model.Note, error)
}

type Service struct {
	repo repository.NoteRepository
	now  func() time.Time
}

func NewService(repo repository.NoteRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) CreateNote(ctx context.Context, req *model.CreateNoteRequest) (*model.Note, error) {
	medID, err := uuid.Parse(req.MedicationID)
	if err != nil {
		return nil, apperrors.Validation("medication must be a valid id", err)
	}

	n := &model.Note{
		ID:           uuid.New(),
		MedicationID: medID,
		Text:         req.Text,
		CreatedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return n, nil
}

func (s *Service) GetNote(ctx context.Context, id uuid.UUID) (*model.Note, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return n, nil
}

// ListNotes returns notes newest first. A non-empty search keeps notes whose
// medication name contains it, ignoring case.
func (s *Service) ListNotes(ctx context.Context, search string) ([]*model.Note, error) {
	notes, err := s.repo.List(ctx, model.NoteFilter{Search: strings.TrimSpace(search)})
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

// UpdateNote always fails: notes are immutable once written.
func (s *Service) UpdateNote(ctx context.Context, id uuid.UUID) error {
	return apperrors.MethodNotAllowed(MsgUpdateNotSupported)
}

func (s *Service) DeleteNote(ctx context.Context, id uuid.UUID) (*model.Note, error) {
	n, err := s.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete note: %w", err)
	}
	return n, nil
}
