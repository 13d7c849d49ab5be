package doselog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medtracker-api/internal/model"
	"github.com/jwalitptl/medtracker-api/internal/repository"
	"github.com/jwalitptl/medtracker-api/internal/service/adherence"
	apperrors "github.com/jwalitptl/medtracker-api/pkg/errors"
)

type DoseLogService interface {
	CreateDoseLog(ctx context.Context, req *model.CreateDoseLogRequest) (*model.DoseLog, error)
	GetDoseLog(ctx context.Context, id uuid.UUID) (*model.DoseLog, error)
	ListDoseLogs(ctx context.Context, medicationID *uuid.UUID) ([]*model.DoseLog, error)
	FilterDoseLogs(ctx context.Context, start, end time.Time) ([]*model.DoseLog, error)
	DeleteDoseLog(ctx context.Context, id uuid.UUID) (*model.DoseLog, error)
}

type Service struct {
	repo   repository.DoseLogRepository
	engine *adherence.Engine
}

func NewService(repo repository.DoseLogRepository, engine *adherence.Engine) *Service {
	return &Service{
		repo:   repo,
		engine: engine,
	}
}

// CreateDoseLog records a dose. A missing was_taken counts as taken. The
// repository rejects logs for unknown medications.
func (s *Service) CreateDoseLog(ctx context.Context, req *model.CreateDoseLogRequest) (*model.DoseLog, error) {
	medID, err := uuid.Parse(req.MedicationID)
	if err != nil {
		return nil, apperrors.Validation("medication must be a valid id", err)
	}
	if req.TakenAt == nil {
		return nil, apperrors.Validation("taken_at is required", nil)
	}

	l := &model.DoseLog{
		ID:           uuid.New(),
		MedicationID: medID,
		TakenAt:      *req.TakenAt,
		WasTaken:     true,
	}
	if req.WasTaken != nil {
		l.WasTaken = *req.WasTaken
	}

	if err := s.repo.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to create dose log: %w", err)
	}
	return l, nil
}

func (s *Service) GetDoseLog(ctx context.Context, id uuid.UUID) (*model.DoseLog, error) {
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get dose log: %w", err)
	}
	return l, nil
}

// ListDoseLogs returns logs ordered by taken_at. A nil medicationID lists
// every log.
func (s *Service) ListDoseLogs(ctx context.Context, medicationID *uuid.UUID) ([]*model.DoseLog, error) {
	logs, err := s.repo.List(ctx, model.DoseLogFilter{MedicationID: medicationID})
	if err != nil {
		return nil, fmt.Errorf("failed to list dose logs: %w", err)
	}
	return logs, nil
}

// FilterDoseLogs returns the logs whose calendar date lies in [start, end].
// An inverted window matches nothing.
func (s *Service) FilterDoseLogs(ctx context.Context, start, end time.Time) ([]*model.DoseLog, error) {
	from, until := s.engine.Bounds(start, end)
	logs, err := s.repo.List(ctx, model.DoseLogFilter{From: &from, Until: &until})
	if err != nil {
		return nil, fmt.Errorf("failed to filter dose logs: %w", err)
	}
	return logs, nil
}

func (s *Service) DeleteDoseLog(ctx context.Context, id uuid.UUID) (*model.DoseLog, error) {
	l, err := s.GetDoseLog(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete dose log: %w", err)
	}
	return l, nil
}
