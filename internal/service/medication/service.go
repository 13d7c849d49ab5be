package medication

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medtracker-api/internal/model"
	"github.com/jwalitptl/medtracker-api/internal/repository"
	"github.com/jwalitptl/medtracker-api/internal/service/adherence"
	"github.com/jwalitptl/medtracker-api/internal/service/druginfo"
	apperrors "github.com/jwalitptl/medtracker-api/pkg/errors"
	"github.com/jwalitptl/medtracker-api/pkg/validator"
)

const (
	DefaultRecentNotes = 10
	MaxRecentNotes     = 100
)

type MedicationService interface {
	CreateMedication(ctx context.Context, m *model.Medication) error
	GetMedication(ctx context.Context, id uuid.UUID) (*model.Medication, error)
	UpdateMedication(ctx context.Context, id uuid.UUID, req *model.UpdateMedicationRequest) (before, after *model.Medication, err error)
	DeleteMedication(ctx context.Context, id uuid.UUID) (*model.Medication, error)
	ListMedications(ctx context.Context) ([]*model.Medication, error)
	ExpectedDoses(ctx context.Context, id uuid.UUID, days int) (*model.ExpectedDosesResponse, error)
	Adherence(ctx context.Context, id uuid.UUID) (*model.AdherenceSummary, error)
	PeriodAdherence(ctx context.Context, id uuid.UUID, start, end time.Time) (*model.PeriodAdherence, error)
	FetchExternalInfo(ctx context.Context, m *model.Medication) model.ExternalInfo
	RecentNotes(ctx context.Context, id uuid.UUID, limit int) ([]string, error)
}

type Service struct {
	repo          repository.MedicationRepository
	logRepo       repository.DoseLogRepository
	noteRepo      repository.NoteRepository
	gateway       druginfo.Gateway
	engine        *adherence.Engine
	validator     validator.Validator
	lookupTimeout time.Duration
	now           func() time.Time
}

func NewService(
	repo repository.MedicationRepository,
	logRepo repository.DoseLogRepository,
	noteRepo repository.NoteRepository,
	gateway druginfo.Gateway,
	engine *adherence.Engine,
	lookupTimeout time.Duration,
) *Service {
	return &Service{
		repo:          repo,
		logRepo:       logRepo,
		noteRepo:      noteRepo,
		gateway:       gateway,
		engine:        engine,
		validator:     validator.New(),
		lookupTimeout: lookupTimeout,
		now:           time.Now,
	}
}

func (s *Service) CreateMedication(ctx context.Context, m *model.Medication) error {
	m.Name = strings.TrimSpace(m.Name)
	if err := s.validator.Validate(m); err != nil {
		return apperrors.Validation(err.Error(), nil)
	}

	now := s.now()
	m.ID = uuid.New()
	m.CreatedAt = now
	m.UpdatedAt = now

	if err := s.repo.Create(ctx, m); err != nil {
		return fmt.Errorf("failed to create medication: %w", err)
	}
	return nil
}

func (s *Service) GetMedication(ctx context.Context, id uuid.UUID) (*model.Medication, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get medication: %w", err)
	}
	return m, nil
}

// UpdateMedication applies req and re-validates the result. It returns the
// stored state before and after the change.
func (s *Service) UpdateMedication(ctx context.Context, id uuid.UUID, req *model.UpdateMedicationRequest) (*model.Medication, *model.Medication, error) {
	before, err := s.GetMedication(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	after := *before
	req.Apply(&after)
	after.Name = strings.TrimSpace(after.Name)
	if err := s.validator.Validate(&after); err != nil {
		return nil, nil, apperrors.Validation(err.Error(), nil)
	}
	after.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, &after); err != nil {
		return nil, nil, fmt.Errorf("failed to update medication: %w", err)
	}
	return before, &after, nil
}

// DeleteMedication removes the medication and, through the repository, its
// dose logs and notes.
func (s *Service) DeleteMedication(ctx context.Context, id uuid.UUID) (*model.Medication, error) {
	m, err := s.GetMedication(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete medication: %w", err)
	}
	return m, nil
}

func (s *Service) ListMedications(ctx context.Context) ([]*model.Medication, error) {
	meds, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	return meds, nil
}

func (s *Service) ExpectedDoses(ctx context.Context, id uuid.UUID, days int) (*model.ExpectedDosesResponse, error) {
	m, err := s.GetMedication(ctx, id)
	if err != nil {
		return nil, err
	}

	expected, err := s.engine.ExpectedDoses(days, m.PrescribedPerDay)
	if err != nil {
		return nil, err
	}
	return &model.ExpectedDosesResponse{
		MedicationID:  m.ID.String(),
		Days:          days,
		ExpectedDoses: expected,
	}, nil
}

// Adherence scores every logged event of the medication.
func (s *Service) Adherence(ctx context.Context, id uuid.UUID) (*model.AdherenceSummary, error) {
	m, err := s.GetMedication(ctx, id)
	if err != nil {
		return nil, err
	}

	logs, err := s.logRepo.List(ctx, model.DoseLogFilter{MedicationID: &m.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list dose logs: %w", err)
	}

	summary := &model.AdherenceSummary{
		MedicationID:  m.ID.String(),
		AdherenceRate: s.engine.Rate(logs),
		TotalLogs:     len(logs),
		TakenLogs:     adherence.CountTaken(logs),
	}

	// logs are ordered by taken_at, so the last taken one is the latest dose
	for i := len(logs) - 1; i >= 0; i-- {
		if logs[i].WasTaken {
			days := s.engine.DaysSince(s.engine.DateOf(logs[i].TakenAt), s.engine.DateOf(s.now()))
			summary.DaysSinceLastDose = &days
			break
		}
	}
	return summary, nil
}

// PeriodAdherence scores taken doses in the inclusive window [start, end]
// against the doses the schedule expects for it.
func (s *Service) PeriodAdherence(ctx context.Context, id uuid.UUID, start, end time.Time) (*model.PeriodAdherence, error) {
	m, err := s.GetMedication(ctx, id)
	if err != nil {
		return nil, err
	}
	from, until := s.engine.Bounds(start, end)
	logs, err := s.logRepo.List(ctx, model.DoseLogFilter{MedicationID: &m.ID, From: &from, Until: &until})
	if err != nil {
		return nil, fmt.Errorf("failed to list dose logs: %w", err)
	}

	p, err := s.engine.PeriodStats(logs, start, end, m.PrescribedPerDay)
	if err != nil {
		return nil, err
	}
	return &model.PeriodAdherence{
		MedicationID:  m.ID.String(),
		Start:         p.Start.Format(model.DateLayout),
		End:           p.End.Format(model.DateLayout),
		ExpectedDoses: p.Expected,
		TakenDoses:    p.Taken,
		AdherenceRate: p.Rate,
	}, nil
}

// FetchExternalInfo looks the medication up by name. It never fails: any
// gateway error is returned inside the result.
func (s *Service) FetchExternalInfo(ctx context.Context, m *model.Medication) model.ExternalInfo {
	if s.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lookupTimeout)
		defer cancel()
	}

	info, err := s.gateway.GetDrugInfo(ctx, m.Name)
	if err != nil {
		msg := err.Error()
		if appErr, ok := apperrors.As(err); ok {
			msg = appErr.Message
		}
		return model.ExternalInfo{Error: msg, Kind: apperrors.KindOf(err)}
	}
	return model.ExternalInfo{DrugInfo: info}
}

// RecentNotes returns the text of the newest notes, newest first.
func (s *Service) RecentNotes(ctx context.Context, id uuid.UUID, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultRecentNotes
	}
	if limit > MaxRecentNotes {
		limit = MaxRecentNotes
	}

	m, err := s.GetMedication(ctx, id)
	if err != nil {
		return nil, err
	}

	notes, err := s.noteRepo.List(ctx, model.NoteFilter{MedicationID: &m.ID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	texts := make([]string, 0, len(notes))
	for _, n := range notes {
		texts = append(texts, n.Text)
	}
	return texts, nil
}
