// Package memory keeps every table in process memory. It backs tests and the
// "memory" storage driver; all repositories from one Store share a lock so
// cascading deletes are atomic.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medtracker-api/internal/model"
	"github.com/jwalitptl/medtracker-api/internal/repository"
	apperrors "github.com/jwalitptl/medtracker-api/pkg/errors"
)

type Store struct {
	mu          sync.RWMutex
	medications map[uuid.UUID]model.Medication
	doseLogs    map[uuid.UUID]model.DoseLog
	notes       map[uuid.UUID]model.Note
	outbox      map[uuid.UUID]model.OutboxEvent
	now         func() time.Time
}

func NewStore() *Store {
	return &Store{
		medications: make(map[uuid.UUID]model.Medication),
		doseLogs:    make(map[uuid.UUID]model.DoseLog),
		notes:       make(map[uuid.UUID]model.Note),
		outbox:      make(map[uuid.UUID]model.OutboxEvent),
		now:         time.Now,
	}
}

func (s *Store) Medications() repository.MedicationRepository { return &medicationRepo{s} }

func (s *Store) DoseLogs() repository.DoseLogRepository { return &doseLogRepo{s} }

func (s *Store) Notes() repository.NoteRepository { return &noteRepo{s} }

func (s *Store) Outbox() repository.OutboxRepository { return &outboxRepo{s} }

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

type medicationRepo struct{ s *Store }

func (r *medicationRepo) Create(ctx context.Context, m *model.Medication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.medications[m.ID]; exists {
		return apperrors.Validation("medication already exists", nil)
	}
	r.s.medications[m.ID] = *m
	return nil
}

func (r *medicationRepo) Get(ctx context.Context, id uuid.UUID) (*model.Medication, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.medications[id]
	if !ok {
		return nil, apperrors.NotFound("medication", nil)
	}
	return &m, nil
}

func (r *medicationRepo) Update(ctx context.Context, m *model.Medication) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.medications[m.ID]; !ok {
		return apperrors.NotFound("medication", nil)
	}
	r.s.medications[m.ID] = *m
	return nil
}

func (r *medicationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.medications[id]; !ok {
		return apperrors.NotFound("medication", nil)
	}
	delete(r.s.medications, id)

	for logID, l := range r.s.doseLogs {
		if l.MedicationID == id {
			delete(r.s.doseLogs, logID)
		}
	}
	for noteID, n := range r.s.notes {
		if n.MedicationID == id {
			delete(r.s.notes, noteID)
		}
	}
	return nil
}

func (r *medicationRepo) List(ctx context.Context) ([]*model.Medication, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*model.Medication, 0, len(r.s.medications))
	for _, m := range r.s.medications {
		m := m
		out = append(out, &m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type doseLogRepo struct{ s *Store }

func (r *doseLogRepo) Create(ctx context.Context, l *model.DoseLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.medications[l.MedicationID]; !ok {
		return apperrors.Validation("medication does not exist", nil)
	}
	r.s.doseLogs[l.ID] = *l
	return nil
}

func (r *doseLogRepo) Get(ctx context.Context, id uuid.UUID) (*model.DoseLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	l, ok := r.s.doseLogs[id]
	if !ok {
		return nil, apperrors.NotFound("dose log", nil)
	}
	return &l, nil
}

func (r *doseLogRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.doseLogs[id]; !ok {
		return apperrors.NotFound("dose log", nil)
	}
	delete(r.s.doseLogs, id)
	return nil
}

func (r *doseLogRepo) List(ctx context.Context, filter model.DoseLogFilter) ([]*model.DoseLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*model.DoseLog, 0)
	for _, l := range r.s.doseLogs {
		l := l
		if !filter.Matches(&l) {
			continue
		}
		out = append(out, &l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TakenAt.Equal(out[j].TakenAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].TakenAt.Before(out[j].TakenAt)
	})
	return out, nil
}

type noteRepo struct{ s *Store }

func (r *noteRepo) Create(ctx context.Context, n *model.Note) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.medications[n.MedicationID]; !ok {
		return apperrors.Validation("medication does not exist", nil)
	}
	r.s.notes[n.ID] = *n
	return nil
}

func (r *noteRepo) Get(ctx context.Context, id uuid.UUID) (*model.Note, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n, ok := r.s.notes[id]
	if !ok {
		return nil, apperrors.NotFound("note", nil)
	}
	return &n, nil
}

func (r *noteRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.notes[id]; !ok {
		return apperrors.NotFound("note", nil)
	}
	delete(r.s.notes, id)
	return nil
}

func (r *noteRepo) List(ctx context.Context, filter model.NoteFilter) ([]*model.Note, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(filter.Search))

	out := make([]*model.Note, 0)
	for _, n := range r.s.notes {
		n := n
		if filter.MedicationID != nil && n.MedicationID != *filter.MedicationID {
			continue
		}
		if q != "" {
			med := r.s.medications[n.MedicationID]
			if !strings.Contains(strings.ToLower(med.Name), q) {
				continue
			}
		}
		out = append(out, &n)
	}

	// newest first
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

type outboxRepo struct{ s *Store }

func (r *outboxRepo) Create(ctx context.Context, e *model.OutboxEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	e.Status = model.OutboxStatusPending
	r.s.outbox[e.ID] = *e
	return nil
}

func (r *outboxRepo) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	now := r.s.now()
	out := make([]*model.OutboxEvent, 0)
	for _, e := range r.s.outbox {
		e := e
		switch e.Status {
		case model.OutboxStatusPending:
		case model.OutboxStatusRetry:
			if e.RetryAt != nil && e.RetryAt.After(now) {
				continue
			}
		default:
			continue
		}
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *outboxRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.outbox[id]
	if !ok {
		return apperrors.NotFound("outbox event", nil)
	}

	now := r.s.now()
	e.Status = status
	e.ErrorMessage = errorMessage
	e.RetryAt = retryAt
	e.UpdatedAt = now
	switch status {
	case model.OutboxStatusRetry:
		e.RetryCount++
	case model.OutboxStatusProcessed:
		e.ProcessedAt = &now
	}
	r.s.outbox[id] = e
	return nil
}

func (r *outboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, e := range r.s.outbox {
		if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(r.s.outbox, id)
			n++
		}
	}
	return n, nil
}
