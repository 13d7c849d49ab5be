package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medtracker-api/internal/model"
)

// All repository interfaces in one file. Lookups of unknown ids return an
// error for which errors.IsNotFound is true.
type (
	MedicationRepository interface {
		Create(ctx context.Context, medication *model.Medication) error
		Get(ctx context.Context, id uuid.UUID) (*model.Medication, error)
		Update(ctx context.Context, medication *model.Medication) error
		// Delete removes the medication together with its dose logs and notes.
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Medication, error)
	}

	DoseLogRepository interface {
		// Create rejects logs whose medication does not exist with a
		// validation error.
		Create(ctx context.Context, log *model.DoseLog) error
		Get(ctx context.Context, id uuid.UUID) (*model.DoseLog, error)
		Delete(ctx context.Context, id uuid.UUID) error
		// List returns matching logs ordered by taken_at.
		List(ctx context.Context, filter model.DoseLogFilter) ([]*model.DoseLog, error)
	}

	NoteRepository interface {
		Create(ctx context.Context, note *model.Note) error
		Get(ctx context.Context, id uuid.UUID) (*model.Note, error)
		Delete(ctx context.Context, id uuid.UUID) error
		// List returns matching notes, newest first.
		List(ctx context.Context, filter model.NoteFilter) ([]*model.Note, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// GetPendingEvents returns pending events and retry events that are
		// due, oldest first.
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		// UpdateStatus records a processing outcome. Moving to retry bumps
		// the retry count; moving to processed stamps processed_at.
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// Pinger reports whether the backing store is reachable.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Store hands out the repositories of one storage backend.
	Store interface {
		Pinger
		Medications() MedicationRepository
		DoseLogs() DoseLogRepository
		Notes() NoteRepository
		Outbox() OutboxRepository
	}
)
