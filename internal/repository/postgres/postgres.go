package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/medtracker-api/internal/repository"
	"github.com/jwalitptl/medtracker-api/pkg/metrics"
)

// Store bundles the Postgres repositories over one connection pool.
type Store struct {
	base BaseRepository
}

func NewStore(db *sqlx.DB, m *metrics.Metrics) *Store {
	return &Store{base: NewBaseRepository(db, m)}
}

func (s *Store) Medications() repository.MedicationRepository { return NewMedicationRepository(s.base) }

func (s *Store) DoseLogs() repository.DoseLogRepository { return NewDoseLogRepository(s.base) }

func (s *Store) Notes() repository.NoteRepository { return NewNoteRepository(s.base) }

func (s *Store) Outbox() repository.OutboxRepository { return NewOutboxRepository(s.base) }

func (s *Store) Ping(ctx context.Context) error {
	return s.base.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.base.db.Close()
}
