package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medtracker-api/internal/model"
	"github.com/jwalitptl/medtracker-api/internal/repository"
)

type medicationRepository struct {
	BaseRepository
}

func NewMedicationRepository(base BaseRepository) repository.MedicationRepository {
	return &medicationRepository{base}
}

func (r *medicationRepository) Create(ctx context.Context, m *model.Medication) error {
	start := time.Now()
	query := `
		INSERT INTO medications (
			id, name, dosage_mg, prescribed_per_day, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.Name,
		m.DosageMg,
		m.PrescribedPerDay,
		m.CreatedAt,
		m.UpdatedAt,
	)
	r.observe("medication_create", start, err)
	return mapError(err, "medication", "create")
}

func (r *medicationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Medication, error) {
	start := time.Now()
	query := `
		SELECT id, name, dosage_mg, prescribed_per_day, created_at, updated_at
		FROM medications
		WHERE id = $1
	`
	var m model.Medication
	err := r.db.GetContext(ctx, &m, query, id)
	r.observe("medication_get", start, err)
	if err != nil {
		return nil, mapError(err, "medication", "get")
	}
	return &m, nil
}

func (r *medicationRepository) Update(ctx context.Context, m *model.Medication) error {
	start := time.Now()
	query := `
		UPDATE medications
		SET name = $1, dosage_mg = $2, prescribed_per_day = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := r.db.ExecContext(ctx, query,
		m.Name,
		m.DosageMg,
		m.PrescribedPerDay,
		m.UpdatedAt,
		m.ID,
	)
	r.observe("medication_update", start, err)
	if err != nil {
		return mapError(err, "medication", "update")
	}
	return expectRows(result, "medication")
}

// Delete relies on ON DELETE CASCADE to remove dose logs and notes.
func (r *medicationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	result, err := r.db.ExecContext(ctx, `DELETE FROM medications WHERE id = $1`, id)
	r.observe("medication_delete", start, err)
	if err != nil {
		return mapError(err, "medication", "delete")
	}
	return expectRows(result, "medication")
}

func (r *medicationRepository) List(ctx context.Context) ([]*model.Medication, error) {
	start := time.Now()
	query := `
		SELECT id, name, dosage_mg, prescribed_per_day, created_at, updated_at
		FROM medications
		ORDER BY created_at ASC, id ASC
	`
	medications := make([]*model.Medication, 0)
	err := r.db.SelectContext(ctx, &medications, query)
	r.observe("medication_list", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	return medications, nil
}
