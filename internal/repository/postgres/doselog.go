package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medtracker-api/internal/model"
	"github.com/jwalitptl/medtracker-api/internal/repository"
)

type doseLogRepository struct {
	BaseRepository
}

func NewDoseLogRepository(base BaseRepository) repository.DoseLogRepository {
	return &doseLogRepository{base}
}

func (r *doseLogRepository) Create(ctx context.Context, l *model.DoseLog) error {
	start := time.Now()
	query := `
		INSERT INTO dose_logs (id, medication_id, taken_at, was_taken)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, l.ID, l.MedicationID, l.TakenAt, l.WasTaken)
	r.observe("dose_log_create", start, err)
	return mapError(err, "dose log", "create")
}

func (r *doseLogRepository) Get(ctx context.Context, id uuid.UUID) (*model.DoseLog, error) {
	start := time.Now()
	var l model.DoseLog
	err := r.db.GetContext(ctx, &l, `
		SELECT id, medication_id, taken_at, was_taken
		FROM dose_logs
		WHERE id = $1
	`, id)
	r.observe("dose_log_get", start, err)
	if err != nil {
		return nil, mapError(err, "dose log", "get")
	}
	return &l, nil
}

func (r *doseLogRepository) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	result, err := r.db.ExecContext(ctx, `DELETE FROM dose_logs WHERE id = $1`, id)
	r.observe("dose_log_delete", start, err)
	if err != nil {
		return mapError(err, "dose log", "delete")
	}
	return expectRows(result, "dose log")
}

func (r *doseLogRepository) List(ctx context.Context, filter model.DoseLogFilter) ([]*model.DoseLog, error) {
	start := time.Now()
	query, args := buildDoseLogQuery(filter)

	logs := make([]*model.DoseLog, 0)
	err := r.db.SelectContext(ctx, &logs, query, args...)
	r.observe("dose_log_list", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list dose logs: %w", err)
	}
	return logs, nil
}

func buildDoseLogQuery(filter model.DoseLogFilter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.MedicationID != nil {
		add("medication_id = $%d", *filter.MedicationID)
	}
	if filter.From != nil {
		add("taken_at >= $%d", *filter.From)
	}
	if filter.Until != nil {
		add("taken_at < $%d", *filter.Until)
	}

	query := `SELECT id, medication_id, taken_at, was_taken FROM dose_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	return query + " ORDER BY taken_at ASC, id ASC", args
}
