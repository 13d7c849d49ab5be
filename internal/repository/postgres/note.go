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

type noteRepository struct {
	BaseRepository
}

func NewNoteRepository(base BaseRepository) repository.NoteRepository {
	return &noteRepository{base}
}

func (r *noteRepository) Create(ctx context.Context, n *model.Note) error {
	start := time.Now()
	query := `
		INSERT INTO notes (id, medication_id, text, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, n.ID, n.MedicationID, n.Text, n.CreatedAt)
	r.observe("note_create", start, err)
	return mapError(err, "note", "create")
}

func (r *noteRepository) Get(ctx context.Context, id uuid.UUID) (*model.Note, error) {
	start := time.Now()
	var n model.Note
	err := r.db.GetContext(ctx, &n, `
		SELECT id, medication_id, text, created_at
		FROM notes
		WHERE id = $1
	`, id)
	r.observe("note_get", start, err)
	if err != nil {
		return nil, mapError(err, "note", "get")
	}
	return &n, nil
}

func (r *noteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	result, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
	r.observe("note_delete", start, err)
	if err != nil {
		return mapError(err, "note", "delete")
	}
	return expectRows(result, "note")
}

func (r *noteRepository) List(ctx context.Context, filter model.NoteFilter) ([]*model.Note, error) {
	start := time.Now()
	query, args := buildNoteQuery(filter)

	notes := make([]*model.Note, 0)
	err := r.db.SelectContext(ctx, &notes, query, args...)
	r.observe("note_list", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

func buildNoteQuery(filter model.NoteFilter) (string, []interface{}) {
	var (
		conditions []string
		args       []interface{}
	)

	if filter.MedicationID != nil {
		args = append(args, *filter.MedicationID)
		conditions = append(conditions, fmt.Sprintf("n.medication_id = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		conditions = append(conditions, fmt.Sprintf("m.name ILIKE $%d", len(args)))
	}

	query := `
		SELECT n.id, n.medication_id, n.text, n.created_at
		FROM notes n
		JOIN medications m ON m.id = n.medication_id`
	if len(conditions) > 0 {
		query += "\n\t\tWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\n\t\tORDER BY n.created_at DESC, n.id DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf("\n\t\tLIMIT $%d", len(args))
	}
	return query, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
