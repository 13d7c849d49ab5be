package model

import (
	"time"

	"github.com/google/uuid"
)

// Note is a clinical annotation on a medication. Notes are never updated.
type Note struct {
	ID           uuid.UUID `db:"id" json:"id"`
	MedicationID uuid.UUID `db:"medication_id" json:"medication"`
	Text         string    `db:"text" json:"text"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type CreateNoteRequest struct {
	MedicationID string `json:"medication" binding:"required,uuid"`
	Text         string `json:"text" binding:"required"`
}

// NoteFilter narrows a note listing. Search matches the owning medication's
// name, case-insensitively.
type NoteFilter struct {
	MedicationID *uuid.UUID
	Search       string
	Limit        int
}
