package model

import (
	"time"

	"github.com/google/uuid"
)

// DoseLog records one dosing event. WasTaken is false for a recorded miss.
type DoseLog struct {
	ID           uuid.UUID `db:"id" json:"id"`
	MedicationID uuid.UUID `db:"medication_id" json:"medication"`
	TakenAt      time.Time `db:"taken_at" json:"taken_at"`
	WasTaken     bool      `db:"was_taken" json:"was_taken"`
}

type CreateDoseLogRequest struct {
	MedicationID string     `json:"medication" binding:"required,uuid"`
	TakenAt      *time.Time `json:"taken_at" binding:"required"`
	WasTaken     *bool      `json:"was_taken"`
}

// DoseLogFilter narrows a dose log listing. From is inclusive and Until is
// exclusive; a nil MedicationID matches every medication.
type DoseLogFilter struct {
	MedicationID *uuid.UUID
	From         *time.Time
	Until        *time.Time
}

// Matches reports whether l satisfies the filter.
func (f DoseLogFilter) Matches(l *DoseLog) bool {
	if f.MedicationID != nil && l.MedicationID != *f.MedicationID {
		return false
	}
	if f.From != nil && l.TakenAt.Before(*f.From) {
		return false
	}
	if f.Until != nil && !l.TakenAt.Before(*f.Until) {
		return false
	}
	return true
}
