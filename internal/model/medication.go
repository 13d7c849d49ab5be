package model

import (
	"fmt"
	"strconv"
)

// Medication is a prescribed drug with its daily dosing schedule. It owns its
// dose logs and notes.
type Medication struct {
	Base
	Name             string  `db:"name" json:"name" validate:"required,notblank,max=255"`
	DosageMg         float64 `db:"dosage_mg" json:"dosage_mg" validate:"gte=0"`
	PrescribedPerDay int     `db:"prescribed_per_day" json:"prescribed_per_day" validate:"gte=0,max=2147483647"`
}

func (m *Medication) String() string {
	return fmt.Sprintf("%s (%smg)", m.Name, strconv.FormatFloat(m.DosageMg, 'f', -1, 64))
}

type CreateMedicationRequest struct {
	Name             *string  `json:"name" binding:"required,notblank"`
	DosageMg         *float64 `json:"dosage_mg" binding:"required,gte=0"`
	PrescribedPerDay *int     `json:"prescribed_per_day" binding:"required,gte=0,max=2147483647"`
}

// UpdateMedicationRequest is used for PATCH; PUT binds CreateMedicationRequest.
type UpdateMedicationRequest struct {
	Name             *string  `json:"name" binding:"omitempty,notblank"`
	DosageMg         *float64 `json:"dosage_mg" binding:"omitempty,gte=0"`
	PrescribedPerDay *int     `json:"prescribed_per_day" binding:"omitempty,gte=0,max=2147483647"`
}

// Apply copies the set fields onto m.
func (r *UpdateMedicationRequest) Apply(m *Medication) {
	if r.Name != nil {
		m.Name = *r.Name
	}
	if r.DosageMg != nil {
		m.DosageMg = *r.DosageMg
	}
	if r.PrescribedPerDay != nil {
		m.PrescribedPerDay = *r.PrescribedPerDay
	}
}

// ExpectedDosesResponse is the body of GET /medications/:id/expected-doses.
type ExpectedDosesResponse struct {
	MedicationID  string `json:"medication_id"`
	Days          int    `json:"days"`
	ExpectedDoses int    `json:"expected_doses"`
}

type AdherenceSummary struct {
	MedicationID      string  `json:"medication_id"`
	AdherenceRate     float64 `json:"adherence_rate"`
	TotalLogs         int     `json:"total_logs"`
	TakenLogs         int     `json:"taken_logs"`
	DaysSinceLastDose *int    `json:"days_since_last_dose,omitempty"`
}

type PeriodAdherence struct {
	MedicationID  string  `json:"medication_id"`
	Start         string  `json:"start"`
	End           string  `json:"end"`
	ExpectedDoses int     `json:"expected_doses"`
	TakenDoses    int     `json:"taken_doses"`
	AdherenceRate float64 `json:"adherence_rate"`
}
