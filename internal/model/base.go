package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains common fields for mutable entities
type Base struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DateLayout is the calendar-date format accepted in query strings.
const DateLayout = "2006-01-02"
