package model

import (
	apperrors "github.com/jwalitptl/medtracker-api/pkg/errors"
)

// DrugInfo is the reference data returned by the external drug lookup.
type DrugInfo struct {
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Warnings     []string `json:"warnings"`
	Purpose      []string `json:"purpose"`
}

// ExternalInfo is the outcome of a drug lookup. Exactly one of DrugInfo or
// Error is set; Kind classifies the failure.
type ExternalInfo struct {
	*DrugInfo
	Error string         `json:"error,omitempty"`
	Kind  apperrors.Kind `json:"-"`
}

func (i ExternalInfo) Failed() bool {
	return i.Error != ""
}
