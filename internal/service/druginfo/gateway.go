// Package druginfo resolves a medication name to reference data from an
// external drug label service.
package druginfo

import (
	"context"
	"strings"

	"github.com/jwalitptl/medtracker-api/internal/model"
	apperrors "github.com/jwalitptl/medtracker-api/pkg/errors"
)

const MsgNameRequired = "drug_name is required"

// Gateway looks up drug information by name. A blank name fails with a
// precondition error; every remote failure, including an empty result, fails
// with an upstream error.
type Gateway interface {
	GetDrugInfo(ctx context.Context, name string) (*model.DrugInfo, error)
}

func normalize(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.Precondition(MsgNameRequired)
	}
	return name, nil
}
