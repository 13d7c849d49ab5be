package druginfo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medtracker-api/internal/model"
	apperrors "github.com/jwalitptl/medtracker-api/pkg/errors"
	"github.com/jwalitptl/medtracker-api/pkg/metrics"
)

type countingGateway struct {
	calls int
	err   error
}

func (g *countingGateway) GetDrugInfo(ctx context.Context, name string) (*model.DrugInfo, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return &model.DrugInfo{Name: name, Manufacturer: "Acme", Warnings: []string{"w"}, Purpose: []string{"p"}}, nil
}

func TestCachedGateway_ServesRepeatLookupsFromCache(t *testing.T) {
	next := &countingGateway{}
	g := NewCachedGateway(next, time.Minute, metrics.NewMetrics(prometheus.NewRegistry(), "test"))

	first, err := g.GetDrugInfo(context.Background(), "Aspirin")
	require.NoError(t, err)
	second, err := g.GetDrugInfo(context.Background(), " aspirin ")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first.Manufacturer, second.Manufacturer)
}

func TestCachedGateway_DoesNotCacheFailures(t *testing.T) {
	next := &countingGateway{err: apperrors.Upstream("down", errors.New("503"))}
	g := NewCachedGateway(next, time.Minute, nil)

	for i := 0; i < 2; i++ {
		_, err := g.GetDrugInfo(context.Background(), "Aspirin")
		assert.True(t, apperrors.IsUpstream(err))
	}
	assert.Equal(t, 2, next.calls)
}

func TestCachedGateway_BlankNameNeverReachesUpstream(t *testing.T) {
	next := &countingGateway{}
	g := NewCachedGateway(next, time.Minute, nil)

	_, err := g.GetDrugInfo(context.Background(), "")
	assert.True(t, apperrors.IsPrecondition(err))
	assert.Zero(t, next.calls)
}
