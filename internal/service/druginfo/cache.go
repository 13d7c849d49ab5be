package druginfo

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/medtracker-api/internal/model"
	apperrors "github.com/jwalitptl/medtracker-api/pkg/errors"
	"github.com/jwalitptl/medtracker-api/pkg/metrics"
)

// CachedGateway keeps successful lookups for a fixed TTL. Failures are never
// cached. The cache is not held during the upstream call, so concurrent
// misses for the same name may both go upstream.
type CachedGateway struct {
	next    Gateway
	cache   *cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
}

func NewCachedGateway(next Gateway, ttl time.Duration, m *metrics.Metrics) *CachedGateway {
	return &CachedGateway{
		next:    next,
		cache:   cache.New(ttl, 2*ttl),
		ttl:     ttl,
		metrics: m,
	}
}

// TTL is how long a successful lookup is served from memory.
func (g *CachedGateway) TTL() time.Duration {
	return g.ttl
}

func (g *CachedGateway) GetDrugInfo(ctx context.Context, name string) (*model.DrugInfo, error) {
	name, err := normalize(name)
	if err != nil {
		g.record(err)
		return nil, err
	}
	key := strings.ToLower(name)

	if v, ok := g.cache.Get(key); ok {
		if g.metrics != nil {
			g.metrics.DrugInfoCacheHits.Inc()
		}
		g.record(nil)
		info := *v.(*model.DrugInfo)
		return &info, nil
	}
	if g.metrics != nil {
		g.metrics.DrugInfoCacheMisses.Inc()
	}

	info, err := g.next.GetDrugInfo(ctx, name)
	g.record(err)
	if err != nil {
		return nil, err
	}

	stored := *info
	g.cache.SetDefault(key, &stored)
	return info, nil
}

func (g *CachedGateway) record(err error) {
	if g.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = apperrors.KindOf(err).String()
	}
	g.metrics.DrugInfoLookups.WithLabelValues(outcome).Inc()
}
