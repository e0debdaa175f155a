package templates

import (
	"context"

	"github.com/2beens/liftlog/internal/datastore"
	"github.com/2beens/liftlog/internal/telemetry/metrics"

	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=templates_test

type latestWeightReader interface {
	LatestWeight(ctx context.Context, exerciseName string) (float64, bool, error)
}

type lookup struct {
	weight float64
	found  bool
}

// WeightResolver carries the last logged weight of an exercise over into
// generated sets. One resolver serves one generation run; its cache is not
// shared between runs.
type WeightResolver struct {
	reader         latestWeightReader
	metricsManager *metrics.Manager
	cache          map[string]lookup
}

func NewWeightResolver(reader latestWeightReader, metricsManager *metrics.Manager) *WeightResolver {
	return &WeightResolver{
		reader:         reader,
		metricsManager: metricsManager,
		cache:          map[string]lookup{},
	}
}

// Resolve returns the most recent logged weight of exerciseName when it is positive,
// otherwise templateWeight. Lookup failures fall back to templateWeight.
func (r *WeightResolver) Resolve(ctx context.Context, exerciseName string, templateWeight float64) float64 {
	key := datastore.FoldName(exerciseName)
	l, ok := r.cache[key]
	if !ok {
		weight, found, err := r.reader.LatestWeight(ctx, exerciseName)
		if err != nil {
			log.Warnf("resolve weight of [%s]: %s", exerciseName, err)
			r.metricsManager.EnrichmentFallback("weight")
		}
		l = lookup{weight: weight, found: found && err == nil}
		r.cache[key] = l
	}

	if l.found && l.weight > 0 {
		return l.weight
	}
	return templateWeight
}
