package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Helpers(t *testing.T) {
	m, reg := NewTestManagerAndRegistry()

	m.EnrichmentFallback("comparison")
	m.EnrichmentFallback("comparison")
	m.PersonalRecord()
	m.Clone("week", nil)
	m.Clone("week", errors.New("boom"))
	m.Generation(0.2, 3, 1)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.CounterEnrichmentFallbacks.WithLabelValues("comparison")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterPersonalRecords))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterClones.WithLabelValues("week", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterClones.WithLabelValues("week", "failed")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.CounterGeneratedWorkouts))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterSkippedDays))

	families, err := reg.Gather()
	require.NoError(t, err)

	var hist *dto.Histogram
	for _, f := range families {
		if f.GetName() == "liftlog_test_server_week_generation_duration_seconds" {
			hist = f.GetMetric()[0].GetHistogram()
		}
	}
	require.NotNil(t, hist)
	assert.Equal(t, uint64(1), hist.GetSampleCount())
	assert.InDelta(t, 0.2, hist.GetSampleSum(), 0.0001)
}

func TestManager_NilSafe(t *testing.T) {
	var m *Manager
	assert.NotPanics(t, func() {
		m.EnrichmentFallback("x")
		m.PersonalRecord()
		m.Clone("x", nil)
		m.Generation(1, 1, 1)
	})
}

func TestManager_TwoTestManagers(t *testing.T) {
	assert.NotPanics(t, func() {
		NewTestManager()
		NewTestManager()
	})
}

func TestSetupPrometheus(t *testing.T) {
	reg := SetupPrometheus(nil)
	m := NewManager("liftlog", "service", reg)
	m.GaugeLifeSignal.Set(1)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["go_goroutines"])
	assert.True(t, names["liftlog_service_life_signal"], names)
}
