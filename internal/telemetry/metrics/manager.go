package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests            *prometheus.CounterVec
	CounterHandleRequestPanic  prometheus.Counter
	CounterRateLimitedRequests prometheus.Counter
	CounterClones              *prometheus.CounterVec
	CounterGeneratedWorkouts   prometheus.Counter
	CounterSkippedDays         prometheus.Counter
	CounterPersonalRecords     prometheus.Counter
	CounterEnrichmentFallbacks *prometheus.CounterVec

	// gauges
	GaugeRequests   prometheus.Gauge
	GaugeLifeSignal prometheus.Gauge

	// histograms
	HistGenerationDuration   prometheus.Histogram
	HistogramRequestDuration *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("liftlog", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("liftlog", "test_server", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterHandleRequestPanic := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handle_request_panic",
		Help:      "The total number of serve request panics",
	})
	counterRateLimitedRequests := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rate_limited_requests",
		Help:      "The total number of rate limited requests",
	})
	counterClones := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "blueprint_clones",
		Help:      "The total number of blueprint clones, by kind and outcome",
	}, []string{"kind", "outcome"})
	counterGeneratedWorkouts := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "generated_workouts",
		Help:      "The total number of workouts generated from week templates",
	})
	counterSkippedDays := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "generation_skipped_days",
		Help:      "The total number of template days skipped because the workout already existed",
	})
	counterPersonalRecords := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "personal_records",
		Help:      "The total number of detected personal records",
	})
	counterEnrichmentFallbacks := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "enrichment_fallbacks",
		Help:      "The total number of failed enrichment reads answered with a fallback value",
	}, []string{"source"})

	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_requests",
		Help:      "Current number of requests served",
	})
	gaugeLifeSignal := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "life_signal",
		Help:      "Shows whether the service is alive",
	})

	histGenerationDuration := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			Name:      "week_generation_duration_seconds",
			Help:      "Duration of a single week template generation run in seconds",
		},
	)

	histogramRequestDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Histogram of response time for requests in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"route", "method", "status_code"})

	return &Manager{
		CounterRequests:            counterRequests,
		CounterHandleRequestPanic:  counterHandleRequestPanic,
		CounterRateLimitedRequests: counterRateLimitedRequests,
		CounterClones:              counterClones,
		CounterGeneratedWorkouts:   counterGeneratedWorkouts,
		CounterSkippedDays:         counterSkippedDays,
		CounterPersonalRecords:     counterPersonalRecords,
		CounterEnrichmentFallbacks: counterEnrichmentFallbacks,
		GaugeRequests:              gaugeRequests,
		GaugeLifeSignal:            gaugeLifeSignal,
		HistGenerationDuration:     histGenerationDuration,
		HistogramRequestDuration:   histogramRequestDuration,
	}
}

// The helpers below are nil-safe so engine components can run without metrics.

func (m *Manager) EnrichmentFallback(source string) {
	if m == nil {
		return
	}
	m.CounterEnrichmentFallbacks.WithLabelValues(source).Inc()
}

func (m *Manager) PersonalRecord() {
	if m == nil {
		return
	}
	m.CounterPersonalRecords.Inc()
}

func (m *Manager) Clone(kind string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.CounterClones.WithLabelValues(kind, outcome).Inc()
}

func (m *Manager) Generation(seconds float64, generated, skipped int) {
	if m == nil {
		return
	}
	m.HistGenerationDuration.Observe(seconds)
	m.CounterGeneratedWorkouts.Add(float64(generated))
	m.CounterSkippedDays.Add(float64(skipped))
}
