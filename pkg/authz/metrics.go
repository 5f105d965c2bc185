package authz

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics for the decision engine.
type Metrics struct {
	DecisionsTotal   *prometheus.CounterVec
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	StoreErrorsTotal prometheus.Counter
	DecisionDuration *prometheus.HistogramVec
}

// NewMetrics creates the engine metrics and registers them when a registry
// is provided. With a nil registry the metrics still work but are not
// exported, which keeps the engine usable in tests and tools.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "brightclass_authz_decisions_total",
				Help: "Authorization decisions by kind and result",
			},
			[]string{"kind", "result"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "brightclass_authz_cache_hits_total",
				Help: "Decision cache hits",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "brightclass_authz_cache_misses_total",
				Help: "Decision cache misses",
			},
		),
		StoreErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "brightclass_authz_store_errors_total",
				Help: "Permission store failures on the decision path (each resolves to deny)",
			},
		),
		DecisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "brightclass_authz_decision_duration_seconds",
				Help:    "Authorization decision latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.DecisionsTotal,
			m.CacheHitsTotal,
			m.CacheMissesTotal,
			m.StoreErrorsTotal,
			m.DecisionDuration,
		)
	}

	return m
}

func (m *Metrics) recordDecision(kind string, allowed bool) {
	result := "deny"
	if allowed {
		result = "allow"
	}
	m.DecisionsTotal.WithLabelValues(kind, result).Inc()
}
