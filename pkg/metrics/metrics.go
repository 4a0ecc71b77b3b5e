// Package metrics exposes the Prometheus collectors the optimizer and
// live tracking engine record against: a single lazily-initialized
// registry of promauto collectors keyed by namespace/subsystem.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the process-wide collector container.
type Metrics struct {
	// Optimizer
	SolveOperationsTotal *prometheus.CounterVec
	SolveDuration        *prometheus.HistogramVec
	RoutesCreated        *prometheus.HistogramVec
	UnassignedCases      *prometheus.HistogramVec

	// Live tracking
	LocationSamplesTotal *prometheus.CounterVec
	ActiveConnections    prometheus.Gauge
	DelayAlertsTotal     *prometheus.CounterVec
	VisitTransitions     *prometheus.CounterVec
	ETACacheHits         *prometheus.CounterVec
}

var (
	once     sync.Once
	instance *Metrics
)

// Init builds the registry once; subsequent calls return the first
// instance so repeated wiring (tests, multiple services in one process)
// never double-registers collectors with promauto's default registry.
func Init(namespace, subsystem string) *Metrics {
	once.Do(func() {
		instance = &Metrics{
			SolveOperationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Subsystem: subsystem,
					Name:      "solve_operations_total",
					Help:      "Total number of optimization solves, by strategy and outcome",
				},
				[]string{"strategy", "success"},
			),
			SolveDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Subsystem: subsystem,
					Name:      "solve_duration_seconds",
					Help:      "Wall-clock duration of a route optimization solve",
					Buckets:   []float64{.5, 1, 2, 5, 10, 30, 60, 120, 180},
				},
				[]string{"strategy"},
			),
			RoutesCreated: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Subsystem: subsystem,
					Name:      "routes_created",
					Help:      "Routes produced per optimization run",
					Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
				},
				[]string{"strategy"},
			),
			UnassignedCases: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Subsystem: subsystem,
					Name:      "unassigned_cases",
					Help:      "Cases left unassigned per optimization run",
					Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
				},
				[]string{"strategy"},
			),
			LocationSamplesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Subsystem: subsystem,
					Name:      "location_samples_total",
					Help:      "GPS samples ingested, by acceptance outcome",
				},
				[]string{"outcome"},
			),
			ActiveConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: namespace,
					Subsystem: subsystem,
					Name:      "active_connections",
					Help:      "Live tracking subscriber sessions currently open",
				},
			),
			DelayAlertsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Subsystem: subsystem,
					Name:      "delay_alerts_total",
					Help:      "Delay alerts raised, by severity",
				},
				[]string{"severity"},
			),
			VisitTransitions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Subsystem: subsystem,
					Name:      "visit_transitions_total",
					Help:      "Visit state machine transitions, by resulting status",
				},
				[]string{"status"},
			),
			ETACacheHits: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Subsystem: subsystem,
					Name:      "eta_cache_total",
					Help:      "ETA calculator cache lookups, by hit/miss",
				},
				[]string{"result"},
			),
		}
	})
	return instance
}

// Get returns the process registry, initializing it with namespace
// "dispatch" and an empty subsystem if Init was never called, so components can
// record metrics unconditionally without a nil check at every call site.
func Get() *Metrics {
	if instance == nil {
		return Init("dispatch", "")
	}
	return instance
}
