// Package observability exposes the memory service's operational
// counters on /metrics via github.com/prometheus/client_golang,
// replacing the teacher's CloudWatch-specific pkg/observability (no AWS
// account is assumed for this deployment, per SPEC_FULL.md §3). The
// Record* method shape below mirrors the teacher's Metrics type.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-wide Prometheus collectors for the memory
// service's domain operations: extraction outcomes, plan application
// counts, request latency, and live session gauges.
type Metrics struct {
	extractions    *prometheus.CounterVec
	planCounts     *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	sessionGauge   prometheus.Gauge
	turnsCommitted prometheus.Counter
}

// NewMetrics registers every collector against reg and returns the
// Metrics handle used throughout the service. Pass
// prometheus.NewRegistry() in tests to avoid collisions with the global
// default registry across package-level test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		extractions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storyweave",
			Subsystem: "extract",
			Name:      "operations_total",
			Help:      "Extractor invocations by backend and outcome.",
		}, []string{"backend", "outcome"}),
		planCounts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storyweave",
			Subsystem: "memory",
			Name:      "plan_entries_total",
			Help:      "UpdatePlan entries applied by MemoryFacade, by kind.",
		}, []string{"kind"}),
		requestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storyweave",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP handler latency by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),
		sessionGauge: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "storyweave",
			Subsystem: "session",
			Name:      "active_sessions",
			Help:      "Number of sessions currently held by the SessionRegistry.",
		}),
		turnsCommitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "storyweave",
			Subsystem: "window",
			Name:      "turns_committed_total",
			Help:      "Turns committed through DelayedUpdateManager's processing target.",
		}),
	}
}

// RecordExtraction records one Extractor.Analyze call's backend
// ("rule"/"llm") and outcome ("ok"/"error").
func (m *Metrics) RecordExtraction(backend, outcome string) {
	m.extractions.WithLabelValues(backend, outcome).Inc()
}

// RecordPlanCounts adds MemoryFacade.Apply's per-kind counts.
func (m *Metrics) RecordPlanCounts(nodesUpserted, edgesAdded, nodesDeleted, edgesDeleted int) {
	m.planCounts.WithLabelValues("nodes_upserted").Add(float64(nodesUpserted))
	m.planCounts.WithLabelValues("edges_added").Add(float64(edgesAdded))
	m.planCounts.WithLabelValues("nodes_deleted").Add(float64(nodesDeleted))
	m.planCounts.WithLabelValues("edges_deleted").Add(float64(edgesDeleted))
}

// RecordRequest records one HTTP handler's latency.
func (m *Metrics) RecordRequest(route, status string, d time.Duration) {
	m.requestLatency.WithLabelValues(route, status).Observe(d.Seconds())
}

// SetActiveSessions sets the current live-session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.sessionGauge.Set(float64(n))
}

// RecordTurnCommitted increments the committed-turns counter.
func (m *Metrics) RecordTurnCommitted() {
	m.turnsCommitted.Inc()
}
