package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the scheduling counters. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	slotsCreated      prometheus.Counter
	generationSkipped *prometheus.CounterVec
	conflicts         *prometheus.CounterVec
	occupancy         *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		slotsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fairway",
			Name:      "timeslots_created_total",
			Help:      "Time slots persisted by create, generate and duplicate.",
		}),
		generationSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fairway",
			Name:      "timeslots_generation_skipped_total",
			Help:      "Generated drafts skipped, by conflict type.",
		}, []string{"type"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fairway",
			Name:      "timeslots_conflicts_total",
			Help:      "Conflicts detected, by type.",
		}, []string{"type"}),
		occupancy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fairway",
			Name:      "timeslots_occupancy_changes_total",
			Help:      "Reserve and release attempts, by outcome.",
		}, []string{"op", "result"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fairway",
			Name:      "timeslots_operation_duration_seconds",
			Help:      "Scheduling service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.slotsCreated,
		m.generationSkipped,
		m.conflicts,
		m.occupancy,
		m.operationDuration,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) SlotsCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.slotsCreated.Add(float64(n))
}

func (m *Metrics) GenerationSkipped(conflictType string) {
	if m == nil {
		return
	}
	m.generationSkipped.WithLabelValues(conflictType).Inc()
}

func (m *Metrics) Conflict(conflictType string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(conflictType).Inc()
}

func (m *Metrics) Occupancy(op, result string) {
	if m == nil {
		return
	}
	m.occupancy.WithLabelValues(op, result).Inc()
}

// ObserveSince records the latency of op; call it with defer.
func (m *Metrics) ObserveSince(op string, start time.Time) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
