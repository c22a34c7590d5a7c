package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for ingest and reporting.
type Metrics struct {
	SnapshotsIngested    prometheus.Counter
	ObservationsIngested prometheus.Counter
	DuplicateRows        prometheus.Counter
	ChangesDetected      *prometheus.CounterVec
	ChangeEventsDropped  prometheus.Counter
	Disappearances       prometheus.Gauge
	CacheLookups         *prometheus.CounterVec
	CacheCircuitOpen     prometheus.Gauge
	OperationLatency     *prometheus.HistogramVec
}

// New registers the tracker metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		SnapshotsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "mipwatch_snapshots_ingested_total",
			Help: "Snapshots written to the store",
		}),
		ObservationsIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "mipwatch_observations_ingested_total",
			Help: "Observation rows written to the store",
		}),
		DuplicateRows: factory.NewCounter(prometheus.CounterOpts{
			Name: "mipwatch_duplicate_rows_total",
			Help: "Repeated (date, key) rows absorbed by last-write-wins",
		}),
		ChangesDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mipwatch_changes_detected_total",
			Help: "Keys added, removed or changed at ingest",
		}, []string{"kind"}), // kind: "added", "removed", "changed"
		ChangeEventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "mipwatch_change_events_dropped_total",
			Help: "Change event batches that could not be published",
		}),
		Disappearances: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mipwatch_disappearances",
			Help: "Keys that dropped off the list before a terminal status, as of the last report",
		}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mipwatch_report_cache_lookups_total",
			Help: "Report cache lookups by result",
		}, []string{"result"}), // result: "hit", "miss", "error"
		CacheCircuitOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mipwatch_report_cache_circuit_open",
			Help: "1 while the report cache is served from memory because Redis is failing",
		}),
		OperationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mipwatch_operation_duration_seconds",
			Help:    "Duration of tracker operations",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
	}
}

// RecordIngest counts one stored snapshot and its rows.
func (m *Metrics) RecordIngest(rows int) {
	if m != nil {
		m.SnapshotsIngested.Inc()
		m.ObservationsIngested.Add(float64(rows))
	}
}

// AddDuplicates counts absorbed duplicate rows.
func (m *Metrics) AddDuplicates(n int) {
	if m != nil && n > 0 {
		m.DuplicateRows.Add(float64(n))
	}
}

// RecordChanges counts an ingest diff by kind.
func (m *Metrics) RecordChanges(added, removed, changed int) {
	if m != nil {
		m.ChangesDetected.WithLabelValues("added").Add(float64(added))
		m.ChangesDetected.WithLabelValues("removed").Add(float64(removed))
		m.ChangesDetected.WithLabelValues("changed").Add(float64(changed))
	}
}

// IncrementEventsDropped counts a batch the change feed did not accept.
func (m *Metrics) IncrementEventsDropped() {
	if m != nil {
		m.ChangeEventsDropped.Inc()
	}
}

// SetDisappearances records the latest disappearance count.
func (m *Metrics) SetDisappearances(n int) {
	if m != nil {
		m.Disappearances.Set(float64(n))
	}
}

// RecordCacheLookup counts a cache lookup with result "hit", "miss" or "error".
func (m *Metrics) RecordCacheLookup(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

// SetCacheCircuitOpen records the report cache breaker position.
func (m *Metrics) SetCacheCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CacheCircuitOpen.Set(1)
	} else {
		m.CacheCircuitOpen.Set(0)
	}
}

// ObserveOperation records how long an operation took.
func (m *Metrics) ObserveOperation(operation string, d time.Duration) {
	if m != nil {
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}
