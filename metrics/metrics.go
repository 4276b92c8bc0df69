// Package metrics exposes Prometheus collectors for the HTTP layer and the category engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Category engine metrics
	CategoryMutations   *prometheus.CounterVec
	MoveDescendants     prometheus.Histogram
	SyncEvents          *prometheus.CounterVec
	ReconcileRepairs    *prometheus.CounterVec
	StoreOperationTimes *prometheus.HistogramVec
}

// New registers every collector on reg. Pass prometheus.DefaultRegisterer in production
// and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		CategoryMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "category_mutations_total",
				Help: "Total number of category mutations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		MoveDescendants: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "category_move_affected_descendants",
				Help:    "Number of descendants rewritten by a category move",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		SyncEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "category_sync_events_total",
				Help: "Total number of template sync events by transport and outcome",
			},
			[]string{"transport", "outcome"},
		),
		ReconcileRepairs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "category_reconcile_repairs_total",
				Help: "Number of categories repaired by the reconciler",
			},
			[]string{"kind"},
		),
		StoreOperationTimes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "category_store_operation_duration_seconds",
				Help:    "Duration of category service operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// The recorders below accept a nil receiver so callers can run without metrics.

func (m *Metrics) RecordMutation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.CategoryMutations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveMove(descendants int) {
	if m == nil {
		return
	}
	m.MoveDescendants.Observe(float64(descendants))
}

func (m *Metrics) RecordSyncEvents(transport, outcome string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.SyncEvents.WithLabelValues(transport, outcome).Add(float64(count))
}

func (m *Metrics) RecordRepairs(kind string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.ReconcileRepairs.WithLabelValues(kind).Add(float64(count))
}

// TrackOperation returns a function that records the duration of an operation.
func (m *Metrics) TrackOperation(operation string) func() {
	start := time.Now()
	return func() {
		if m == nil {
			return
		}
		m.StoreOperationTimes.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}
