// Package metrics exposes prometheus metrics for import runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Item outcomes used as the "outcome" label.
const (
	OutcomeCreated  = "created"
	OutcomeExisting = "existing"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

var (
	// importItems counts store products processed by outcome.
	importItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grocy_trolley_import_items_total",
		Help: "Total number of store products processed by store, source and outcome",
	}, []string{"store", "source", "outcome"})

	// importDuration tracks how long whole import runs take, prompts included.
	importDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grocy_trolley_import_duration_seconds",
		Help:    "Time taken by import runs by store and source",
		Buckets: []float64{1, 5, 10, 30, 60, 300, 900},
	}, []string{"store", "source"})

	// importRunErrors counts runs aborted by configuration errors.
	importRunErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grocy_trolley_import_run_errors_total",
		Help: "Total number of aborted import runs by store and source",
	}, []string{"store", "source"})

	// stockPostings counts stock-add calls.
	stockPostings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grocy_trolley_stock_postings_total",
		Help: "Total number of stock postings by store and result",
	}, []string{"store", "result"})

	// stockValue sums the value of posted stock in dollars.
	stockValue = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grocy_trolley_stock_value_dollars_total",
		Help: "Total value of posted stock by store",
	}, []string{"store"})

	// snapshotSize tracks the number of products in store snapshots.
	snapshotSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grocy_trolley_snapshot_products_count",
		Help:    "Number of products in store snapshots",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200},
	}, []string{"store", "source"})

	// lastRun records when a source was last imported.
	lastRun = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "grocy_trolley_import_last_run_timestamp_seconds",
		Help: "Unix time of the last completed import by store and source",
	}, []string{"store", "source"})
)

// Recorder records import metrics.
type Recorder struct{}

// NewRecorder creates a new metrics recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordItem records the outcome of one store product.
func (r *Recorder) RecordItem(store, source, outcome string) {
	importItems.WithLabelValues(store, source, outcome).Inc()
}

// RecordSnapshot records the size of a fetched snapshot.
func (r *Recorder) RecordSnapshot(store, source string, size int) {
	snapshotSize.WithLabelValues(store, source).Observe(float64(size))
}

// RecordRun records a finished run.
func (r *Recorder) RecordRun(store, source string, duration time.Duration, aborted bool) {
	importDuration.WithLabelValues(store, source).Observe(duration.Seconds())
	if aborted {
		importRunErrors.WithLabelValues(store, source).Inc()
		return
	}
	lastRun.WithLabelValues(store, source).SetToCurrentTime()
}

// RecordStock records a stock posting. value is amount * unit price.
func (r *Recorder) RecordStock(store string, value float64, success bool) {
	if !success {
		stockPostings.WithLabelValues(store, "error").Inc()
		return
	}
	stockPostings.WithLabelValues(store, "ok").Inc()
	if value > 0 {
		stockValue.WithLabelValues(store).Add(value)
	}
}
