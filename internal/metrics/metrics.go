// Package metrics exposes the pipeline's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsTotal counts processed rows by outcome, status is "accepted" or
	// "rejected".
	RowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csv_ingest_rows_total",
		Help: "Rows processed, labelled by validation outcome.",
	}, []string{"status"})

	// BatchesTotal counts completed batch runs, status is "ok" or "error".
	BatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "csv_ingest_batches_total",
		Help: "Batch runs, labelled by outcome.",
	}, []string{"status"})

	// BatchDuration observes end-to-end batch processing time.
	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "csv_ingest_batch_duration_seconds",
		Help:    "End-to-end batch processing duration.",
		Buckets: prometheus.DefBuckets,
	})
)
