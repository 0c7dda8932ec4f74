// Package metrics provides Prometheus metrics for the ingestion service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchRequestsTotal tracks outbound fetches by upstream host and
	// response status
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "baobab",
			Subsystem: "ingest",
			Name:      "fetch_requests_total",
			Help:      "Total number of outbound HTTP requests by host and status",
		},
		[]string{"host", "status"},
	)

	// AdapterRunsTotal tracks adapter invocations by outcome
	AdapterRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "baobab",
			Subsystem: "ingest",
			Name:      "adapter_runs_total",
			Help:      "Total number of adapter runs by status",
		},
		[]string{"adapter", "status"},
	)

	// AdapterRunDuration tracks adapter run duration in seconds
	AdapterRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "baobab",
			Subsystem: "ingest",
			Name:      "adapter_run_duration_seconds",
			Help:      "Duration of adapter runs in seconds",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"adapter"},
	)

	// RecordsProcessedTotal tracks records by merge outcome
	RecordsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "baobab",
			Subsystem: "ingest",
			Name:      "records_total",
			Help:      "Total number of processed records by merge action",
		},
		[]string{"adapter", "action"},
	)

	// RecordErrorsTotal tracks per record processing failures
	RecordErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "baobab",
			Subsystem: "ingest",
			Name:      "record_errors_total",
			Help:      "Total number of records that failed processing",
		},
		[]string{"adapter"},
	)
)
