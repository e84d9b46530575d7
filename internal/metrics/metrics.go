package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Indexer metrics
var (
	IndexerFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitscat_indexer_files_total",
			Help: "Total number of files finished by the indexer, by outcome",
		},
		[]string{"outcome"},
	)

	IndexerFileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fitscat_indexer_file_duration_seconds",
			Help:    "Time to read, resolve and store a single file",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	IndexerRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fitscat_indexer_run_duration_seconds",
			Help: "Duration of the last indexer run in seconds",
		},
	)

	IndexerWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fitscat_indexer_workers",
			Help: "Worker pool width of the current or last run",
		},
	)

	IndexerRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fitscat_indexer_runs_total",
			Help: "Total number of indexer runs",
		},
	)

	IndexerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fitscat_indexer_running",
			Help: "Whether the indexer is currently running (1 = running, 0 = idle)",
		},
	)

	IndexerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fitscat_indexer_last_run_timestamp",
			Help: "Unix time at which the last indexer run finished",
		},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitscat_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fitscat_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
