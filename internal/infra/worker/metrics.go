package worker

import (
	"catchup-feed/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics provides Prometheus metrics for the ingestion worker.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// scheduler-run tracking metrics.
type WorkerMetrics struct {
	*config.ConfigMetrics

	// SchedulerRunsTotal counts scheduled scrape runs by status
	// (success/failure).
	SchedulerRunsTotal *prometheus.CounterVec

	// SchedulerRunDurationSeconds measures the duration of a full
	// scheduled run (scrape + ingest + flush; the ticker directory
	// snapshot is taken by the scheduler before the run and is not timed).
	SchedulerRunDurationSeconds prometheus.Histogram

	// ArticlesIngestedTotal counts articles successfully ingested into
	// the data sink per run.
	ArticlesIngestedTotal prometheus.Counter

	// SchedulerLastSuccessTimestamp records the Unix timestamp of the
	// last successful scheduled run.
	SchedulerLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates a new WorkerMetrics instance with all metrics
// initialized. Metrics are registered automatically via promauto.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		SchedulerRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_scheduler_runs_total",
			Help: "Total number of scheduled scrape runs by status (success/failure)",
		}, []string{"status"}),

		SchedulerRunDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_scheduler_run_duration_seconds",
			Help:    "Duration of a scheduled scrape run in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800},
		}),

		ArticlesIngestedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_articles_ingested_total",
			Help: "Total number of articles ingested across all scheduled runs",
		}),

		SchedulerLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_scheduler_last_success_timestamp",
			Help: "Unix timestamp of the last successful scheduled run",
		}),
	}
}

// MustRegister is a no-op kept for API compatibility with the metrics
// initialization pattern used across the codebase.
func (m *WorkerMetrics) MustRegister() {}

// RecordRun increments the scheduler run counter for the given status.
func (m *WorkerMetrics) RecordRun(status string) {
	m.SchedulerRunsTotal.WithLabelValues(status).Inc()
}

// RecordRunDuration observes the duration of a scheduled run in seconds.
func (m *WorkerMetrics) RecordRunDuration(seconds float64) {
	m.SchedulerRunDurationSeconds.Observe(seconds)
}

// RecordArticlesIngested adds the number of articles ingested in this run.
func (m *WorkerMetrics) RecordArticlesIngested(count int) {
	m.ArticlesIngestedTotal.Add(float64(count))
}

// RecordLastSuccess records the current time as the last successful run.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.SchedulerLastSuccessTimestamp.SetToCurrentTime()
}
