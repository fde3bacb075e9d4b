// Package metrics provides Prometheus metrics for the Fern service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhooksReceivedTotal tracks inbound webhook deliveries by outcome
	WebhooksReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "webhook",
			Name:      "received_total",
			Help:      "Total number of webhook deliveries by outcome",
		},
		[]string{"status"},
	)

	// PipelineRunsTotal tracks pipeline runs by terminal status
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of call processing runs by status",
		},
		[]string{"status"},
	)

	// PipelineStageDuration tracks per-stage duration in seconds
	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)

	// PipelineStageFailures tracks stage failures
	PipelineStageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "stage_failures_total",
			Help:      "Total number of pipeline stage failures",
		},
		[]string{"stage"},
	)

	// RecordingDownloadBytes tracks downloaded recording sizes
	RecordingDownloadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "recording_download_bytes",
			Help:      "Size of downloaded call recordings in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024*64, 4, 8),
		},
	)

	// QueueJobsProcessed tracks jobs processed from the queue
	QueueJobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "queue",
			Name:      "jobs_processed_total",
			Help:      "Total number of queue jobs processed",
		},
		[]string{"status"},
	)

	// QueueDLQJobs tracks jobs moved to the dead letter queue
	QueueDLQJobs = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "queue",
			Name:      "dlq_jobs_total",
			Help:      "Total number of jobs moved to the dead letter queue",
		},
	)

	// NotificationsTotal tracks notification dispatches by channel and outcome
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "notify",
			Name:      "dispatches_total",
			Help:      "Total number of notification dispatches by channel and outcome",
		},
		[]string{"channel", "status"},
	)
)

// ObserveStage records a stage duration observation.
func ObserveStage(stage string, d time.Duration) {
	PipelineStageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordStageFailure increments the failure counter for a stage.
func RecordStageFailure(stage string) {
	PipelineStageFailures.WithLabelValues(stage).Inc()
}
