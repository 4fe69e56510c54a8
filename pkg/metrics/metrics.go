// Package metrics provides Prometheus metrics for the Marigold service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsProcessed tracks jobs processed from the queue by terminal status
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marigold",
			Subsystem: "queue",
			Name:      "jobs_processed_total",
			Help:      "Total number of jobs processed from the queue",
		},
		[]string{"job_type", "status"},
	)

	// JobDuration tracks job processing duration in seconds
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "marigold",
			Subsystem: "queue",
			Name:      "job_duration_seconds",
			Help:      "Duration of job processing in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"job_type"},
	)

	// GraphAPIRequests tracks Graph API round trips by status code
	GraphAPIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marigold",
			Subsystem: "graph_api",
			Name:      "requests_total",
			Help:      "Total number of Graph API requests",
		},
		[]string{"status_code"},
	)

	// FactRowsWritten tracks daily fact rows written by syncs
	FactRowsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "marigold",
			Subsystem: "ingest",
			Name:      "fact_rows_written_total",
			Help:      "Total number of daily fact rows written",
		},
	)

	// CampaignsUpserted tracks campaign dimension rows touched by syncs
	CampaignsUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "marigold",
			Subsystem: "ingest",
			Name:      "campaigns_upserted_total",
			Help:      "Total number of campaign dimension rows upserted",
		},
	)

	// SchedulerJobsEnqueued tracks sync jobs enqueued by the scheduler
	SchedulerJobsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "marigold",
			Subsystem: "scheduler",
			Name:      "jobs_enqueued_total",
			Help:      "Total number of sync jobs enqueued by the scheduler",
		},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "marigold",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordJob records a processed job with its terminal status
func RecordJob(jobType, status string, durationSeconds float64) {
	JobsProcessed.WithLabelValues(jobType, status).Inc()
	JobDuration.WithLabelValues(jobType).Observe(durationSeconds)
}
