package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"feedwatch/internal/pkg/config"
)

// Job statuses recorded by RecordJobRun.
const (
	JobSuccess = "success"
	JobFailure = "failure"
	JobSkipped = "skipped" // previous run still in progress
)

// WorkerMetrics covers the scheduler jobs and the worker configuration.
//
//	feedwatch_worker_job_runs_total{trigger,status}
//	feedwatch_worker_job_duration_seconds{trigger}
//	feedwatch_worker_job_sources_processed_total
//	feedwatch_worker_job_last_success_timestamp
//	feedwatch_worker_config_*
type WorkerMetrics struct {
	*config.ConfigMetrics

	JobRunsTotal             *prometheus.CounterVec
	JobDurationSeconds       *prometheus.HistogramVec
	JobSourcesProcessedTotal prometheus.Counter
	JobLastSuccessTimestamp  prometheus.Gauge
}

// NewWorkerMetrics registers the worker metrics with reg, or with the
// default registry when reg is nil.
func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker", reg),

		JobRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedwatch",
			Subsystem: "worker",
			Name:      "job_runs_total",
			Help:      "Monitoring job runs by trigger (scheduled/manual) and status",
		}, []string{"trigger", "status"}),

		JobDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "feedwatch",
			Subsystem: "worker",
			Name:      "job_duration_seconds",
			Help:      "Duration of monitoring job runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"trigger"}),

		JobSourcesProcessedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "feedwatch",
			Subsystem: "worker",
			Name:      "job_sources_processed_total",
			Help:      "Sources visited across all job runs",
		}),

		JobLastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "feedwatch",
			Subsystem: "worker",
			Name:      "job_last_success_timestamp",
			Help:      "Unix timestamp of the last successful job run",
		}),
	}
}

func (m *WorkerMetrics) RecordJobRun(trigger, status string) {
	m.JobRunsTotal.WithLabelValues(trigger, status).Inc()
}

func (m *WorkerMetrics) RecordJobDuration(trigger string, seconds float64) {
	m.JobDurationSeconds.WithLabelValues(trigger).Observe(seconds)
}

func (m *WorkerMetrics) RecordSourcesProcessed(count int) {
	m.JobSourcesProcessedTotal.Add(float64(count))
}

func (m *WorkerMetrics) RecordLastSuccess() {
	m.JobLastSuccessTimestamp.SetToCurrentTime()
}
