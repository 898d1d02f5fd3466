package worker

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWorkerMetrics(reg)
	m.RecordJobRun("scheduled", JobSuccess)
	m.RecordJobDuration("scheduled", 1.5)
	m.RecordSourcesProcessed(3)
	m.RecordLastSuccess()
	m.RecordLoadTimestamp()

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"feedwatch_worker_job_runs_total",
		"feedwatch_worker_job_duration_seconds",
		"feedwatch_worker_job_sources_processed_total",
		"feedwatch_worker_job_last_success_timestamp",
		"feedwatch_worker_config_load_timestamp",
	} {
		assert.True(t, names[want], "missing %s", want)
	}
}

func TestWorkerMetrics_RecordJobRun(t *testing.T) {
	m := NewWorkerMetrics(prometheus.NewRegistry())
	m.RecordJobRun("scheduled", JobSuccess)
	m.RecordJobRun("scheduled", JobSuccess)
	m.RecordJobRun("manual", JobFailure)
	m.RecordJobRun("scheduled", JobSkipped)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.JobRunsTotal.WithLabelValues("scheduled", JobSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.JobRunsTotal.WithLabelValues("manual", JobFailure)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.JobRunsTotal.WithLabelValues("scheduled", JobSkipped)))
}

func TestWorkerMetrics_RecordJobDuration(t *testing.T) {
	m := NewWorkerMetrics(prometheus.NewRegistry())
	m.RecordJobDuration("scheduled", 2)
	m.RecordJobDuration("scheduled", 40)

	assert.Equal(t, 1, testutil.CollectAndCount(m.JobDurationSeconds))
}

func TestWorkerMetrics_RecordSourcesProcessed(t *testing.T) {
	m := NewWorkerMetrics(prometheus.NewRegistry())
	m.RecordSourcesProcessed(4)
	m.RecordSourcesProcessed(0)
	m.RecordSourcesProcessed(2)

	assert.Equal(t, float64(6), testutil.ToFloat64(m.JobSourcesProcessedTotal))
}

func TestWorkerMetrics_RecordLastSuccess(t *testing.T) {
	m := NewWorkerMetrics(prometheus.NewRegistry())
	assert.Equal(t, float64(0), testutil.ToFloat64(m.JobLastSuccessTimestamp))
	m.RecordLastSuccess()
	assert.Greater(t, testutil.ToFloat64(m.JobLastSuccessTimestamp), float64(0))
}
