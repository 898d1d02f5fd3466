package worker

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"feedwatch/internal/handler/http/respond"
	"feedwatch/internal/usecase/monitor"
)

// Job triggers.
const (
	TriggerScheduled = "scheduled"
	TriggerStartup   = "startup"
	TriggerManual    = "manual"
)

// CycleRunner runs one monitoring cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*monitor.CycleStats, error)
}

// Job wraps a CycleRunner with a timeout, metrics and logging.
// Scheduled runs never overlap each other; manual runs are not guarded and
// rely on the draft store's uniqueness for correctness.
type Job struct {
	runner  CycleRunner
	metrics *WorkerMetrics
	timeout time.Duration
	logger  *slog.Logger

	running atomic.Bool
}

func NewJob(runner CycleRunner, metrics *WorkerMetrics, timeout time.Duration, logger *slog.Logger) *Job {
	if logger == nil {
		logger = slog.Default()
	}
	return &Job{runner: runner, metrics: metrics, timeout: timeout, logger: logger}
}

// RunCycle is the manual trigger used by the admin API.
func (j *Job) RunCycle(ctx context.Context) (*monitor.CycleStats, error) {
	return j.run(ctx, TriggerManual)
}

// Scheduled returns the cron callback. Runs derive from ctx so shutdown
// cancels a cycle in flight.
func (j *Job) Scheduled(ctx context.Context) func() {
	return func() { j.guarded(ctx, TriggerScheduled) }
}

// RunStartup runs one guarded cycle right away.
func (j *Job) RunStartup(ctx context.Context) {
	j.guarded(ctx, TriggerStartup)
}

func (j *Job) guarded(ctx context.Context, trigger string) {
	if !j.running.CompareAndSwap(false, true) {
		j.metrics.RecordJobRun(trigger, JobSkipped)
		j.logger.Warn("monitoring cycle skipped, previous run still in progress",
			slog.String("trigger", trigger))
		return
	}
	defer j.running.Store(false)

	_, _ = j.run(ctx, trigger)
}

func (j *Job) run(ctx context.Context, trigger string) (*monitor.CycleStats, error) {
	start := time.Now()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	j.logger.Info("monitoring job started", slog.String("trigger", trigger))
	stats, err := j.runner.RunCycle(ctx)
	j.metrics.RecordJobDuration(trigger, time.Since(start).Seconds())

	if stats != nil {
		j.metrics.RecordSourcesProcessed(stats.Sources - stats.Failed)
	}

	switch outcome := monitor.Outcome(stats, err); {
	case err != nil:
		j.metrics.RecordJobRun(trigger, JobFailure)
		j.logger.Error("monitoring job failed",
			slog.String("trigger", trigger),
			slog.String("error", respond.SanitizeError(err)))
	case outcome != nil:
		j.metrics.RecordJobRun(trigger, JobFailure)
		j.logger.Warn("monitoring job finished with failed sources",
			slog.String("trigger", trigger),
			slog.String("error", outcome.Error()))
	default:
		j.metrics.RecordJobRun(trigger, JobSuccess)
		j.metrics.RecordLastSuccess()
		j.logger.Info("monitoring job completed",
			slog.String("trigger", trigger),
			slog.Duration("duration", time.Since(start)))
	}
	return stats, err
}
