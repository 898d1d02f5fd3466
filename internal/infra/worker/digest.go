package worker

import (
	"context"
	"errors"
	"log/slog"

	"feedwatch/internal/handler/http/respond"
	"feedwatch/internal/usecase/digest"
)

// TriggerDigest labels digest runs in the job metrics.
const TriggerDigest = "digest"

// DigestSender sends at most one digest per day.
type DigestSender interface {
	SendDaily(ctx context.Context) (*digest.Result, error)
}

// ScheduledDigest returns the cron callback for the daily digest. A digest
// already sent today counts as skipped.
func ScheduledDigest(ctx context.Context, svc DigestSender, metrics *WorkerMetrics, logger *slog.Logger) func() {
	if logger == nil {
		logger = slog.Default()
	}
	return func() {
		res, err := svc.SendDaily(ctx)
		switch {
		case errors.Is(err, digest.ErrAlreadySent):
			metrics.RecordJobRun(TriggerDigest, JobSkipped)
			logger.Info("digest skipped, already sent today")
		case err != nil:
			metrics.RecordJobRun(TriggerDigest, JobFailure)
			logger.Error("digest failed", slog.String("error", respond.SanitizeError(err)))
		default:
			metrics.RecordJobRun(TriggerDigest, JobSuccess)
			logger.Info("digest completed", slog.Int("drafts", res.Drafts))
		}
	}
}
