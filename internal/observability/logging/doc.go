// Package logging provides structured logging utilities with context propagation.
//
// Loggers are built on log/slog. The level comes from LOG_LEVEL
// (debug, info, warn, error). Monitoring cycles carry a cycle_id and admin
// requests a request_id.
//
// Example usage:
//
//	logger := logging.NewLogger()
//	slog.SetDefault(logger)
//
//	ctx = logging.WithCycleID(ctx, uuid.NewString())
//	logging.FromContext(ctx).Info("cycle started")
package logging
