// Package worker holds the monitoring worker's process plumbing: its
// environment configuration, health server and job metrics.
package worker

import (
	"fmt"
	"log/slog"
	"time"

	"feedwatch/internal/pkg/config"
)

// WorkerConfig controls scheduling and the monitoring pass.
// Every field has a default and a validation range; see LoadConfigFromEnv.
type WorkerConfig struct {
	// MonitorInterval is the gap between scheduled cycles (MONITOR_INTERVAL, 1m..24h).
	MonitorInterval time.Duration

	// LookbackDefault is how far back the first pass of a new source reaches
	// (LOOKBACK_DEFAULT, 1h..30d).
	LookbackDefault time.Duration

	// CheckpointBuffer is subtracted from a stored watermark to tolerate late
	// publication timestamps (CHECKPOINT_BUFFER, 0..48h).
	CheckpointBuffer time.Duration

	// FetchLimit caps the items requested per source pass (FETCH_LIMIT, 1..500).
	FetchLimit int

	// CycleTimeout bounds one full cycle (CYCLE_TIMEOUT, 1m..2h).
	CycleTimeout time.Duration

	// NotifyInterval is the minimum gap between messages to one recipient
	// (NOTIFY_INTERVAL, 1s..1h).
	NotifyInterval time.Duration

	// NotifyQueueSize is the backlog each notification channel buffers before
	// dropping drafts (NOTIFY_QUEUE_SIZE, 1..10000).
	NotifyQueueSize int

	// DigestTime is the local HH:MM at which the daily digest of unreviewed
	// drafts is sent (DIGEST_TIME). Empty disables the digest.
	DigestTime string

	// Timezone is the IANA zone the scheduler runs in (TIMEZONE).
	Timezone string

	// HealthPort serves /health, /health/ready and the admin API (HEALTH_PORT).
	HealthPort int

	// MetricsPort serves /metrics (METRICS_PORT).
	MetricsPort int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		MonitorInterval:  5 * time.Minute,
		LookbackDefault:  24 * time.Hour,
		CheckpointBuffer: 6 * time.Hour,
		FetchLimit:       50,
		CycleTimeout:     10 * time.Minute,
		NotifyInterval:   30 * time.Second,
		NotifyQueueSize:  500,
		Timezone:         "UTC",
		HealthPort:       9091,
		MetricsPort:      9090,
	}
}

// CronSchedule returns the cron expression for MonitorInterval.
func (c *WorkerConfig) CronSchedule() string {
	return "@every " + c.MonitorInterval.String()
}

// DigestSchedule returns the daily cron expression for DigestTime, or "" when
// the digest is disabled.
func (c *WorkerConfig) DigestSchedule() string {
	t, err := time.Parse("15:04", c.DigestTime)
	if c.DigestTime == "" || err != nil {
		return ""
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour())
}

// Validate checks every field and returns all failures together.
func (c *WorkerConfig) Validate() error {
	var errs []error
	check := func(field string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}

	check("monitor interval", validateMonitorInterval(c.MonitorInterval))
	check("lookback default", validateLookback(c.LookbackDefault))
	check("checkpoint buffer", validateBuffer(c.CheckpointBuffer))
	check("fetch limit", validateFetchLimit(c.FetchLimit))
	check("cycle timeout", validateCycleTimeout(c.CycleTimeout))
	check("notify interval", validateNotifyInterval(c.NotifyInterval))
	check("notify queue size", validateNotifyQueueSize(c.NotifyQueueSize))
	check("digest time", validateDigestTime(c.DigestTime))
	check("timezone", config.ValidateTimezone(c.Timezone))
	check("cron schedule", config.ValidateCronSchedule(c.CronSchedule()))
	check("health port", validatePort(c.HealthPort))
	check("metrics port", validatePort(c.MetricsPort))
	if c.HealthPort == c.MetricsPort {
		errs = append(errs, fmt.Errorf("health port and metrics port must differ"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

func validateMonitorInterval(d time.Duration) error {
	return config.ValidateDuration(d, time.Minute, 24*time.Hour)
}

func validateLookback(d time.Duration) error {
	return config.ValidateDuration(d, time.Hour, 30*24*time.Hour)
}

func validateBuffer(d time.Duration) error {
	return config.ValidateDuration(d, 0, 48*time.Hour)
}

func validateFetchLimit(v int) error { return config.ValidateIntRange(v, 1, 500) }

func validateCycleTimeout(d time.Duration) error {
	return config.ValidateDuration(d, time.Minute, 2*time.Hour)
}

func validateNotifyInterval(d time.Duration) error {
	return config.ValidateDuration(d, time.Second, time.Hour)
}

func validateNotifyQueueSize(v int) error { return config.ValidateIntRange(v, 1, 10000) }

func validateDigestTime(v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse("15:04", v); err != nil {
		return fmt.Errorf("must be HH:MM: %q", v)
	}
	return nil
}

func validatePort(v int) error { return config.ValidateIntRange(v, 1024, 65535) }

// LoadConfigFromEnv loads WorkerConfig from the environment, fail-open:
// an invalid value is replaced by its default, logged, and counted in
// metrics. The returned config is always valid and the error is always nil.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	m := metrics.ConfigMetrics
	m.ResetFallbacks()

	cfg.MonitorInterval = config.Track(m, logger, "monitor_interval",
		config.LoadEnvDuration("MONITOR_INTERVAL", cfg.MonitorInterval, validateMonitorInterval))
	cfg.LookbackDefault = config.Track(m, logger, "lookback_default",
		config.LoadEnvDuration("LOOKBACK_DEFAULT", cfg.LookbackDefault, validateLookback))
	cfg.CheckpointBuffer = config.Track(m, logger, "checkpoint_buffer",
		config.LoadEnvDuration("CHECKPOINT_BUFFER", cfg.CheckpointBuffer, validateBuffer))
	cfg.FetchLimit = config.Track(m, logger, "fetch_limit",
		config.LoadEnvInt("FETCH_LIMIT", cfg.FetchLimit, validateFetchLimit))
	cfg.CycleTimeout = config.Track(m, logger, "cycle_timeout",
		config.LoadEnvDuration("CYCLE_TIMEOUT", cfg.CycleTimeout, validateCycleTimeout))
	cfg.NotifyInterval = config.Track(m, logger, "notify_interval",
		config.LoadEnvDuration("NOTIFY_INTERVAL", cfg.NotifyInterval, validateNotifyInterval))
	cfg.NotifyQueueSize = config.Track(m, logger, "notify_queue_size",
		config.LoadEnvInt("NOTIFY_QUEUE_SIZE", cfg.NotifyQueueSize, validateNotifyQueueSize))
	cfg.DigestTime = config.Track(m, logger, "digest_time",
		config.LoadEnvWithFallback("DIGEST_TIME", cfg.DigestTime, validateDigestTime))
	cfg.Timezone = config.Track(m, logger, "timezone",
		config.LoadEnvWithFallback("TIMEZONE", cfg.Timezone, config.ValidateTimezone))
	cfg.HealthPort = config.Track(m, logger, "health_port",
		config.LoadEnvInt("HEALTH_PORT", cfg.HealthPort, validatePort))
	cfg.MetricsPort = config.Track(m, logger, "metrics_port",
		config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, validatePort))

	if cfg.HealthPort == cfg.MetricsPort {
		def := DefaultConfig()
		logger.Warn("Configuration fallback applied",
			slog.String("field", "ports"),
			slog.String("warning", "HEALTH_PORT equals METRICS_PORT, falling back to defaults"))
		m.RecordValidationError("ports")
		m.RecordFallback("ports")
		cfg.HealthPort, cfg.MetricsPort = def.HealthPort, def.MetricsPort
	}

	m.RecordLoadTimestamp()
	return &cfg, nil
}
