package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"feedwatch/internal/repository"
)

// CheckpointStore keeps one watermark per source.
type CheckpointStore interface {
	// Watermark returns the stored watermark, or nil when none was ever set.
	Watermark(ctx context.Context, key string) (*time.Time, error)
	// SetWatermark stores t. Moving a watermark backward is a no-op.
	SetWatermark(ctx context.Context, key string, t time.Time) error
}

// SettingsCheckpoints stores watermarks as RFC 3339 UTC strings in a settings store.
type SettingsCheckpoints struct {
	settings repository.SettingRepository
}

func NewSettingsCheckpoints(settings repository.SettingRepository) *SettingsCheckpoints {
	return &SettingsCheckpoints{settings: settings}
}

func (c *SettingsCheckpoints) Watermark(ctx context.Context, key string) (*time.Time, error) {
	raw, ok, err := c.settings.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get checkpoint %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		slog.Warn("ignoring unparseable checkpoint",
			slog.String("key", key),
			slog.String("value", raw),
			slog.Any("error", err))
		return nil, nil
	}
	t = t.UTC()
	return &t, nil
}

func (c *SettingsCheckpoints) SetWatermark(ctx context.Context, key string, t time.Time) error {
	current, err := c.Watermark(ctx, key)
	if err != nil {
		return err
	}
	if current != nil && t.Before(*current) {
		slog.Warn("refusing to move checkpoint backward",
			slog.String("key", key),
			slog.Time("current", *current),
			slog.Time("requested", t))
		return nil
	}
	if err := c.settings.Set(ctx, key, t.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("set checkpoint %s: %w", key, err)
	}
	return nil
}
