package repository

import (
	"context"

	"feedwatch/internal/domain/entity"
)

type ChannelStatsRepository interface {
	// Upsert replaces the stored statistics of (kind, url).
	Upsert(ctx context.Context, stats *entity.ChannelStats) error
	Get(ctx context.Context, kind entity.SourceKind, url string) (*entity.ChannelStats, error)
}
