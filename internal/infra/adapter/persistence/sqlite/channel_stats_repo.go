package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/repository"
)

type ChannelStatsRepo struct{ db *sql.DB }

func NewChannelStatsRepo(db *sql.DB) repository.ChannelStatsRepository {
	return &ChannelStatsRepo{db: db}
}

func (repo *ChannelStatsRepo) Upsert(ctx context.Context, s *entity.ChannelStats) error {
	const query = `
INSERT INTO channel_stats (source_kind, source_url, days, total_posts, matched_posts,
                           last_post_at, avg_posts_per_day, top_keywords, activity_hours, analyzed_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (source_kind, source_url) DO UPDATE SET
    days = EXCLUDED.days,
    total_posts = EXCLUDED.total_posts,
    matched_posts = EXCLUDED.matched_posts,
    last_post_at = EXCLUDED.last_post_at,
    avg_posts_per_day = EXCLUDED.avg_posts_per_day,
    top_keywords = EXCLUDED.top_keywords,
    activity_hours = EXCLUDED.activity_hours,
    analyzed_at = EXCLUDED.analyzed_at`
	top, err := json.Marshal(s.TopKeywords)
	if err != nil {
		return fmt.Errorf("Upsert: marshal top keywords: %w", err)
	}
	hours, err := json.Marshal(s.ActivityHours)
	if err != nil {
		return fmt.Errorf("Upsert: marshal activity hours: %w", err)
	}
	if _, err := repo.db.ExecContext(ctx, query,
		string(s.SourceKind), s.SourceURL, s.Days, s.TotalPosts, s.MatchedPosts,
		s.LastPostAt, s.AvgPostsPerDay, string(top), string(hours), s.AnalyzedAt,
	); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (repo *ChannelStatsRepo) Get(ctx context.Context, kind entity.SourceKind, url string) (*entity.ChannelStats, error) {
	const query = `
SELECT source_kind, source_url, days, total_posts, matched_posts,
       last_post_at, avg_posts_per_day, top_keywords, activity_hours, analyzed_at
FROM channel_stats
WHERE source_kind = ? AND source_url = ?`
	var (
		s          entity.ChannelStats
		sk         string
		last       sql.NullTime
		top, hours string
	)
	err := repo.db.QueryRowContext(ctx, query, string(kind), url).Scan(
		&sk, &s.SourceURL, &s.Days, &s.TotalPosts, &s.MatchedPosts,
		&last, &s.AvgPostsPerDay, &top, &hours, &s.AnalyzedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	s.SourceKind = entity.SourceKind(sk)
	if last.Valid {
		t := last.Time
		s.LastPostAt = &t
	}
	if err := json.Unmarshal([]byte(top), &s.TopKeywords); err != nil {
		return nil, fmt.Errorf("Get: unmarshal top keywords: %w", err)
	}
	if err := json.Unmarshal([]byte(hours), &s.ActivityHours); err != nil {
		return nil, fmt.Errorf("Get: unmarshal activity hours: %w", err)
	}
	return &s, nil
}
