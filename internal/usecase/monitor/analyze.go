package monitor

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/repository"
	"feedwatch/internal/utils/text"
)

const (
	// DefaultAnalyzeDays is the window analysed when none is given.
	DefaultAnalyzeDays = 7
	analyzeFetchLimit  = 200
	topKeywordsLimit   = 10
)

// Analyzer reports how active a source is and how often it matches the vocabulary.
type Analyzer struct {
	Fetchers map[entity.SourceKind]Fetcher
	Matcher  Matcher
	Stats    repository.ChannelStatsRepository // optional; results are not stored when nil
	Now      func() time.Time
}

func NewAnalyzer(fetchers map[entity.SourceKind]Fetcher, matcher Matcher, stats repository.ChannelStatsRepository) *Analyzer {
	return &Analyzer{Fetchers: fetchers, Matcher: matcher, Stats: stats}
}

// AnalyzeChannel fetches up to 200 items from the last days days of src and
// summarises them. days <= 0 uses DefaultAnalyzeDays. Items without a
// timestamp count as posts but are left out of the date statistics.
func (a *Analyzer) AnalyzeChannel(ctx context.Context, src *entity.Source, days int) (*entity.ChannelStats, error) {
	if days <= 0 {
		days = DefaultAnalyzeDays
	}
	now := time.Now().UTC()
	if a.Now != nil {
		now = a.Now().UTC()
	}
	since := now.AddDate(0, 0, -days)

	fetcher, ok := a.Fetchers[src.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFetcher, src.Kind)
	}
	items, err := fetcher.FetchSince(ctx, src, since, analyzeFetchLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.Address, err)
	}

	stats := &entity.ChannelStats{
		SourceKind: src.Kind,
		SourceURL:  src.Address,
		Days:       days,
		AnalyzedAt: now,
	}
	counts := make(map[string]int)

	for _, item := range items {
		if item.PublishedAt != nil && item.PublishedAt.Before(since) {
			continue
		}
		stats.TotalPosts++

		if item.PublishedAt != nil {
			published := item.PublishedAt.UTC()
			stats.ActivityHours[published.Hour()]++
			if stats.LastPostAt == nil || published.After(*stats.LastPostAt) {
				stats.LastPostAt = &published
			}
		}

		cleaned, err := text.CleanForMatching(item.Content())
		if err != nil || cleaned == "" {
			continue
		}
		matched := a.Matcher.Match(cleaned)
		if len(matched) == 0 {
			continue
		}
		stats.MatchedPosts++
		for _, kw := range matched {
			counts[kw]++
		}
	}

	stats.AvgPostsPerDay = math.Round(float64(stats.TotalPosts)/float64(days)*100) / 100
	stats.TopKeywords = topKeywords(counts, topKeywordsLimit)

	if a.Stats != nil {
		if err := a.Stats.Upsert(ctx, stats); err != nil {
			return stats, fmt.Errorf("store channel stats: %w", err)
		}
	}

	slog.Info("channel analysed",
		slog.String("source_kind", string(src.Kind)),
		slog.String("source_address", src.Address),
		slog.Int("total_posts", stats.TotalPosts),
		slog.Int("matched_posts", stats.MatchedPosts))
	return stats, nil
}

// topKeywords orders keywords by count, then alphabetically, and keeps the first n.
func topKeywords(counts map[string]int, n int) []entity.KeywordCount {
	out := make([]entity.KeywordCount, 0, len(counts))
	for kw, c := range counts {
		out = append(out, entity.KeywordCount{Keyword: kw, Count: c})
	}
	slices.SortFunc(out, func(a, b entity.KeywordCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Keyword, b.Keyword)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
