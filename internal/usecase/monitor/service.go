package monitor

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/observability/logging"
	"feedwatch/internal/observability/metrics"
	"feedwatch/internal/observability/tracing"
	"feedwatch/internal/repository"
	"feedwatch/internal/utils/text"
)

// Fetcher retrieves recent items from one kind of source.
// Implementations may return items older than since; the service filters them.
type Fetcher interface {
	FetchSince(ctx context.Context, src *entity.Source, since time.Time, limit int) ([]entity.RawItem, error)
}

// Matcher returns the vocabulary terms found in a text.
type Matcher interface {
	Match(text string) []string
}

// Notifier is told about every newly staged draft. Delivery is best-effort.
type Notifier interface {
	NotifyDraft(ctx context.Context, draft *entity.Draft) error
}

// Config holds the tunables of a monitoring cycle.
type Config struct {
	// LookbackDefault bounds the first pass over a source that has no checkpoint.
	LookbackDefault time.Duration
	// CheckpointBuffer is subtracted from a stored checkpoint to catch late-indexed items.
	CheckpointBuffer time.Duration
	// FetchLimit caps the number of items requested per source pass.
	FetchLimit int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		LookbackDefault:  24 * time.Hour,
		CheckpointBuffer: 6 * time.Hour,
		FetchLimit:       50,
	}
}

// Service runs monitoring cycles over all active sources.
type Service struct {
	Sources     repository.SourceRepository
	Drafts      repository.DraftRepository
	Checkpoints CheckpointStore
	Fetchers    map[entity.SourceKind]Fetcher
	Matcher     Matcher
	Notifier    Notifier // optional
	Config      Config

	// Now is the clock used for watermarks; time.Now when nil.
	Now func() time.Time
}

// NewService creates a monitoring Service with the provided dependencies.
// notifier may be nil to disable notifications.
func NewService(
	sources repository.SourceRepository,
	drafts repository.DraftRepository,
	checkpoints CheckpointStore,
	fetchers map[entity.SourceKind]Fetcher,
	matcher Matcher,
	notifier Notifier,
	cfg Config,
) *Service {
	return &Service{
		Sources:     sources,
		Drafts:      drafts,
		Checkpoints: checkpoints,
		Fetchers:    fetchers,
		Matcher:     matcher,
		Notifier:    notifier,
		Config:      cfg,
	}
}

// CycleStats contains statistics about one monitoring cycle.
type CycleStats struct {
	Sources      int
	Failed       int // sources whose fetch failed
	Fetched      int
	Stale        int // at or before the watermark
	Empty        int // nothing left after cleaning, or unusable
	Matched      int
	Duplicates   int
	Staged       int
	NotifyErrors int
	Duration     time.Duration
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// RunCycle visits every active source once, feeds before channels.
//
// A fetch failure is isolated to its source: the checkpoint of that source is
// left untouched and the next source is processed. A storage failure stops the
// cycle and is returned wrapped in ErrPersistence along with the stats so far.
func (s *Service) RunCycle(ctx context.Context) (*CycleStats, error) {
	start := time.Now()
	stats := &CycleStats{}

	ctx = logging.WithCycleID(ctx, uuid.NewString())
	logger := logging.FromContext(ctx)

	ctx, span := tracing.StartSpan(ctx, "monitor.cycle")
	defer span.End()

	srcs, err := s.Sources.ListActive(ctx)
	if err != nil {
		err = fmt.Errorf("list active sources: %w: %w", ErrPersistence, err)
		s.finishCycle(ctx, stats, start, err)
		return stats, err
	}
	orderSources(srcs)
	stats.Sources = len(srcs)
	metrics.UpdateSourcesActive(len(srcs))

	logger.Info("monitoring cycle started", slog.Int("sources", len(srcs)))

	for _, src := range srcs {
		if err := s.runSource(ctx, src, stats); err != nil {
			s.finishCycle(ctx, stats, start, err)
			return stats, err
		}
	}

	s.finishCycle(ctx, stats, start, nil)
	return stats, nil
}

// Outcome folds a cycle result into a single error: the abort error when the
// cycle stopped, ErrSourcesFailed when any source failed, nil otherwise.
// Manual and scheduled triggers both judge a cycle with it.
func Outcome(stats *CycleStats, err error) error {
	if err != nil {
		return err
	}
	if stats != nil && stats.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrSourcesFailed, stats.Failed, stats.Sources)
	}
	return nil
}

func (s *Service) finishCycle(ctx context.Context, stats *CycleStats, start time.Time, err error) {
	stats.Duration = time.Since(start)
	logger := logging.FromContext(ctx)

	result := metrics.CycleSuccess
	switch {
	case err != nil:
		result = metrics.CycleAborted
	case stats.Failed > 0:
		result = metrics.CyclePartial
	}
	metrics.RecordCycle(result, stats.Duration)

	attrs := []any{
		slog.String("result", result),
		slog.Int("sources", stats.Sources),
		slog.Int("failed", stats.Failed),
		slog.Int("fetched", stats.Fetched),
		slog.Int("stale", stats.Stale),
		slog.Int("matched", stats.Matched),
		slog.Int("duplicates", stats.Duplicates),
		slog.Int("staged", stats.Staged),
		slog.Int("notify_errors", stats.NotifyErrors),
		slog.Duration("duration", stats.Duration),
	}
	if err != nil {
		logger.Error("monitoring cycle aborted", append(attrs, slog.Any("error", err))...)
		return
	}
	logger.Info("monitoring cycle completed", attrs...)
}

// orderSources puts feeds before channels, stable by ID within a kind.
func orderSources(srcs []*entity.Source) {
	rank := func(k entity.SourceKind) int {
		if k == entity.SourceKindFeed {
			return 0
		}
		return 1
	}
	slices.SortStableFunc(srcs, func(a, b *entity.Source) int {
		if c := cmp.Compare(rank(a.Kind), rank(b.Kind)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// orderItems sorts items oldest first using one key for the whole batch.
// A fully dated batch sorts by timestamp then id. Otherwise a batch where every
// item has an id sorts by id. Any other batch sorts its dated items among the
// slots they already occupy and leaves undated items where they were fetched.
func orderItems(items []entity.RawItem) {
	allDated, allIDs := true, true
	for _, it := range items {
		allDated = allDated && it.PublishedAt != nil
		allIDs = allIDs && it.ID > 0
	}

	switch {
	case allDated:
		slices.SortStableFunc(items, func(a, b entity.RawItem) int {
			if c := a.PublishedAt.Compare(*b.PublishedAt); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
	case allIDs:
		slices.SortStableFunc(items, func(a, b entity.RawItem) int {
			return cmp.Compare(a.ID, b.ID)
		})
	default:
		var slots []int
		var dated []entity.RawItem
		for i, it := range items {
			if it.PublishedAt != nil {
				slots = append(slots, i)
				dated = append(dated, it)
			}
		}
		slices.SortStableFunc(dated, func(a, b entity.RawItem) int {
			return a.PublishedAt.Compare(*b.PublishedAt)
		})
		for i, slot := range slots {
			items[slot] = dated[i]
		}
	}
}

// watermarkFor resolves the lower bound of a source pass.
func (s *Service) watermarkFor(ctx context.Context, src *entity.Source, now time.Time) (time.Time, error) {
	stored, err := s.Checkpoints.Watermark(ctx, src.CheckpointKey())
	if err != nil {
		return time.Time{}, err
	}
	if stored == nil {
		return now.Add(-s.Config.LookbackDefault), nil
	}
	return stored.Add(-s.Config.CheckpointBuffer), nil
}

// runSource processes one source. It returns an error only for persistence
// failures; fetch failures are recorded in stats and swallowed.
func (s *Service) runSource(ctx context.Context, src *entity.Source, stats *CycleStats) (err error) {
	passStart := time.Now()
	kind := string(src.Kind)
	logger := logging.FromContext(ctx).With(
		slog.String("source_kind", kind),
		slog.String("source_address", src.Address),
	)

	ctx, span := tracing.StartSpan(ctx, "monitor.source")
	span.SetAttributes(
		attribute.String("source.kind", kind),
		attribute.String("source.address", src.Address),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "persistence failure")
		}
		span.End()
		metrics.RecordSourcePass(kind, time.Since(passStart))
	}()

	now := s.now()
	watermark, err := s.watermarkFor(ctx, src, now)
	if err != nil {
		return fmt.Errorf("source %s: %w: %w", src.Address, ErrPersistence, err)
	}

	fetcher, ok := s.Fetchers[src.Kind]
	if !ok {
		s.recordFetchFailure(logger, span, stats, kind, fmt.Errorf("%w: %s", ErrNoFetcher, kind))
		return nil
	}

	items, fetchErr := fetcher.FetchSince(ctx, src, watermark, s.Config.FetchLimit)
	if fetchErr != nil {
		s.recordFetchFailure(logger, span, stats, kind, fetchErr)
		return nil
	}
	orderItems(items)

	var pass CycleStats
	pass.Fetched = len(items)
	defer func() { mergeStats(stats, &pass, kind) }()

	for i := range items {
		if err := s.processItem(ctx, logger, src, &items[i], watermark, &pass); err != nil {
			return fmt.Errorf("source %s: %w", src.Address, err)
		}
	}

	if err := s.Checkpoints.SetWatermark(ctx, src.CheckpointKey(), now); err != nil {
		return fmt.Errorf("source %s: %w: %w", src.Address, ErrPersistence, err)
	}

	logger.Info("source pass completed",
		slog.Int("fetched", pass.Fetched),
		slog.Int("stale", pass.Stale),
		slog.Int("matched", pass.Matched),
		slog.Int("staged", pass.Staged),
		slog.Time("watermark", watermark),
		slog.Duration("duration", time.Since(passStart)))
	return nil
}

func (s *Service) recordFetchFailure(logger *slog.Logger, span trace.Span, stats *CycleStats, kind string, err error) {
	stats.Failed++
	metrics.RecordSourceFetchError(kind)
	span.RecordError(err)
	logger.Warn("source fetch failed, checkpoint not advanced", slog.Any("error", err))
}

// processItem filters, matches and stages a single item.
// Only persistence failures are returned.
func (s *Service) processItem(
	ctx context.Context,
	logger *slog.Logger,
	src *entity.Source,
	item *entity.RawItem,
	watermark time.Time,
	pass *CycleStats,
) error {
	if item.PublishedAt != nil && !item.PublishedAt.After(watermark) {
		pass.Stale++
		return nil
	}

	cleaned, err := text.CleanForMatching(item.Content())
	if err != nil {
		pass.Empty++
		logger.Warn("skipping item that could not be cleaned",
			slog.String("url", item.URL),
			slog.Any("error", err))
		return nil
	}
	if cleaned == "" {
		pass.Empty++
		return nil
	}

	keywords := s.Matcher.Match(cleaned)
	if len(keywords) == 0 {
		return nil
	}
	pass.Matched++

	draft := &entity.Draft{
		SourceKind:  src.Kind,
		SourceName:  src.DisplayName(),
		Text:        cleaned,
		SourceURL:   item.URL,
		PublishedAt: item.PublishedAt,
		Keywords:    keywords,
		Status:      entity.DraftStatusNew,
	}
	if err := draft.Validate(); err != nil {
		pass.Empty++
		logger.Warn("skipping unusable item", slog.Any("error", err))
		return nil
	}

	seen, err := s.Drafts.Exists(ctx, src.Kind, item.URL)
	if err != nil {
		return fmt.Errorf("check draft exists: %w: %w", ErrPersistence, err)
	}
	if seen {
		pass.Duplicates++
		logger.Debug("item already staged", slog.String("url", item.URL))
		return nil
	}

	id, err := s.Drafts.Insert(ctx, draft)
	if errors.Is(err, repository.ErrDuplicate) {
		pass.Duplicates++
		logger.Debug("item staged concurrently", slog.String("url", item.URL))
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert draft: %w: %w", ErrPersistence, err)
	}
	pass.Staged++

	logger.Info("draft staged",
		slog.Int64("draft_id", id),
		slog.String("url", item.URL),
		slog.Any("keywords", keywords))

	if s.Notifier != nil {
		if err := s.Notifier.NotifyDraft(ctx, draft); err != nil {
			pass.NotifyErrors++
			logger.Warn("failed to notify about draft",
				slog.Int64("draft_id", id),
				slog.Any("error", err))
		}
	}
	return nil
}

func mergeStats(dst, pass *CycleStats, kind string) {
	dst.Fetched += pass.Fetched
	dst.Stale += pass.Stale
	dst.Empty += pass.Empty
	dst.Matched += pass.Matched
	dst.Duplicates += pass.Duplicates
	dst.Staged += pass.Staged
	dst.NotifyErrors += pass.NotifyErrors

	metrics.RecordItems(kind, metrics.OutcomeFetched, pass.Fetched)
	metrics.RecordItems(kind, metrics.OutcomeStale, pass.Stale)
	metrics.RecordItems(kind, metrics.OutcomeEmpty, pass.Empty)
	metrics.RecordItems(kind, metrics.OutcomeMatched, pass.Matched)
	metrics.RecordItems(kind, metrics.OutcomeDuplicate, pass.Duplicates)
	metrics.RecordItems(kind, metrics.OutcomeStaged, pass.Staged)
}
