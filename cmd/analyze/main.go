// Package main analyses how active a source is and how often it matches the vocabulary.
// Usage: feedwatch-analyze <@channel|feed-url> [--days N] [--output json] [--store]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"feedwatch/internal/config"
	"feedwatch/internal/domain/entity"
	"feedwatch/internal/infra/adapter/persistence/postgres"
	"feedwatch/internal/infra/adapter/persistence/sqlite"
	"feedwatch/internal/infra/db"
	"feedwatch/internal/infra/scraper"
	"feedwatch/internal/keyword"
	"feedwatch/internal/observability/logging"
	"feedwatch/internal/repository"
	"feedwatch/internal/usecase/monitor"
)

func main() {
	var (
		days         int
		outputFormat string
		store        bool
	)
	flag.IntVar(&days, "days", monitor.DefaultAnalyzeDays, "Number of days to analyse")
	flag.StringVar(&outputFormat, "output", "text", "Output format: text or json")
	flag.BoolVar(&store, "store", false, "Save the result to the database named by DATABASE_URL")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: a channel handle or feed URL is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: feedwatch-analyze <@channel|feed-url> [--days N] [--output json] [--store]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, "  feedwatch-analyze @durov")
		fmt.Fprintln(os.Stderr, "  feedwatch-analyze https://example.com/rss --days 30 --output json")
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to read .env: %v\n", err)
	}
	logger := logging.NewTextLogger()
	slog.SetDefault(logger)

	if days <= 0 || days > 90 {
		fmt.Fprintf(os.Stderr, "Warning: days %d out of range [1, 90], using %d\n", days, monitor.DefaultAnalyzeDays)
		days = monitor.DefaultAnalyzeDays
	}

	src := sourceFromArg(args[0])
	if err := src.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	watchlist, err := config.LoadWatchlist(os.Getenv("WATCHLIST_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	matcher, err := keyword.New(watchlist.Keywords)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid keywords: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var statsRepo repository.ChannelStatsRepository
	if store {
		database, dialect, err := db.Open(ctx, os.Getenv("DATABASE_URL"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = database.Close() }()
		if err := db.MigrateUp(database, dialect); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if dialect == db.DialectSQLite {
			statsRepo = sqlite.NewChannelStatsRepo(database)
		} else {
			statsRepo = postgres.NewChannelStatsRepo(database)
		}
	}

	client := scraper.NewHTTPClient(30 * time.Second)
	analyzer := monitor.NewAnalyzer(map[entity.SourceKind]monitor.Fetcher{
		entity.SourceKindFeed:    scraper.NewRSSFetcher(client),
		entity.SourceKindChannel: scraper.NewChannelFetcher(client),
	}, matcher, statsRepo)

	stats, err := analyzer.AnalyzeChannel(ctx, src, days)
	if err != nil && stats == nil {
		logger.Error("analysis failed", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: analysis failed: %v\n", err)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if outputFormat == "json" {
		outputJSON(stats)
		return
	}
	outputText(stats)
}

// sourceFromArg treats anything with a scheme as a feed URL.
func sourceFromArg(arg string) *entity.Source {
	kind := entity.SourceKindChannel
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		kind = entity.SourceKindFeed
		if u := strings.TrimPrefix(strings.TrimPrefix(arg, "https://"), "http://"); strings.HasPrefix(u, "t.me/") {
			kind = entity.SourceKindChannel
		}
	}
	return &entity.Source{Kind: kind, Address: arg, Active: true}
}

func outputJSON(stats *entity.ChannelStats) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stats); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to encode output: %v\n", err)
		os.Exit(1)
	}
}

func outputText(stats *entity.ChannelStats) {
	fmt.Printf("Source:          %s (%s)\n", stats.SourceURL, stats.SourceKind)
	fmt.Printf("Window:          %d days\n", stats.Days)
	fmt.Printf("Posts:           %d (%.2f per day)\n", stats.TotalPosts, stats.AvgPostsPerDay)
	fmt.Printf("Matched posts:   %d\n", stats.MatchedPosts)
	if stats.LastPostAt != nil {
		fmt.Printf("Last post:       %s\n", stats.LastPostAt.Format(time.RFC3339))
	} else {
		fmt.Println("Last post:       unknown")
	}

	if len(stats.TopKeywords) > 0 {
		fmt.Println()
		fmt.Println("Top keywords:")
		for i, kc := range stats.TopKeywords {
			fmt.Printf("  %2d. %-24s %d\n", i+1, kc.Keyword, kc.Count)
		}
	}

	peak := 0
	for _, n := range stats.ActivityHours {
		peak = max(peak, n)
	}
	if peak == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Activity by hour (UTC):")
	for hour, n := range stats.ActivityHours {
		bar := strings.Repeat("#", n*30/peak)
		fmt.Printf("  %02d:00 %4d %s\n", hour, n, bar)
	}
}
