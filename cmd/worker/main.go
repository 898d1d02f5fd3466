package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"feedwatch/internal/config"
	"feedwatch/internal/domain/entity"
	hhttp "feedwatch/internal/handler/http"
	"feedwatch/internal/handler/http/admin"
	"feedwatch/internal/handler/http/requestid"
	"feedwatch/internal/handler/http/respond"
	"feedwatch/internal/infra/adapter/persistence/postgres"
	redisstore "feedwatch/internal/infra/adapter/persistence/redis"
	"feedwatch/internal/infra/adapter/persistence/sqlite"
	"feedwatch/internal/infra/db"
	"feedwatch/internal/infra/notifier"
	"feedwatch/internal/infra/scraper"
	workerPkg "feedwatch/internal/infra/worker"
	"feedwatch/internal/keyword"
	"feedwatch/internal/observability/logging"
	"feedwatch/internal/observability/tracing"
	pkgconfig "feedwatch/internal/pkg/config"
	"feedwatch/internal/repository"
	"feedwatch/internal/resilience/circuitbreaker"
	"feedwatch/internal/usecase/digest"
	draftUC "feedwatch/internal/usecase/draft"
	"feedwatch/internal/usecase/monitor"
	"feedwatch/internal/usecase/notify"
	sourceUC "feedwatch/internal/usecase/source"
)

// repos groups the stores for one database dialect.
type repos struct {
	sources  repository.SourceRepository
	drafts   repository.DraftRepository
	settings repository.SettingRepository
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}

	logger := logging.NewLogger()
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("worker stopped with error", slog.String("error", respond.SanitizeError(err)))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := workerPkg.NewWorkerMetrics(nil)
	cfg, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		return fmt.Errorf("load worker configuration: %w", err)
	}
	logger.Info("worker configuration loaded",
		slog.String("schedule", cfg.CronSchedule()),
		slog.String("timezone", cfg.Timezone),
		slog.Duration("lookback_default", cfg.LookbackDefault),
		slog.Duration("checkpoint_buffer", cfg.CheckpointBuffer),
		slog.Int("fetch_limit", cfg.FetchLimit),
		slog.Duration("cycle_timeout", cfg.CycleTimeout),
		slog.Int("health_port", cfg.HealthPort),
		slog.Int("metrics_port", cfg.MetricsPort))

	watchlist, err := config.LoadWatchlist(os.Getenv("WATCHLIST_FILE"))
	if err != nil {
		return err
	}
	matcher, err := keyword.New(watchlist.Keywords)
	if err != nil {
		return fmt.Errorf("build keyword matcher: %w", err)
	}
	logger.Info("keyword vocabulary loaded", slog.Int("terms", matcher.Len()))

	database, dialect, err := db.Open(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	if err := db.MigrateUp(database, dialect); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	store := newRepos(database, dialect)
	checks := []workerPkg.HealthOption{
		workerPkg.WithReadinessCheck("database", circuitbreaker.NewDBCheck(database).PingContext),
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		client, err := redisstore.NewClientFromURL(redisURL)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		settings := redisstore.NewSettingRepo(client, os.Getenv("REDIS_KEY_PREFIX"))
		store.settings = settings
		redisBreaker := circuitbreaker.DBConfig()
		redisBreaker.Name = "redis"
		check := circuitbreaker.NewPingCheck(circuitbreaker.PingFunc(settings.Ping), redisBreaker)
		checks = append(checks, workerPkg.WithReadinessCheck("redis", check.PingContext))
		logger.Info("checkpoints stored in redis")
	}

	sources := &sourceUC.Service{Repo: store.sources}
	seedSources(ctx, logger, sources, watchlist)

	notifyService, tg := newNotifyService(logger, cfg)

	httpClient := scraper.NewHTTPClient(30 * time.Second)
	monitorSvc := monitor.NewService(
		store.sources,
		store.drafts,
		monitor.NewSettingsCheckpoints(store.settings),
		map[entity.SourceKind]monitor.Fetcher{
			entity.SourceKindFeed:    scraper.NewRSSFetcher(httpClient),
			entity.SourceKindChannel: scraper.NewChannelFetcher(httpClient),
		},
		matcher,
		notifyService,
		monitor.Config{
			LookbackDefault:  cfg.LookbackDefault,
			CheckpointBuffer: cfg.CheckpointBuffer,
			FetchLimit:       cfg.FetchLimit,
		},
	)
	job := workerPkg.NewJob(monitorSvc, workerMetrics, cfg.CycleTimeout, logger)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		logger.Warn("ADMIN_TOKEN not set, admin API rejects every request")
	}
	deps := admin.Deps{
		Token:   adminToken,
		Sources: sources,
		Drafts:  &draftUC.Service{Repo: store.drafts},
		Runner:  job,
	}
	var digestSvc *digest.Service
	if tg != nil {
		digestSvc = &digest.Service{
			Drafts:   store.drafts,
			Settings: store.settings,
			Sender:   tg,
			Location: loc,
		}
		deps.Digest = digestSvc
	}
	adminRouter := admin.NewRouter(deps,
		requestid.Middleware,
		tracing.Middleware,
		hhttp.Recover(logger),
		hhttp.Logging(logger),
		hhttp.Metrics,
		hhttp.NewRateLimiter(30, time.Minute).Limit,
	)

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", cfg.HealthPort), logger,
		append(checks, workerPkg.WithMount("/api", adminRouter))...)

	scheduler := cron.New(cron.WithLocation(loc))
	if _, err := scheduler.AddFunc(cfg.CronSchedule(), job.Scheduled(ctx)); err != nil {
		return fmt.Errorf("schedule monitoring job: %w", err)
	}
	switch schedule := cfg.DigestSchedule(); {
	case schedule == "":
		logger.Info("DIGEST_TIME not set, daily digest disabled")
	case digestSvc == nil:
		logger.Warn("daily digest needs the telegram notifier, digest disabled")
	default:
		if _, err := scheduler.AddFunc(schedule, workerPkg.ScheduledDigest(ctx, digestSvc, workerMetrics, logger)); err != nil {
			return fmt.Errorf("schedule digest: %w", err)
		}
		logger.Info("daily digest scheduled", slog.String("time", cfg.DigestTime), slog.String("timezone", loc.String()))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreClosed(healthServer.Start(gctx))
	})
	g.Go(func() error {
		return ignoreClosed(serveMetrics(gctx, logger, cfg.MetricsPort, notifyService))
	})
	g.Go(func() error {
		job.RunStartup(gctx)

		scheduler.Start()
		healthServer.SetReady(true)
		logger.Info("worker started",
			slog.String("schedule", cfg.CronSchedule()),
			slog.String("timezone", loc.String()))

		<-gctx.Done()
		healthServer.SetReady(false)
		// waits for a scheduled run in flight
		<-scheduler.Stop().Done()
		return nil
	})

	err = g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if serr := notifyService.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("notifications still in flight at shutdown", slog.Any("error", serr))
	}
	return err
}

func newRepos(database *sql.DB, dialect db.Dialect) repos {
	if dialect == db.DialectSQLite {
		return repos{
			sources:  sqlite.NewSourceRepo(database),
			drafts:   sqlite.NewDraftRepo(database),
			settings: sqlite.NewSettingRepo(database),
		}
	}
	return repos{
		sources:  postgres.NewSourceRepo(database),
		drafts:   postgres.NewDraftRepo(database),
		settings: postgres.NewSettingRepo(database),
	}
}

// seedSources adds the watchlist sources. Failures are logged; the worker
// still runs with whatever sources are already stored.
func seedSources(ctx context.Context, logger *slog.Logger, svc *sourceUC.Service, wl *config.Watchlist) {
	for kind, addresses := range map[entity.SourceKind][]string{
		entity.SourceKindFeed:    wl.Feeds,
		entity.SourceKindChannel: wl.Channels,
	} {
		if len(addresses) == 0 {
			continue
		}
		n, err := svc.Seed(ctx, kind, addresses)
		if err != nil {
			logger.Error("failed to seed sources", slog.String("kind", string(kind)), slog.Any("error", err))
			continue
		}
		logger.Info("sources seeded", slog.String("kind", string(kind)), slog.Int("count", n))
	}
}

// newNotifyService builds the Telegram channel. Without a bot token or with
// a bot that fails to authenticate, notifications are disabled and the
// returned notifier is nil.
func newNotifyService(logger *slog.Logger, cfg *workerPkg.WorkerConfig) (notify.Service, *notifier.TelegramNotifier) {
	var tg *notifier.TelegramNotifier
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		admins, err := pkgconfig.ParseInt64List(os.Getenv("TELEGRAM_ADMIN_IDS"))
		if err != nil {
			logger.Warn("invalid TELEGRAM_ADMIN_IDS, notifications disabled", slog.Any("error", err))
		} else {
			n, err := notifier.NewTelegramNotifier(notifier.TelegramConfig{
				Token:       token,
				AdminIDs:    admins,
				APIEndpoint: os.Getenv("TELEGRAM_API_ENDPOINT"),
				MinInterval: cfg.NotifyInterval,
			})
			if err != nil {
				logger.Warn("telegram notifier unavailable, notifications disabled",
					slog.String("error", respond.SanitizeError(err)))
			} else {
				tg = n
			}
		}
	} else {
		logger.Info("TELEGRAM_BOT_TOKEN not set, notifications disabled")
	}

	var ch notifier.Notifier
	if tg != nil {
		ch = tg
	}
	channels := []notify.Channel{notify.NewTelegramChannel(ch)}
	svc := notify.NewService(channels, cfg.NotifyQueueSize)
	logger.Info("notification service initialized",
		slog.Bool("telegram", tg != nil),
		slog.Int("queue_size", cfg.NotifyQueueSize))
	return svc, tg
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
