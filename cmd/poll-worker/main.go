package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blogwatch/backend/internal/authtokens"
	"github.com/blogwatch/backend/internal/fanout"
	"github.com/blogwatch/backend/internal/feed"
	"github.com/blogwatch/backend/internal/ingest"
	"github.com/blogwatch/backend/internal/notifications"
	"github.com/blogwatch/backend/internal/posts"
	"github.com/blogwatch/backend/internal/push"
	"github.com/blogwatch/backend/internal/scheduler"
	"github.com/blogwatch/backend/internal/settings"
	"github.com/blogwatch/backend/internal/subscriptions"
	"github.com/blogwatch/backend/pkg/config"
	"github.com/blogwatch/backend/pkg/db"
	"github.com/blogwatch/backend/pkg/logger"
	"github.com/blogwatch/backend/pkg/metrics"
	"github.com/blogwatch/backend/pkg/migrate"
	"github.com/blogwatch/backend/pkg/ratelimit"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "poll-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "poll-worker"

	logg = logger.New(logger.Options{
		ServiceName: "poll-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	settingsService, err := settings.NewService(settings.Params{
		Repo: settings.NewRepository(dbClient.DB()),
		Tx:   dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.Params{
		Repo: notifications.NewRepository(dbClient.DB()),
		Tx:   dbClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	subscriptionsService, err := subscriptions.NewService(subscriptions.Params{
		Repo: subscriptions.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}

	pushService, err := push.NewService(push.Params{
		Subscriptions: subscriptionsService,
		Settings:      settingsService,
		Transport:     push.NewWebPushTransport(cfg.Push),
		Logger:        logg,
		Metrics:       metrics.NewPushMetrics(prometheus.DefaultRegisterer),
		Config:        cfg.Push,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create push service", err)
		os.Exit(1)
	}

	fanoutService, err := fanout.NewService(fanout.Params{
		Notifications: notificationsService,
		Subscriptions: subscriptionsService,
		Settings:      settingsService,
		Push:          pushService,
		Logger:        logg,
		MessageMax:    cfg.Push.MaxMessageLen,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fanout service", err)
		os.Exit(1)
	}

	feedClient, err := feed.NewClient(feed.ClientParams{
		Config: cfg.Feed,
		Parser: feed.NewJSONParser(),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create feed client", err)
		os.Exit(1)
	}

	schedulerService, err := scheduler.NewService(scheduler.ServiceParams{
		Logger:  logg,
		Metrics: metrics.NewJobMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduler", err)
		os.Exit(1)
	}

	ingestService, err := ingest.NewService(ingest.Params{
		Source:  feedClient,
		Repo:    posts.NewRepository(dbClient.DB()),
		Tx:      dbClient,
		Limiter: ratelimit.New(cfg.Polling.RateLimitCalls, cfg.Polling.RateLimitPeriod),
		Sink:    schedulerService,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create ingest service", err)
		os.Exit(1)
	}

	authTokenStore, err := authtokens.NewStore(authtokens.Params{DB: dbClient.DB()})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth token store", err)
		os.Exit(1)
	}

	pollJob, err := scheduler.NewPollJob(scheduler.PollJobParams{
		Logger:   logg,
		Ingest:   ingestService,
		Fanout:   fanoutService,
		Interval: cfg.Polling.Interval(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create poll job", err)
		os.Exit(1)
	}

	cleanupJob, err := scheduler.NewCleanupJob(scheduler.CleanupJobParams{
		Logger:           logg,
		Notifications:    notificationsService,
		Sessions:         authTokenStore,
		AuthTokenTTLDays: cfg.Cleanup.AuthTokenTTLDays,
		Interval:         2 * cfg.Polling.Interval(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cleanup job", err)
		os.Exit(1)
	}

	schedulerService.Register(pollJob)
	schedulerService.Register(cleanupJob)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting poll worker")

	// Metrics only; the worker has no API surface.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":"+cfg.App.Port, mux); err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()

	if err := schedulerService.Start(ctx); err != nil {
		logg.Error(ctx, "failed to start scheduler", err)
		os.Exit(1)
	}

	<-ctx.Done()
	schedulerService.Stop(context.Background())
	pushService.Wait()
	logg.Info(context.Background(), "poll worker shutting down gracefully")
}
