package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blogwatch/backend/api/routes"
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
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	postsRepo := posts.NewRepository(dbClient.DB())

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

	pushMetrics := metrics.NewPushMetrics(prometheus.DefaultRegisterer)
	pushService, err := push.NewService(push.Params{
		Subscriptions: subscriptionsService,
		Settings:      settingsService,
		Transport:     push.NewWebPushTransport(cfg.Push),
		Logger:        logg,
		Metrics:       pushMetrics,
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

	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)
	schedulerService, err := scheduler.NewService(scheduler.ServiceParams{
		Logger:  logg,
		Metrics: jobMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create scheduler", err)
		os.Exit(1)
	}

	ingestService, err := ingest.NewService(ingest.Params{
		Source:  feedClient,
		Repo:    postsRepo,
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

	if err := schedulerService.Start(ctx); err != nil {
		logg.Error(ctx, "failed to start scheduler", err)
		os.Exit(1)
	}
	defer schedulerService.Stop(context.Background())

	router := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Posts:         postsRepo,
		Settings:      settingsService,
		Notifications: notificationsService,
		Subscriptions: subscriptionsService,
		Fanout:        fanoutService,
		Scheduler:     schedulerService,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", router)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "server shutdown failed", err)
		}
		pushService.Wait()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(context.Background(), "api server shutting down gracefully")
}
