package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/reelkeep/reelkeep-backend/api/routes"
	"github.com/reelkeep/reelkeep-backend/internal/auth"
	"github.com/reelkeep/reelkeep-backend/internal/search"
	"github.com/reelkeep/reelkeep-backend/internal/users"
	"github.com/reelkeep/reelkeep-backend/internal/watchlist"
	"github.com/reelkeep/reelkeep-backend/pkg/audit"
	"github.com/reelkeep/reelkeep-backend/pkg/config"
	"github.com/reelkeep/reelkeep-backend/pkg/db"
	"github.com/reelkeep/reelkeep-backend/pkg/identity"
	"github.com/reelkeep/reelkeep-backend/pkg/instance"
	"github.com/reelkeep/reelkeep-backend/pkg/logger"
	"github.com/reelkeep/reelkeep-backend/pkg/metrics"
	"github.com/reelkeep/reelkeep-backend/pkg/records"
	"github.com/reelkeep/reelkeep-backend/pkg/redis"
	"github.com/reelkeep/reelkeep-backend/pkg/session"
	"github.com/reelkeep/reelkeep-backend/pkg/tmdb"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionStore, err := session.NewStore(redisClient, cfg.Session)
	if err != nil {
		logg.Error(context.Background(), "failed to create session store", err)
		os.Exit(1)
	}

	identityClient, err := identity.NewClient(cfg.Identity, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create identity client", err)
		os.Exit(1)
	}

	recordsClient, err := records.NewClient(cfg.Records, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create record store client", err)
		os.Exit(1)
	}

	tmdbClient, err := tmdb.NewClient(cfg.TMDB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create metadata client", err)
		os.Exit(1)
	}

	auditSink := audit.NewLogSink(logg)

	watchlistRepo, err := watchlist.NewRepository(recordsClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create watchlist repository", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Backend:     identityClient,
		UserRepo:    users.NewRepository(dbClient.DB()),
		Sessions:    sessionStore,
		RecordWiper: watchlistRepo,
		AuditSink:   auditSink,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	watchlistService, err := watchlist.NewService(watchlist.ServiceParams{
		Repo:      watchlistRepo,
		AuditSink: auditSink,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create watchlist service", err)
		os.Exit(1)
	}

	searchService, err := search.NewService(search.ServiceParams{
		Client:    tmdbClient,
		AuditSink: auditSink,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create search service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	requestMetrics := metrics.NewRequestMetrics(registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:           cfg,
			Logger:           logg,
			DB:               dbClient,
			Cache:            redisClient,
			RateLimiter:      redisClient,
			Idempotency:      redisClient,
			Sessions:         sessionStore,
			AuthService:      authService,
			WatchlistService: watchlistService,
			SearchService:    searchService,
			Metrics:          requestMetrics,
			Registry:         registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
