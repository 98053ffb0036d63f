package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/skyventures840/skybet/adapters/theoddsapi"
	"github.com/skyventures840/skybet/internal/archive"
	"github.com/skyventures840/skybet/internal/cache"
	"github.com/skyventures840/skybet/internal/config"
	"github.com/skyventures840/skybet/internal/handlers"
	"github.com/skyventures840/skybet/internal/metrics"
	"github.com/skyventures840/skybet/internal/orchestrator"
	"github.com/skyventures840/skybet/internal/registry"
	"github.com/skyventures840/skybet/internal/scheduler"
	"github.com/skyventures840/skybet/internal/service"
	"github.com/skyventures840/skybet/internal/writer"
	"github.com/skyventures840/skybet/pkg/contracts"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("SKYBET_CONFIG"))
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := newLogger(cfg.Log)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("skybet exited")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	checks := make(map[string]handlers.HealthCheck)

	// Cache: Redis when configured, in-memory otherwise
	var (
		oddsCache   contracts.Cache
		redisClient *redis.Client
	)
	if cfg.Cache.RedisURL != "" {
		opts, err := redisOptions(cfg.Cache.RedisURL)
		if err != nil {
			return err
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		rc := cache.NewRedisCache(redisClient)
		if err := rc.Ping(ctx); err != nil {
			return err
		}
		oddsCache = rc
		checks["redis"] = rc.Ping
		logger.Info().Msg("✓ Connected to Redis")
	} else {
		mc := cache.NewMemoryCache()
		go mc.RunSweeper(ctx, time.Minute)
		oddsCache = mc
		logger.Info().Msg("✓ Using in-memory cache")
	}

	// Snapshot writer: Postgres, optional
	var snapshots contracts.SnapshotWriter
	if cfg.Storage.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			return err
		}

		w := writer.NewWriter(db, redisClient, logger)
		if err := w.EnsureSchema(ctx); err != nil {
			return err
		}
		snapshots = w
		checks["postgres"] = db.PingContext
		logger.Info().Msg("✓ Connected to Postgres")
	}

	// Fetch archive: MongoDB, optional
	var fetchArchive contracts.FetchArchive
	if cfg.Storage.MongoURI != "" {
		client, collection, err := archive.Connect(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDatabase)
		if err != nil {
			return err
		}
		defer func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}()

		fetchArchive = archive.NewMongoArchive(collection)
		checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		logger.Info().Str("database", cfg.Storage.MongoDatabase).Msg("✓ Connected to MongoDB")
	}

	base := theoddsapi.NewClient(cfg.Provider.APIKey,
		theoddsapi.WithBaseURL(cfg.Provider.BaseURL),
		theoddsapi.WithTimeout(cfg.Provider.Timeout),
		theoddsapi.WithRateLimit(cfg.Provider.RequestsPerSecond, 1),
	)
	providers := func(apiKey string) contracts.OddsProvider {
		return base.WithAPIKey(apiKey)
	}
	logger.Info().Str("base_url", cfg.Provider.BaseURL).Msg("✓ Initialized The Odds API client")

	sports, err := registry.FromTable(cfg.SportBookmakers())
	if err != nil {
		return err
	}
	logger.Info().Int("sports", sports.Count()).Msg("✓ Loaded sport table")

	orch := orchestrator.New(orchestrator.Config{
		BookmakerGroups: cfg.Fetch.BookmakerGroups,
		PaceInterval:    cfg.Fetch.PaceInterval,
		DefaultMarkets:  cfg.Fetch.DefaultMarkets,
	}, logger, m)

	svc := service.New(service.Config{
		OddsTTL:         cfg.Cache.OddsTTL,
		ScoresTTL:       cfg.Cache.ScoresTTL,
		MergedTTL:       cfg.Cache.MergedTTL,
		PersistTimeout:  cfg.Storage.PersistTimeout,
		DefaultDaysFrom: cfg.Fetch.DefaultDaysFrom,
		QueryDefaults: service.QueryDefaults{
			AllMarkets:    cfg.Fetch.AllMarkets,
			DefaultRegion: cfg.Fetch.DefaultRegion,
		},
	}, service.Deps{
		Providers:    providers,
		Orchestrator: orch,
		Cache:        oddsCache,
		Archive:      fetchArchive,
		Snapshots:    snapshots,
		Registry:     sports,
		Metrics:      m,
		Logger:       logger,
	})

	// Prefetch needs a server-side key
	var sched *scheduler.Scheduler
	if len(cfg.Prefetch.Sports) > 0 && cfg.Provider.APIKey != "" {
		sched, err = scheduler.NewScheduler(svc, scheduler.Config{
			Sports:   cfg.Prefetch.Sports,
			Interval: cfg.Prefetch.Interval,
			APIKey:   cfg.Provider.APIKey,
		}, logger)
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}
	} else if len(cfg.Prefetch.Sports) > 0 {
		logger.Warn().Msg("prefetch sports configured without ODDS_API_KEY, prefetch disabled")
	}

	h := handlers.NewHandler(svc, checks, logger)
	router := handlers.NewRouter(h, handlers.RouterConfig{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		Metrics:        m.Handler(),
	}, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("✓ skybet listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("✓ Shutting down gracefully...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer shutdownCancel()

	if sched != nil {
		sched.Stop()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	if err := svc.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("pending persistence dropped")
	}

	logger.Info().Msg("✓ skybet stopped")
	return nil
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}

	return logger.Level(level).With().Timestamp().Str("service", "skybet").Logger()
}

// redisOptions accepts a redis:// URL or a bare host:port
func redisOptions(redisURL string) (*redis.Options, error) {
	if strings.Contains(redisURL, "://") {
		return redis.ParseURL(redisURL)
	}
	return &redis.Options{
		Addr:     redisURL,
		Password: os.Getenv("REDIS_PASSWORD"),
	}, nil
}
