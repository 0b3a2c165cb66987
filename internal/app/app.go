package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/favbox/favbox/internal/ai"
	"github.com/favbox/favbox/internal/classify"
	"github.com/favbox/favbox/internal/config"
	"github.com/favbox/favbox/internal/httpserver"
	"github.com/favbox/favbox/internal/httpserver/deps"
	"github.com/favbox/favbox/internal/logger"
	"github.com/favbox/favbox/internal/search"
	"github.com/favbox/favbox/internal/store/postgres"
	"github.com/favbox/favbox/internal/store/rediscache"
	"github.com/favbox/favbox/internal/syncer"
	"github.com/favbox/favbox/internal/version"
	"github.com/favbox/favbox/internal/ws"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	pool        *pgxpool.Pool
	redisClient *goredis.Client
	hub         *ws.Hub
	enricher    *ai.Enricher
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	ctx := context.Background()

	// Initialize Postgres early - fail fast if unavailable
	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, cfg.DatabaseURL); err != nil {
			loggerClient.Errorf("Failed to run migrations: %v", err)
			os.Exit(1)
		}
		loggerClient.Info("Database migrations applied")
	}
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Postgres: %v", err)
		os.Exit(1)
	}
	st := postgres.NewStore(pool)
	loggerClient.Info("Postgres initialized successfully")

	// Optional Redis list cache
	var redisClient *goredis.Client
	var cache *rediscache.Cache
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		redisClient, err = rediscache.Connect(ctx, rediscache.ConnectOptions{
			Addr:     cfg.RedisAddr,
			User:     cfg.RedisUser,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		cache = rediscache.New(redisClient, cfg.CacheTTL, loggerClient)
		loggerClient.Info("Redis list cache initialized")
	} else {
		loggerClient.Info("Redis not configured, list cache disabled")
	}

	hub := ws.NewHub(loggerClient)

	suggester := ai.NewKeywordSuggester()

	var enricher *ai.Enricher
	var enqueuer syncer.Enqueuer
	if cfg.EnrichEnabled {
		enricher = ai.NewEnricher(st, suggester, hub, loggerClient, cfg.EnrichQueueSize)
		enqueuer = enricher
	} else {
		loggerClient.Info("background enrichment disabled")
	}

	var embedder search.Embedder
	if cfg.EmbeddingsURL != "" {
		embedder = search.NewEmbeddingsClient(cfg.EmbeddingsURL, cfg.EmbeddingsModel)
		loggerClient.Infof("Embeddings provider configured at %s (model=%s)",
			cfg.EmbeddingsURL, cfg.EmbeddingsModel)
	} else {
		loggerClient.Info("embeddings not configured, semantic search disabled")
	}
	searcher := search.NewSearcher(st, embedder)

	taxonomy, err := classify.LoadTaxonomy(cfg.TaxonomyFile)
	if err != nil {
		loggerClient.Errorf("Failed to load taxonomy: %v", err)
		os.Exit(1)
	}
	classifier := classify.NewClassifier(taxonomy)

	syncService := syncer.NewService(st, hub, enqueuer, loggerClient)

	d := deps.Deps{
		Logger:    loggerClient,
		StartTime: time.Now(),
		Version:   version.Version,
		Commit:    version.Commit,
		BuildDate: version.BuildDate,
		GoVersion: version.GoVersion,
		TimeNow:   time.Now,

		JWTSecret: []byte(cfg.JWTSecret),

		Store:      st,
		Sync:       syncService,
		Hub:        hub,
		Cache:      cache,
		Searcher:   searcher,
		Suggester:  suggester,
		Classifier: classifier,

		RequestTimeout:   cfg.RequestTimeout,
		CORSOrigins:      cfg.CORSOrigins,
		RateLimitEnabled: cfg.RateLimitEnabled,
		SyncBurst:        cfg.SyncBurst,
		SyncPerMin:       cfg.SyncPerMin,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		pool:        pool,
		redisClient: redisClient,
		hub:         hub,
		enricher:    enricher,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting FavBox v%s on %s", version.Version, a.cfg.ListenAddr)
	a.logger.Infof("FavBox %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.enricher != nil {
		a.enricher.Start(ctx)
		a.logger.Info("enrichment worker started")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	if a.enricher != nil {
		a.enricher.Stop()
	}

	// Disconnect live clients before the listener stops accepting.
	a.hub.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.pool.Close()

	a.logger.Info("✅ FavBox stopped cleanly")
	return nil
}
