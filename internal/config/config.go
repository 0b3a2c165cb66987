package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr      string        // ex: ":8000"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout for REST endpoints

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Postgres
	DatabaseURL    string // postgres DSN, required
	MigrateOnStart bool   // run embedded goose migrations on startup

	// Auth
	JWTSecret string // HMAC secret used to verify bearer tokens, required

	// Redis list cache (optional, empty addr = cache disabled)
	RedisAddr     string
	RedisUser     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration // TTL for cached per-user bookmark lists

	// CORS
	CORSOrigins []string // allowed origins; browser extensions send their own scheme

	// Rate limiting on sync endpoints
	SyncBurst        int // bucket capacity per user
	SyncPerMin       int // token refill per user per minute
	RateLimitEnabled bool

	// AI enrichment (optional)
	EnrichEnabled   bool
	EnrichQueueSize int

	// Embeddings provider for semantic search (optional, empty = disabled)
	EmbeddingsURL   string // ex: "http://localhost:11434"
	EmbeddingsModel string // ex: "nomic-embed-text"

	// Category taxonomy (optional, empty = built-in default)
	TaxonomyFile string
}

func Load() *Config {
	// Best effort: local development keeps settings in .env
	_ = godotenv.Load()

	cfg := &Config{
		// Server settings
		ListenAddr:      getenv("FAVBOX_LISTEN_ADDR", ":8000"),
		ShutdownTimeout: mustDuration("FAVBOX_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("FAVBOX_REQUEST_TIMEOUT", 30*time.Second),

		// Logging
		LogLevel:  getenv("FAVBOX_LOG_LEVEL", "info"),
		PrettyLog: mustBool("FAVBOX_PRETTY_LOG", false),

		// Postgres
		DatabaseURL:    requireEnv("FAVBOX_DATABASE_URL"),
		MigrateOnStart: mustBool("FAVBOX_MIGRATE_ON_START", true),

		// Auth
		JWTSecret: requireEnv("FAVBOX_JWT_SECRET"),

		// Redis
		RedisAddr:     getenv("FAVBOX_REDIS_ADDR", ""),
		RedisUser:     getenv("FAVBOX_REDIS_USERNAME", "default"),
		RedisPassword: getenv("FAVBOX_REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("FAVBOX_REDIS_DB", 0),
		CacheTTL:      mustDuration("FAVBOX_CACHE_TTL", 5*time.Minute),

		// CORS
		CORSOrigins: splitAndTrim(getenv("FAVBOX_CORS_ORIGINS",
			"chrome-extension://,moz-extension://,http://localhost:3000")),

		// Rate limiting
		SyncBurst:        getenvInt("FAVBOX_SYNC_BURST", 20),
		SyncPerMin:       getenvInt("FAVBOX_SYNC_PER_MIN", 60),
		RateLimitEnabled: mustBool("FAVBOX_RATE_LIMIT_ENABLED", true),

		// AI enrichment
		EnrichEnabled:   mustBool("FAVBOX_ENRICH_ENABLED", true),
		EnrichQueueSize: getenvInt("FAVBOX_ENRICH_QUEUE_SIZE", 256),

		// Embeddings
		EmbeddingsURL:   getenv("FAVBOX_EMBEDDINGS_URL", ""),
		EmbeddingsModel: getenv("FAVBOX_EMBEDDINGS_MODEL", "nomic-embed-text"),

		// Taxonomy
		TaxonomyFile: getenv("FAVBOX_TAXONOMY_FILE", ""),
	}

	if len(cfg.JWTSecret) < 16 {
		panic("FATAL: FAVBOX_JWT_SECRET must be at least 16 bytes")
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
