package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration assembled from the
// environment so main stays lean.
type Config struct {
	Addr          string
	DatabaseURL   string
	Redis         RedisConfig
	JWTSigningKey string

	// SimilarityThreshold is the minimum cosine similarity for the identity
	// resolver to accept a face-embedding match.
	SimilarityThreshold float64

	// EmbeddingCacheTTL bounds how long resolved embedding corpora stay in
	// the Redis cache before re-reading from the store.
	EmbeddingCacheTTL time.Duration

	ShutdownTimeout time.Duration
}

// RedisConfig holds Redis connection tuning. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:          envOr("FACEGATE_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("FACEGATE_DATABASE_URL"),
		JWTSigningKey: envOr("FACEGATE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Redis: RedisConfig{
			URL:          os.Getenv("FACEGATE_REDIS_URL"),
			PoolSize:     envIntOr("FACEGATE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("FACEGATE_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("FACEGATE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("FACEGATE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("FACEGATE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		SimilarityThreshold: envFloatOr("FACEGATE_SIMILARITY_THRESHOLD", 0.92),
		EmbeddingCacheTTL:   envDurationOr("FACEGATE_EMBEDDING_CACHE_TTL", 5*time.Minute),
		ShutdownTimeout:     envDurationOr("FACEGATE_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}
