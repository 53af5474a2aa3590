// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - All loading functions accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
	"time"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreBackend selects ranking persistence: "memory" or "sqlite".
	StoreBackend string `koanf:"store_backend"`

	// DBPath locates the SQLite database file when StoreBackend is "sqlite".
	DBPath string `koanf:"db_path"`

	// SlotCount sets the number of ranked positions per scope.
	SlotCount int `koanf:"slot_count"`

	// ScoreHalfLife controls the exponential decay of aggregate scores.
	ScoreHalfLife time.Duration `koanf:"score_half_life"`

	// LockTimeout bounds how long a submission waits on a busy scope.
	LockTimeout time.Duration `koanf:"lock_timeout"`

	// PublishQueueSize bounds the in-memory change event queue.
	PublishQueueSize int `koanf:"publish_queue_size"`

	// DispatcherCount sets the number of event dispatch workers.
	DispatcherCount int `koanf:"dispatcher_count"`

	// DedupeSize sets the size of the submission deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// CacheBackend selects the stats cache: "memory" or "redis".
	CacheBackend string `koanf:"cache_backend"`

	// CacheTTL bounds staleness of cached dish aggregates.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// RedisAddr locates the Redis server when CacheBackend is "redis".
	RedisAddr string `koanf:"redis_addr"`

	// AMQPURL enables the RabbitMQ change publisher when non-empty.
	AMQPURL string `koanf:"amqp_url"`

	// AMQPExchange names the topic exchange for change events.
	AMQPExchange string `koanf:"amqp_exchange"`

	// SubmitRate and SubmitBurst throttle POST /rankings; zero disables.
	SubmitRate  float64 `koanf:"submit_rate"`
	SubmitBurst int     `koanf:"submit_burst"`

	// MaxLeaderboardLimit caps custom leaderboard result sizes.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		StoreBackend:        "memory",
		DBPath:              "topdish.db",
		SlotCount:           5,
		ScoreHalfLife:       30 * 24 * time.Hour,
		LockTimeout:         2 * time.Second,
		PublishQueueSize:    10_000,
		DispatcherCount:     runtime.NumCPU(),
		DedupeSize:          50_000,
		CacheBackend:        "memory",
		CacheTTL:            30 * time.Second,
		AMQPExchange:        "topdish.rankings",
		MaxLeaderboardLimit: 100,
	}
	return c
}
