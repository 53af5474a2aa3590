package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if TOPDISH_CONFIG is set
//  3. env (prefix TOPDISH_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("TOPDISH_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: TOPDISH_ADDR, TOPDISH_SLOT_COUNT, ...
	// Map env keys like TOPDISH_SLOT_COUNT -> slot_count (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("TOPDISH_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "topdish_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.SlotCount <= 0 {
		return fmt.Errorf("%w: slot_count must be positive", ErrInvalidConfig)
	}
	switch c.StoreBackend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("%w: unknown store_backend %q", ErrInvalidConfig, c.StoreBackend)
	}
	switch c.CacheBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("%w: unknown cache_backend %q", ErrInvalidConfig, c.CacheBackend)
	}
	if c.StoreBackend == "sqlite" && c.DBPath == "" {
		return fmt.Errorf("%w: db_path must be set for sqlite", ErrInvalidConfig)
	}
	if c.CacheBackend == "redis" && c.RedisAddr == "" {
		return fmt.Errorf("%w: redis_addr must be set for redis", ErrInvalidConfig)
	}
	return nil
}
