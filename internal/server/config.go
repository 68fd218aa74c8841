// Package server exposes the catalog engine over HTTP: read-only
// catalog views (hierarchy, graph, resolution) and the session command
// endpoint, backed by a session store and an installed-pack registry.
package server

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	pherrors "github.com/packhouse/packhouse/pkg/errors"
)

// Config holds the server's deployment settings, loaded from a TOML
// file with environment overrides for the connection URLs.
type Config struct {
	// Listen is the address the HTTP server binds to.
	Listen string `toml:"listen"`

	// CatalogPath points at the catalog manifest file (JSON or YAML)
	// served when a request names no repository.
	CatalogPath string `toml:"catalog_path"`

	// RedisURL enables the Redis session/manifest cache when set; the
	// in-memory cache is used otherwise.
	RedisURL string `toml:"redis_url"`

	// MongoURL enables the MongoDB installed-pack registry when set; an
	// in-memory registry is used otherwise.
	MongoURL string `toml:"mongo_url"`

	// MongoDatabase names the database for the installed-pack registry.
	MongoDatabase string `toml:"mongo_database"`

	// SessionTTLSeconds bounds how long an idle session survives.
	SessionTTLSeconds int `toml:"session_ttl_seconds"`

	// ExecutorBuffer bounds how many accepted action lists may queue.
	ExecutorBuffer int `toml:"executor_buffer"`
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() Config {
	return Config{
		Listen:            ":8080",
		MongoDatabase:     "packhouse",
		SessionTTLSeconds: 1800,
		ExecutorBuffer:    16,
	}
}

// LoadConfig reads a TOML config file and fills unset fields with
// defaults. An empty path returns the defaults, letting environment
// overrides stand alone.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, pherrors.Wrap(pherrors.ErrCodeInvalidInput, err, "load config %s", path)
		}
	}

	if v := os.Getenv("PACKHOUSE_REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv("PACKHOUSE_MONGO_URL"); v != "" {
		cfg.MongoURL = v
	}
	if v := os.Getenv("PACKHOUSE_LISTEN"); v != "" {
		cfg.Listen = v
	}

	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.SessionTTLSeconds <= 0 {
		cfg.SessionTTLSeconds = 1800
	}
	if cfg.ExecutorBuffer <= 0 {
		cfg.ExecutorBuffer = 16
	}
	return cfg, nil
}

// SessionTTL returns the configured session lifetime.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}
