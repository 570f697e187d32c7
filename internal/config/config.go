// Package config defines the top-level configuration for the dashboard
// backend and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by POLYVIEW_* environment variables.
type Config struct {
	Gamma    GammaConfig    `toml:"gamma"`
	Cache    CacheConfig    `toml:"cache"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// GammaConfig holds Polymarket Gamma API parameters.
type GammaConfig struct {
	Host           string `toml:"host"`
	Limit          int    `toml:"limit"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the per-request timeout as a duration.
func (g GammaConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// CacheConfig holds the freshness window and the stale-serving policy.
type CacheConfig struct {
	TTLSeconds int `toml:"ttl_seconds"`

	// ServeStale keeps the dashboard available on a failed refresh by
	// serving the last good listing, flagged as stale. Turn off to surface
	// refresh failures to callers instead.
	ServeStale bool `toml:"serve_stale"`
}

// TTL returns the freshness window as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// RedisConfig holds Redis connection parameters for the shared snapshot
// cache. Disabled by default; a single-replica deployment has no use for it.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters for snapshot history.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// Configured reports whether any connection target is set.
func (p PostgresConfig) Configured() bool {
	return strings.TrimSpace(p.DSN) != "" || strings.TrimSpace(p.Host) != ""
}

// S3Config holds S3-compatible object storage parameters for snapshot
// archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig holds the snapshot archiver schedule.
type ArchiveConfig struct {
	IntervalMinutes int `toml:"interval_minutes"`
}

// Interval returns the archive interval as a duration.
func (a ArchiveConfig) Interval() time.Duration {
	return time.Duration(a.IntervalMinutes) * time.Minute
}

// ServerConfig holds the HTTP API parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// Validate checks the configuration for the selected mode and returns a
// descriptive error for the first problem found.
func (c *Config) Validate() error {
	mode := strings.ToLower(strings.TrimSpace(c.Mode))
	switch mode {
	case "serve", "archive", "full":
	default:
		return fmt.Errorf("config: unsupported mode %q (want serve, archive, or full)", c.Mode)
	}

	if strings.TrimSpace(c.Gamma.Host) == "" {
		return fmt.Errorf("config: gamma.host is required")
	}
	if c.Gamma.Limit <= 0 {
		return fmt.Errorf("config: gamma.limit must be positive, got %d", c.Gamma.Limit)
	}
	if c.Gamma.TimeoutSeconds <= 0 {
		return fmt.Errorf("config: gamma.timeout_seconds must be positive, got %d", c.Gamma.TimeoutSeconds)
	}

	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("config: cache.ttl_seconds must be positive, got %d", c.Cache.TTLSeconds)
	}

	if mode == "serve" || mode == "full" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			return fmt.Errorf("config: server.port must be in 1..65535, got %d", c.Server.Port)
		}
	}

	if mode == "archive" || mode == "full" {
		if !c.Postgres.Configured() && !c.S3.Enabled {
			return fmt.Errorf("config: archive mode needs postgres or s3 configured")
		}
		if c.Archive.IntervalMinutes <= 0 {
			return fmt.Errorf("config: archive.interval_minutes must be positive, got %d", c.Archive.IntervalMinutes)
		}
	}

	if c.Redis.Enabled && strings.TrimSpace(c.Redis.Addr) == "" {
		return fmt.Errorf("config: redis.addr is required when redis.enabled")
	}

	if c.S3.Enabled {
		if strings.TrimSpace(c.S3.Bucket) == "" {
			return fmt.Errorf("config: s3.bucket is required when s3.enabled")
		}
		if strings.TrimSpace(c.S3.Region) == "" {
			return fmt.Errorf("config: s3.region is required when s3.enabled")
		}
	}

	return nil
}
