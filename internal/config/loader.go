package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies POLYVIEW_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load. A missing config file is
// not an error; defaults plus environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYVIEW_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Gamma ──
	setStr(&cfg.Gamma.Host, "POLYVIEW_GAMMA_HOST")
	setInt(&cfg.Gamma.Limit, "POLYVIEW_GAMMA_LIMIT")
	setInt(&cfg.Gamma.TimeoutSeconds, "POLYVIEW_GAMMA_TIMEOUT_SECONDS")

	// ── Cache ──
	setInt(&cfg.Cache.TTLSeconds, "POLYVIEW_CACHE_TTL_SECONDS")
	setBool(&cfg.Cache.ServeStale, "POLYVIEW_CACHE_SERVE_STALE")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "POLYVIEW_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "POLYVIEW_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYVIEW_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYVIEW_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYVIEW_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYVIEW_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYVIEW_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "POLYVIEW_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "POLYVIEW_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POLYVIEW_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POLYVIEW_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POLYVIEW_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POLYVIEW_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POLYVIEW_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POLYVIEW_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POLYVIEW_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POLYVIEW_POSTGRES_RUN_MIGRATIONS")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "POLYVIEW_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "POLYVIEW_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "POLYVIEW_S3_REGION")
	setStr(&cfg.S3.Bucket, "POLYVIEW_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "POLYVIEW_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "POLYVIEW_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "POLYVIEW_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "POLYVIEW_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setInt(&cfg.Archive.IntervalMinutes, "POLYVIEW_ARCHIVE_INTERVAL_MINUTES")

	// ── Server ──
	setInt(&cfg.Server.Port, "POLYVIEW_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "POLYVIEW_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "POLYVIEW_SERVER_API_KEY")

	// ── Top-level ──
	setStr(&cfg.Mode, "POLYVIEW_MODE")
	setStr(&cfg.LogLevel, "POLYVIEW_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
