package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/polyview/polyview/internal/blob/s3"
	"github.com/polyview/polyview/internal/cache/redis"
	"github.com/polyview/polyview/internal/config"
	"github.com/polyview/polyview/internal/domain"
	"github.com/polyview/polyview/internal/markets"
	"github.com/polyview/polyview/internal/platform/polymarket"
	"github.com/polyview/polyview/internal/server/handler"
	"github.com/polyview/polyview/internal/service"
	"github.com/polyview/polyview/internal/store/postgres"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Cache     *markets.Cache
	MarketSvc *service.MarketService

	// Archive sinks; nil unless the mode needs them and they are configured.
	SnapshotStore domain.SnapshotStore
	BlobWriter    domain.BlobWriter

	// HealthChecks cover every wired backing dependency for /api/health.
	HealthChecks []handler.DependencyCheck
}

// needsArchiveSinks returns true for modes that persist snapshot history.
func needsArchiveSinks(mode string) bool {
	switch mode {
	case "archive", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}
	mode := strings.ToLower(cfg.Mode)

	// --- Gamma API client ---
	gamma := polymarket.NewGammaClient(cfg.Gamma.Host, cfg.Gamma.Limit, cfg.Gamma.Timeout(), logger)

	// --- Shared snapshot cache (optional) ---
	var shared domain.SnapshotCache
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		shared = redis.NewSnapshotCache(redisClient)
		deps.HealthChecks = append(deps.HealthChecks, handler.DependencyCheck{
			Name:  "redis",
			Check: redisClient.Ping,
		})
	}

	// --- TTL cache and market service ---
	deps.Cache = markets.NewCache(gamma, shared, markets.Config{
		TTL:        cfg.Cache.TTL(),
		ServeStale: cfg.Cache.ServeStale,
	}, logger)
	deps.MarketSvc = service.NewMarketService(deps.Cache, logger)

	// --- Archive sinks (only for modes that persist history) ---
	if needsArchiveSinks(mode) {
		if cfg.Postgres.Configured() {
			pgClient, err := postgres.New(ctx, postgres.ClientConfig{
				DSN:      cfg.Postgres.DSN,
				Host:     cfg.Postgres.Host,
				Port:     cfg.Postgres.Port,
				Database: cfg.Postgres.Database,
				User:     cfg.Postgres.User,
				Password: cfg.Postgres.Password,
				SSLMode:  cfg.Postgres.SSLMode,
				MaxConns: cfg.Postgres.PoolMaxConns,
				MinConns: cfg.Postgres.PoolMinConns,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres: %w", err)
			}
			closers = append(closers, pgClient.Close)

			if cfg.Postgres.RunMigrations {
				if err := pgClient.RunMigrations(ctx); err != nil {
					cleanup()
					return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
				}
			}

			deps.SnapshotStore = postgres.NewSnapshotStore(pgClient.Pool())
			deps.HealthChecks = append(deps.HealthChecks, handler.DependencyCheck{
				Name:  "postgres",
				Check: pgClient.Pool().Ping,
			})
		}

		if cfg.S3.Enabled {
			s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
				Endpoint:       cfg.S3.Endpoint,
				Region:         cfg.S3.Region,
				Bucket:         cfg.S3.Bucket,
				AccessKey:      cfg.S3.AccessKey,
				SecretKey:      cfg.S3.SecretKey,
				UseSSL:         cfg.S3.UseSSL,
				ForcePathStyle: cfg.S3.ForcePathStyle,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: s3: %w", err)
			}
			// Fail fast on a misconfigured bucket rather than on the first
			// archive pass.
			if err := s3Client.Health(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: s3 health: %w", err)
			}
			deps.BlobWriter = s3blob.NewWriter(s3Client)
			deps.HealthChecks = append(deps.HealthChecks, handler.DependencyCheck{
				Name:  "s3",
				Check: s3Client.Health,
			})
		}
	}

	return deps, cleanup, nil
}
