// Package markets holds the in-memory market listing cache and the filter
// and sort semantics of the dashboard.
package markets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/polyview/polyview/internal/domain"
)

// DefaultTTL is the freshness window applied when no TTL is configured.
const DefaultTTL = 60 * time.Second

// Config holds cache construction parameters.
type Config struct {
	// TTL is the freshness window; a snapshot older than this is stale and
	// must be refreshed before being served.
	TTL time.Duration

	// ServeStale, when true, serves the last good snapshot (marked stale)
	// if a refresh fails. When false the refresh error propagates instead.
	ServeStale bool
}

// Cache is the single-slot TTL cache in front of a MarketSource. A snapshot
// younger than the TTL is served as-is; otherwise one refresh runs at a time
// and concurrent stale callers wait for its result.
type Cache struct {
	source domain.MarketSource
	shared domain.SnapshotCache // optional cross-process layer, may be nil
	ttl    time.Duration
	stale  bool
	logger *slog.Logger

	// now is swappable for tests.
	now func() time.Time

	sf singleflight.Group

	mu   sync.RWMutex
	snap *domain.Snapshot

	// onRefresh, when set, is invoked after every successful refresh with
	// the new snapshot.
	onRefresh func(domain.Snapshot)
}

// NewCache creates a Cache over the given source. shared may be nil when no
// cross-process cache is configured.
func NewCache(source domain.MarketSource, shared domain.SnapshotCache, cfg Config, logger *slog.Logger) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		source: source,
		shared: shared,
		ttl:    cfg.TTL,
		stale:  cfg.ServeStale,
		logger: logger.With(slog.String("component", "market_cache")),
		now:    time.Now,
	}
}

// TTL returns the configured freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

// OnRefresh registers a hook called after each successful refresh. It must be
// set before the first Snapshot call.
func (c *Cache) OnRefresh(fn func(domain.Snapshot)) { c.onRefresh = fn }

// Snapshot returns the current market listing. A fresh cached snapshot is
// returned directly; otherwise the cache refreshes through the source, with
// at most one refresh in flight regardless of caller count.
func (c *Cache) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	if snap, ok := c.fresh(); ok {
		return snap, nil
	}

	v, err, _ := c.sf.Do("refresh", func() (any, error) {
		// A caller that queued behind an in-flight refresh sees its result
		// here without fetching again.
		if snap, ok := c.fresh(); ok {
			return snap, nil
		}
		return c.refresh(ctx)
	})
	if err != nil {
		return domain.Snapshot{}, err
	}
	return v.(domain.Snapshot), nil
}

// fresh returns the stored snapshot if it is within the freshness window.
func (c *Cache) fresh() (domain.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil || c.snap.Age(c.now()) > c.ttl {
		return domain.Snapshot{}, false
	}
	return *c.snap, true
}

// refresh replaces the stored snapshot with new data from the shared cache or
// the upstream source. On failure it applies the stale-serving policy.
func (c *Cache) refresh(ctx context.Context) (domain.Snapshot, error) {
	// A fresh snapshot published by another replica saves an upstream fetch.
	if snap, ok := c.sharedFresh(ctx); ok {
		c.store(snap)
		return snap, nil
	}

	records, err := c.source.FetchMarkets(ctx)
	if err != nil {
		return c.handleFetchError(ctx, err)
	}

	snap := domain.Snapshot{
		Markets:   records,
		FetchedAt: c.now(),
	}
	c.store(snap)
	c.publishShared(ctx, snap)

	c.logger.InfoContext(ctx, "snapshot refreshed",
		slog.Int("markets", len(records)),
		slog.Time("fetched_at", snap.FetchedAt),
	)
	if c.onRefresh != nil {
		c.onRefresh(snap)
	}
	return snap, nil
}

// handleFetchError serves the last good snapshot marked stale when the
// serve-stale policy is on and one exists, otherwise propagates the error.
func (c *Cache) handleFetchError(ctx context.Context, err error) (domain.Snapshot, error) {
	c.mu.RLock()
	last := c.snap
	c.mu.RUnlock()

	if c.stale && last != nil {
		stale := *last
		stale.Stale = true
		c.logger.WarnContext(ctx, "refresh failed, serving stale snapshot",
			slog.Duration("age", stale.Age(c.now())),
			slog.String("error", err.Error()),
		)
		return stale, nil
	}

	return domain.Snapshot{}, fmt.Errorf("markets: refresh: %w", err)
}

// store replaces the cached snapshot.
func (c *Cache) store(snap domain.Snapshot) {
	c.mu.Lock()
	c.snap = &snap
	c.mu.Unlock()
}

// sharedFresh consults the cross-process cache, treating any error there as a
// miss so a broken Redis never blocks reads.
func (c *Cache) sharedFresh(ctx context.Context) (domain.Snapshot, bool) {
	if c.shared == nil {
		return domain.Snapshot{}, false
	}
	snap, err := c.shared.Get(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNoSnapshot) {
			c.logger.WarnContext(ctx, "shared cache read failed",
				slog.String("error", err.Error()),
			)
		}
		return domain.Snapshot{}, false
	}
	if snap.Age(c.now()) > c.ttl {
		return domain.Snapshot{}, false
	}
	return snap, true
}

// publishShared writes a refreshed snapshot back to the cross-process cache.
// Write errors are logged, not propagated; the local copy is authoritative.
func (c *Cache) publishShared(ctx context.Context, snap domain.Snapshot) {
	if c.shared == nil {
		return
	}
	if err := c.shared.Set(ctx, snap, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "shared cache write failed",
			slog.String("error", err.Error()),
		)
	}
}
