// Package service composes the market cache with the dashboard's filter and
// sort semantics for the HTTP layer.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/polyview/polyview/internal/domain"
	"github.com/polyview/polyview/internal/markets"
)

// SnapshotProvider is the read side of the market cache.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
	TTL() time.Duration
}

// MarketRow is one rendered listing row: the market plus its computed
// hours-left at serve time.
type MarketRow struct {
	domain.Market
	HoursLeft float64 `json:"hoursLeft"`
}

// Listing is the result of a filtered, sorted market query.
type Listing struct {
	Markets   []MarketRow `json:"markets"`
	Total     int         `json:"total"`    // markets in the snapshot, pre-filter
	Filtered  int         `json:"filtered"` // markets after filtering
	FetchedAt time.Time   `json:"fetchedAt"`
	Stale     bool        `json:"stale"`
}

// Status describes the cache state for the status endpoint.
type Status struct {
	FetchedAt   time.Time `json:"fetchedAt"`
	AgeSeconds  float64   `json:"ageSeconds"`
	TTLSeconds  float64   `json:"ttlSeconds"`
	Stale       bool      `json:"stale"`
	MarketCount int       `json:"marketCount"`
}

// MarketService serves read-only market listings from the cache.
type MarketService struct {
	provider SnapshotProvider
	logger   *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewMarketService creates a MarketService over the given snapshot provider.
func NewMarketService(provider SnapshotProvider, logger *slog.Logger) *MarketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketService{
		provider: provider,
		logger:   logger.With(slog.String("component", "market_service")),
		now:      time.Now,
	}
}

// List returns the current listing with filters and sorting applied.
func (s *MarketService) List(ctx context.Context, opts markets.FilterOpts, sortBy markets.SortOption) (Listing, error) {
	snap, err := s.provider.Snapshot(ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("market_service: list: %w", err)
	}

	now := s.now()
	filtered := markets.Apply(snap.Markets, opts, now)
	markets.Sort(filtered, sortBy)

	rows := make([]MarketRow, 0, len(filtered))
	for _, m := range filtered {
		rows = append(rows, MarketRow{Market: m, HoursLeft: m.HoursLeft(now)})
	}

	return Listing{
		Markets:   rows,
		Total:     len(snap.Markets),
		Filtered:  len(rows),
		FetchedAt: snap.FetchedAt,
		Stale:     snap.Stale,
	}, nil
}

// Get returns a single market from the current snapshot by ID. It returns
// domain.ErrNotFound when the ID is absent from the listing.
func (s *MarketService) Get(ctx context.Context, id string) (MarketRow, error) {
	snap, err := s.provider.Snapshot(ctx)
	if err != nil {
		return MarketRow{}, fmt.Errorf("market_service: get %q: %w", id, err)
	}

	for _, m := range snap.Markets {
		if m.ID == id {
			return MarketRow{Market: m, HoursLeft: m.HoursLeft(s.now())}, nil
		}
	}
	return MarketRow{}, fmt.Errorf("market_service: get %q: %w", id, domain.ErrNotFound)
}

// Categories returns the sorted distinct categories in the current listing.
func (s *MarketService) Categories(ctx context.Context) ([]string, error) {
	snap, err := s.provider.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("market_service: categories: %w", err)
	}
	return markets.Categories(snap.Markets), nil
}

// Status reports the cache state without forcing a refresh beyond what a
// normal read would do.
func (s *MarketService) Status(ctx context.Context) (Status, error) {
	snap, err := s.provider.Snapshot(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("market_service: status: %w", err)
	}

	return Status{
		FetchedAt:   snap.FetchedAt,
		AgeSeconds:  snap.Age(s.now()).Seconds(),
		TTLSeconds:  s.provider.TTL().Seconds(),
		Stale:       snap.Stale,
		MarketCount: len(snap.Markets),
	}, nil
}
