package domain

import (
	"context"
	"time"
)

// Snapshot is one cached market listing: the ordered markets plus the time
// they were fetched from upstream. A Snapshot is replaced wholesale on
// refresh, never mutated in place.
type Snapshot struct {
	Markets   []Market  `json:"markets"`
	FetchedAt time.Time `json:"fetchedAt"`

	// Stale marks a snapshot that outlived its freshness window but is being
	// served anyway because the last refresh failed.
	Stale bool `json:"stale"`
}

// Age returns how old the snapshot is relative to now.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// MarketSource fetches the current market listing from an upstream API.
type MarketSource interface {
	FetchMarkets(ctx context.Context) ([]Market, error)
}

// SnapshotCache is a process-shared snapshot cache (e.g. Redis) that lets
// several dashboard replicas reuse one upstream fetch per freshness window.
type SnapshotCache interface {
	Get(ctx context.Context) (Snapshot, error)
	Set(ctx context.Context, snap Snapshot, ttl time.Duration) error
}

// SnapshotStore persists snapshot history for offline analysis.
type SnapshotStore interface {
	Insert(ctx context.Context, snap Snapshot) error
	CountSnapshots(ctx context.Context) (int64, error)
}
