package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/polyview/polyview/internal/domain"
)

// snapshotKey holds the single shared market listing. One key, replaced
// wholesale on every refresh, expiring with the freshness window.
const snapshotKey = "markets:snapshot"

// SnapshotCache implements domain.SnapshotCache using a single Redis string
// value holding the JSON-serialized snapshot.
type SnapshotCache struct {
	rdb *redis.Client
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{rdb: c.Underlying()}
}

// Get retrieves the shared snapshot. It returns domain.ErrNoSnapshot when the
// key does not exist or has expired.
func (sc *SnapshotCache) Get(ctx context.Context) (domain.Snapshot, error) {
	data, err := sc.rdb.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Snapshot{}, domain.ErrNoSnapshot
		}
		return domain.Snapshot{}, fmt.Errorf("redis: get snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("redis: unmarshal snapshot: %w", err)
	}
	return snap, nil
}

// Set stores the snapshot with the given TTL, so the key disappears on its
// own once the freshness window closes.
func (sc *SnapshotCache) Set(ctx context.Context, snap domain.Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot: %w", err)
	}

	if err := sc.rdb.Set(ctx, snapshotKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)
