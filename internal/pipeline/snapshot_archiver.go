// Package pipeline runs the periodic snapshot archival loop.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/polyview/polyview/internal/domain"
)

// SnapshotProvider returns the current (cached or freshly fetched) listing.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// SnapshotArchiver periodically captures the current market snapshot and
// writes it to the history store and/or blob storage. Either sink may be nil;
// at least one must be set.
type SnapshotArchiver struct {
	provider SnapshotProvider
	store    domain.SnapshotStore
	blob     domain.BlobWriter
	logger   *slog.Logger
}

// NewSnapshotArchiver creates a SnapshotArchiver.
func NewSnapshotArchiver(
	provider SnapshotProvider,
	store domain.SnapshotStore,
	blob domain.BlobWriter,
	logger *slog.Logger,
) *SnapshotArchiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotArchiver{
		provider: provider,
		store:    store,
		blob:     blob,
		logger:   logger.With(slog.String("component", "snapshot_archiver")),
	}
}

// Run executes a single archive pass: take the current snapshot and write it
// to every configured sink. Stale snapshots are archived too; the stored
// stale flag keeps them distinguishable.
func (a *SnapshotArchiver) Run(ctx context.Context) error {
	snap, err := a.provider.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: take snapshot: %w", err)
	}

	attrs := []any{
		slog.Int("markets", len(snap.Markets)),
		slog.Bool("stale", snap.Stale),
		slog.Time("fetched_at", snap.FetchedAt),
	}

	if a.store != nil {
		if err := a.store.Insert(ctx, snap); err != nil {
			return fmt.Errorf("pipeline: store snapshot: %w", err)
		}
		if n, err := a.store.CountSnapshots(ctx); err == nil {
			attrs = append(attrs, slog.Int64("stored_total", n))
		}
	}

	if a.blob != nil {
		if err := a.upload(ctx, snap); err != nil {
			return fmt.Errorf("pipeline: upload snapshot: %w", err)
		}
	}

	a.logger.InfoContext(ctx, "snapshot archived", attrs...)
	return nil
}

// upload serializes the snapshot and writes it under a date-partitioned key.
func (a *SnapshotArchiver) upload(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := archiveKey(snap.FetchedAt)
	if err := a.blob.Put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return err
	}
	return nil
}

// archiveKey builds the object key for a snapshot, partitioned by UTC date so
// offline jobs can list a day's snapshots with one prefix.
func archiveKey(fetchedAt time.Time) string {
	t := fetchedAt.UTC()
	return fmt.Sprintf("markets/%s/snapshot-%s.json",
		t.Format("2006/01/02"),
		t.Format("150405"),
	)
}

// RunLoop runs the archiver on a repeating interval until the context is
// cancelled. The first pass runs immediately.
func (a *SnapshotArchiver) RunLoop(ctx context.Context, interval time.Duration) error {
	if err := a.Run(ctx); err != nil {
		a.logger.Error("snapshot archive failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("snapshot archiver stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := a.Run(ctx); err != nil {
				a.logger.Error("snapshot archive failed", slog.String("error", err.Error()))
			}
		}
	}
}
