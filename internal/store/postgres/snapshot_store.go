package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/polyview/polyview/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using PostgreSQL.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a SnapshotStore backed by the given connection pool.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Insert persists a snapshot header and its market rows in one transaction.
func (s *SnapshotStore) Insert(ctx context.Context, snap domain.Snapshot) error {
	id := uuid.New()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO snapshots (id, fetched_at, stale, market_count)
		VALUES ($1, $2, $3, $4)`,
		id, snap.FetchedAt, snap.Stale, len(snap.Markets),
	)
	if err != nil {
		return fmt.Errorf("postgres: insert snapshot: %w", err)
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO snapshot_markets (
			snapshot_id, market_id, question, slug, category,
			yes_price, no_price, probability, end_date,
			open_interest, volume_24h
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for _, m := range snap.Markets {
		batch.Queue(query,
			id, m.ID, m.Question, m.Slug, m.Category,
			m.YesPrice, m.NoPrice, m.Probability, m.EndDate,
			m.OpenInterest, m.Volume24h,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range snap.Markets {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("postgres: insert snapshot market %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("postgres: close snapshot batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit snapshot: %w", err)
	}
	return nil
}

// CountSnapshots returns the number of archived snapshots.
func (s *SnapshotStore) CountSnapshots(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count snapshots: %w", err)
	}
	return n, nil
}

// Compile-time interface check.
var _ domain.SnapshotStore = (*SnapshotStore)(nil)
