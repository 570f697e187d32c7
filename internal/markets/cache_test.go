package markets

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/polyview/polyview/internal/domain"
)

// fakeSource counts fetches and returns a configurable listing or error. An
// optional delay simulates a slow upstream.
type fakeSource struct {
	mu      sync.Mutex
	records []domain.Market
	err     error
	delay   time.Duration
	fetches atomic.Int32
}

func (f *fakeSource) FetchMarkets(ctx context.Context) ([]domain.Market, error) {
	f.fetches.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.Market, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeSource) setError(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// fakeClock provides a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func threeMarkets() []domain.Market {
	return []domain.Market{
		{ID: "1", Question: "Q1", Probability: 0.9},
		{ID: "2", Question: "Q2", Probability: 0.6},
		{ID: "3", Question: "Q3", Probability: 0.5},
	}
}

func newTestCache(t *testing.T, source *fakeSource, cfg Config) (*Cache, *fakeClock) {
	t.Helper()
	c := NewCache(source, nil, cfg, nil)
	clock := &fakeClock{now: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}
	c.now = clock.Now
	return c, clock
}

func TestCache_FreshWindowSingleFetch(t *testing.T) {
	source := &fakeSource{records: threeMarkets()}
	c, clock := newTestCache(t, source, Config{TTL: 60 * time.Second})
	ctx := context.Background()

	first, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("first Snapshot failed: %v", err)
	}
	if len(first.Markets) != 3 {
		t.Fatalf("got %d markets, want 3", len(first.Markets))
	}

	// t=30: still within the window, same data, no extra fetch.
	clock.Advance(30 * time.Second)
	second, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("second Snapshot failed: %v", err)
	}
	if !second.FetchedAt.Equal(first.FetchedAt) {
		t.Errorf("FetchedAt changed within TTL: %v -> %v", first.FetchedAt, second.FetchedAt)
	}
	if got := source.fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
}

func TestCache_ExpiryTriggersSingleRefetch(t *testing.T) {
	source := &fakeSource{records: threeMarkets()}
	c, clock := newTestCache(t, source, Config{TTL: 60 * time.Second})
	ctx := context.Background()

	first, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	// t=61: past the window, exactly one new fetch and an advanced timestamp.
	clock.Advance(61 * time.Second)
	second, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot after expiry failed: %v", err)
	}
	if got := source.fetches.Load(); got != 2 {
		t.Errorf("fetches = %d, want 2", got)
	}
	if !second.FetchedAt.After(first.FetchedAt) {
		t.Errorf("FetchedAt did not advance: %v -> %v", first.FetchedAt, second.FetchedAt)
	}
}

func TestCache_ErrorWithoutSnapshotPropagates(t *testing.T) {
	source := &fakeSource{err: errors.New("gamma down")}
	c, _ := newTestCache(t, source, Config{TTL: 60 * time.Second, ServeStale: true})

	if _, err := c.Snapshot(context.Background()); err == nil {
		t.Fatal("expected error when no snapshot exists and fetch fails")
	}
}

func TestCache_ServeStalePolicy(t *testing.T) {
	source := &fakeSource{records: threeMarkets()}
	c, clock := newTestCache(t, source, Config{TTL: 60 * time.Second, ServeStale: true})
	ctx := context.Background()

	if _, err := c.Snapshot(ctx); err != nil {
		t.Fatalf("initial Snapshot failed: %v", err)
	}

	source.setError(errors.New("gamma down"))
	clock.Advance(2 * time.Minute)

	// Every subsequent call serves the last good data, marked stale.
	for i := 0; i < 3; i++ {
		snap, err := c.Snapshot(ctx)
		if err != nil {
			t.Fatalf("call %d: expected stale snapshot, got error: %v", i, err)
		}
		if !snap.Stale {
			t.Errorf("call %d: snapshot not marked stale", i)
		}
		if len(snap.Markets) != 3 {
			t.Errorf("call %d: got %d markets, want 3", i, len(snap.Markets))
		}
	}
}

func TestCache_PropagatePolicy(t *testing.T) {
	source := &fakeSource{records: threeMarkets()}
	c, clock := newTestCache(t, source, Config{TTL: 60 * time.Second, ServeStale: false})
	ctx := context.Background()

	if _, err := c.Snapshot(ctx); err != nil {
		t.Fatalf("initial Snapshot failed: %v", err)
	}

	source.setError(errors.New("gamma down"))
	clock.Advance(2 * time.Minute)

	// Every subsequent call fails; no nondeterministic fallback to stale data.
	for i := 0; i < 3; i++ {
		if _, err := c.Snapshot(ctx); err == nil {
			t.Fatalf("call %d: expected error with serve_stale off", i)
		}
	}
}

func TestCache_EmptyListingIsValid(t *testing.T) {
	source := &fakeSource{records: nil}
	c, _ := newTestCache(t, source, Config{TTL: 60 * time.Second})

	snap, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snap.Markets) != 0 {
		t.Errorf("got %d markets, want 0", len(snap.Markets))
	}
}

func TestCache_ConcurrentStaleCallersFetchOnce(t *testing.T) {
	source := &fakeSource{records: threeMarkets(), delay: 50 * time.Millisecond}
	c, _ := newTestCache(t, source, Config{TTL: 60 * time.Second})
	ctx := context.Background()

	const callers = 20
	var wg sync.WaitGroup
	errs := make(chan error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Snapshot(ctx); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent Snapshot failed: %v", err)
	}
	if got := source.fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1 (refresh should be serialized)", got)
	}
}

func TestCache_OnRefreshHook(t *testing.T) {
	source := &fakeSource{records: threeMarkets()}
	c, _ := newTestCache(t, source, Config{TTL: 60 * time.Second})

	var refreshed atomic.Int32
	c.OnRefresh(func(snap domain.Snapshot) {
		if len(snap.Markets) != 3 {
			t.Errorf("hook got %d markets, want 3", len(snap.Markets))
		}
		refreshed.Add(1)
	})

	if _, err := c.Snapshot(context.Background()); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if got := refreshed.Load(); got != 1 {
		t.Errorf("refresh hook calls = %d, want 1", got)
	}
}

// fakeShared is an in-memory domain.SnapshotCache.
type fakeShared struct {
	mu   sync.Mutex
	snap *domain.Snapshot
	sets atomic.Int32
}

func (f *fakeShared) Get(ctx context.Context) (domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snap == nil {
		return domain.Snapshot{}, domain.ErrNoSnapshot
	}
	return *f.snap, nil
}

func (f *fakeShared) Set(ctx context.Context, snap domain.Snapshot, ttl time.Duration) error {
	f.mu.Lock()
	f.snap = &snap
	f.mu.Unlock()
	f.sets.Add(1)
	return nil
}

func TestCache_SharedCacheAvoidsUpstreamFetch(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	shared := &fakeShared{snap: &domain.Snapshot{
		Markets:   threeMarkets(),
		FetchedAt: base.Add(-10 * time.Second),
	}}
	source := &fakeSource{records: nil}

	c := NewCache(source, shared, Config{TTL: 60 * time.Second}, nil)
	clock := &fakeClock{now: base}
	c.now = clock.Now

	snap, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snap.Markets) != 3 {
		t.Errorf("got %d markets, want 3 from shared cache", len(snap.Markets))
	}
	if got := source.fetches.Load(); got != 0 {
		t.Errorf("fetches = %d, want 0 (shared snapshot was fresh)", got)
	}
}

func TestCache_RefreshPublishesToSharedCache(t *testing.T) {
	shared := &fakeShared{}
	source := &fakeSource{records: threeMarkets()}

	c := NewCache(source, shared, Config{TTL: 60 * time.Second}, nil)

	if _, err := c.Snapshot(context.Background()); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if got := shared.sets.Load(); got != 1 {
		t.Errorf("shared cache sets = %d, want 1", got)
	}
}
