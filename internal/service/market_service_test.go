package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/polyview/polyview/internal/domain"
	"github.com/polyview/polyview/internal/markets"
)

type fakeProvider struct {
	snap domain.Snapshot
	err  error
	ttl  time.Duration
}

func (f *fakeProvider) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	return f.snap, f.err
}

func (f *fakeProvider) TTL() time.Duration { return f.ttl }

var serviceNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func newTestService(provider *fakeProvider) *MarketService {
	s := NewMarketService(provider, nil)
	s.now = func() time.Time { return serviceNow }
	return s
}

func snapshotWith(ms ...domain.Market) domain.Snapshot {
	return domain.Snapshot{Markets: ms, FetchedAt: serviceNow.Add(-10 * time.Second)}
}

func dated(id string, hours float64, prob float64) domain.Market {
	end := serviceNow.Add(time.Duration(hours * float64(time.Hour)))
	return domain.Market{ID: id, Question: "Q " + id, Probability: prob, EndDate: &end}
}

func TestList_FiltersSortsAndCounts(t *testing.T) {
	provider := &fakeProvider{snap: snapshotWith(
		dated("a", 48, 0.9),
		dated("b", 2, 0.9), // filtered by min_hours
		dated("c", 48, 0.95),
	)}
	svc := newTestService(provider)

	listing, err := svc.List(context.Background(), markets.FilterOpts{MinHours: 6}, markets.SortProbabilityDesc)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if listing.Total != 3 {
		t.Errorf("Total = %d, want 3", listing.Total)
	}
	if listing.Filtered != 2 {
		t.Errorf("Filtered = %d, want 2", listing.Filtered)
	}
	if len(listing.Markets) != 2 || listing.Markets[0].ID != "c" || listing.Markets[1].ID != "a" {
		t.Errorf("unexpected order: %+v", listing.Markets)
	}
	if listing.Markets[0].HoursLeft != 48 {
		t.Errorf("HoursLeft = %v, want 48", listing.Markets[0].HoursLeft)
	}
}

func TestList_PropagatesProviderError(t *testing.T) {
	svc := newTestService(&fakeProvider{err: errors.New("no snapshot")})

	if _, err := svc.List(context.Background(), markets.FilterOpts{}, ""); err == nil {
		t.Fatal("expected error from failing provider")
	}
}

func TestGet(t *testing.T) {
	svc := newTestService(&fakeProvider{snap: snapshotWith(dated("a", 6, 0.8))})

	row, err := svc.Get(context.Background(), "a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if row.ID != "a" || row.HoursLeft != 6 {
		t.Errorf("row = %+v", row)
	}

	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStatus(t *testing.T) {
	snap := snapshotWith(dated("a", 6, 0.8))
	snap.Stale = true
	svc := newTestService(&fakeProvider{snap: snap, ttl: 60 * time.Second})

	st, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.AgeSeconds != 10 {
		t.Errorf("AgeSeconds = %v, want 10", st.AgeSeconds)
	}
	if st.TTLSeconds != 60 {
		t.Errorf("TTLSeconds = %v, want 60", st.TTLSeconds)
	}
	if !st.Stale || st.MarketCount != 1 {
		t.Errorf("status = %+v", st)
	}
}
