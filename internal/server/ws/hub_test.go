package ws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/polyview/polyview/internal/domain"
)

func runHub(t *testing.T) (*Hub, context.CancelFunc, chan error) {
	t.Helper()
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	return h, cancel, done
}

func TestHub_BroadcastReachesRegisteredClient(t *testing.T) {
	h, cancel, _ := runHub(t)
	defer cancel()

	c := &client{send: make(chan []byte, 1)}
	h.register <- c

	h.BroadcastRefresh(domain.Snapshot{
		Markets:   []domain.Market{{ID: "m1"}, {ID: "m2"}},
		FetchedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	})

	select {
	case msg := <-c.send:
		var ev RefreshEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if ev.Type != "snapshot_refreshed" || ev.MarketCount != 2 {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never reached the client")
	}
}

func TestHub_DropAfterShutdownDoesNotBlock(t *testing.T) {
	h, cancel, done := runHub(t)

	c := &client{send: make(chan []byte, 1)}
	h.register <- c

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	// A read pump detaching after shutdown must return instead of waiting on
	// an unregister receive nobody services.
	finished := make(chan struct{})
	go func() {
		h.drop(c)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("drop blocked after hub shutdown")
	}
}
