package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/polyview/polyview/internal/domain"
	"github.com/polyview/polyview/internal/markets"
	"github.com/polyview/polyview/internal/service"
)

// fakeMarketService records the arguments it was called with and returns
// canned results.
type fakeMarketService struct {
	lastOpts markets.FilterOpts
	lastSort markets.SortOption

	listing    service.Listing
	row        service.MarketRow
	categories []string
	status     service.Status
	err        error
}

func (f *fakeMarketService) List(ctx context.Context, opts markets.FilterOpts, sortBy markets.SortOption) (service.Listing, error) {
	f.lastOpts = opts
	f.lastSort = sortBy
	return f.listing, f.err
}

func (f *fakeMarketService) Get(ctx context.Context, id string) (service.MarketRow, error) {
	return f.row, f.err
}

func (f *fakeMarketService) Categories(ctx context.Context) ([]string, error) {
	return f.categories, f.err
}

func (f *fakeMarketService) Status(ctx context.Context) (service.Status, error) {
	return f.status, f.err
}

func newMux(svc MarketService) *http.ServeMux {
	h := NewMarketHandler(svc, slog.Default())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/markets", h.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", h.GetMarket)
	mux.HandleFunc("GET /api/categories", h.ListCategories)
	return mux
}

func TestListMarkets_ParsesQueryParams(t *testing.T) {
	svc := &fakeMarketService{listing: service.Listing{Markets: []service.MarketRow{}}}
	mux := newMux(svc)

	req := httptest.NewRequest(http.MethodGet,
		"/api/markets?search=btc&categories=Politics,%20Crypto&hide_sports=true&min_probability=0.8&min_hours=6&min_open_interest=1000&sort=volume24hr", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	want := markets.FilterOpts{
		Search:          "btc",
		Categories:      []string{"Politics", "Crypto"},
		HideSports:      true,
		MinProbability:  0.8,
		MinHours:        6,
		MinOpenInterest: 1000,
	}
	if !reflect.DeepEqual(svc.lastOpts, want) {
		t.Errorf("opts = %+v, want %+v", svc.lastOpts, want)
	}
	if svc.lastSort != markets.SortVolume24h {
		t.Errorf("sort = %q, want %q", svc.lastSort, markets.SortVolume24h)
	}
}

func TestListMarkets_DefaultsOnMissingParams(t *testing.T) {
	svc := &fakeMarketService{}
	mux := newMux(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !reflect.DeepEqual(svc.lastOpts, markets.FilterOpts{}) {
		t.Errorf("opts = %+v, want zero value", svc.lastOpts)
	}
	if svc.lastSort != markets.SortOption("") {
		t.Errorf("sort = %q, want empty", svc.lastSort)
	}
}

func TestListMarkets_UpstreamFailure(t *testing.T) {
	svc := &fakeMarketService{err: errors.New("gamma down")}
	mux := newMux(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestGetMarket(t *testing.T) {
	svc := &fakeMarketService{row: service.MarketRow{
		Market:    domain.Market{ID: "m1", Question: "Q1"},
		HoursLeft: 12.5,
	}}
	mux := newMux(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/markets/m1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var row service.MarketRow
	if err := json.Unmarshal(rec.Body.Bytes(), &row); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if row.ID != "m1" || row.HoursLeft != 12.5 {
		t.Errorf("row = %+v", row)
	}
}

func TestGetMarket_NotFound(t *testing.T) {
	svc := &fakeMarketService{err: domain.ErrNotFound}
	mux := newMux(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/markets/nope", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListCategories(t *testing.T) {
	svc := &fakeMarketService{categories: []string{"Crypto", "Politics"}}
	mux := newMux(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !reflect.DeepEqual(body.Categories, []string{"Crypto", "Politics"}) {
		t.Errorf("categories = %v", body.Categories)
	}
}
