package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/polyview/polyview/internal/domain"
	"github.com/polyview/polyview/internal/markets"
	"github.com/polyview/polyview/internal/service"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type MarketService interface {
	List(ctx context.Context, opts markets.FilterOpts, sortBy markets.SortOption) (service.Listing, error)
	Get(ctx context.Context, id string) (service.MarketRow, error)
	Categories(ctx context.Context) ([]string, error)
	Status(ctx context.Context) (service.Status, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

// ListMarkets returns the filtered, sorted market listing.
// GET /api/markets?search=&categories=&hide_sports=&min_probability=&min_hours=&min_open_interest=&sort=
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	listing, err := h.markets.List(r.Context(), parseFilterOpts(r), parseSortOption(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list markets failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to load markets")
		return
	}

	writeJSON(w, http.StatusOK, listing)
}

// GetMarket returns a single market from the current listing by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	row, err := h.markets.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "market not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get market failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to load market")
		return
	}

	writeJSON(w, http.StatusOK, row)
}

// ListCategories returns the distinct categories in the current listing.
// GET /api/categories
func (h *MarketHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.markets.Categories(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list categories failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to load categories")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}
