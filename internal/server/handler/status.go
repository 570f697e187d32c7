package handler

import (
	"log/slog"
	"net/http"
)

// StatusHandler serves cache status metadata so the dashboard can show a
// "data may be outdated" indicator next to the table.
type StatusHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewStatusHandler creates a StatusHandler over the market service.
func NewStatusHandler(markets MarketService, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{markets: markets, logger: logger}
}

// GetStatus responds with the snapshot's fetch time, age, TTL, stale flag,
// and market count.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.markets.Status(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: status failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to load status")
		return
	}

	writeJSON(w, http.StatusOK, status)
}
