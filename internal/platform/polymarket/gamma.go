// Package polymarket implements the REST client for the Polymarket Gamma API,
// which provides market discovery and listing metadata.
package polymarket

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/polyview/polyview/internal/domain"
)

// defaultTimeout bounds a single Gamma request so a hung upstream cannot
// block callers indefinitely.
const defaultTimeout = 10 * time.Second

// GammaClient is the read-only client for the Gamma markets endpoint.
type GammaClient struct {
	baseURL    string
	limit      int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGammaClient creates a Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
// limit is the page size requested from /markets. timeout bounds each
// request; zero means the default of 10s.
func NewGammaClient(baseURL string, limit int, timeout time.Duration, logger *slog.Logger) *GammaClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GammaClient{
		baseURL: baseURL,
		limit:   limit,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With(slog.String("component", "gamma")),
	}
}

// FetchMarkets returns the current non-archived market listing. Individual
// records missing required fields are skipped and counted; a response with
// zero valid records is a valid empty result, not an error.
func (g *GammaClient) FetchMarkets(ctx context.Context) ([]domain.Market, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(g.limit))
	params.Set("archived", "false")

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get markets: %w", err)
	}

	apiMarkets, err := decodeMarketList(body)
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}

	markets := make([]domain.Market, 0, len(apiMarkets))
	skipped := 0
	for i := range apiMarkets {
		dm, err := apiMarkets[i].ToDomainMarket()
		if err != nil {
			skipped++
			continue
		}
		markets = append(markets, dm)
	}

	if skipped > 0 {
		g.logger.WarnContext(ctx, "skipped malformed market records",
			slog.Int("skipped", skipped),
			slog.Int("kept", len(markets)),
		)
	}

	return markets, nil
}

// doGet sends an unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx responses to sentinel errors where a caller
// might branch on them, and a generic error otherwise.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

// Compile-time interface check.
var _ domain.MarketSource = (*GammaClient)(nil)
