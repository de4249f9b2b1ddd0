// Package feed implements the client for the remote price service.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bobmcallan/vire-track/internal/models"
)

const wireDateFormat = "2006-01-02"

// Client communicates with the price feed REST API. Quote, history and
// sync-state endpoints follow the feed's envelope convention:
// { status: "ok", data: ... }.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new client targeting the given feed URL.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// GetQuote fetches the current price for a symbol.
// GET /api/quote/{symbol} -> { status: "ok", data: Quote }
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	var data struct {
		Symbol        string  `json:"symbol"`
		Price         float64 `json:"price"`
		Name          string  `json:"name"`
		MarketOpen    bool    `json:"market_open"`
		PreviousClose float64 `json:"previous_close"`
	}
	if err := c.get(ctx, "/api/quote/"+url.PathEscape(symbol), nil, &data); err != nil {
		return nil, err
	}

	return &models.Quote{
		Symbol:        symbol,
		Price:         data.Price,
		Name:          data.Name,
		MarketOpen:    data.MarketOpen,
		PreviousClose: data.PreviousClose,
	}, nil
}

// GetHistory fetches daily closes from the given date onward.
// GET /api/eod/{symbol}?from=YYYY-MM-DD -> { status: "ok", data: { prices, limited } }
// An empty price list means no new data since from, not an error.
func (c *Client) GetHistory(ctx context.Context, symbol string, from time.Time) ([]models.PricePoint, error) {
	var data struct {
		Prices []struct {
			Date  string  `json:"date"`
			Close float64 `json:"close"`
		} `json:"prices"`
		Limited bool `json:"limited"`
	}
	query := url.Values{"from": {from.Format(wireDateFormat)}}
	if err := c.get(ctx, "/api/eod/"+url.PathEscape(symbol), query, &data); err != nil {
		return nil, err
	}

	points := make([]models.PricePoint, 0, len(data.Prices))
	for _, p := range data.Prices {
		date, err := time.ParseInLocation(wireDateFormat, p.Date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("failed to parse price date %q for %s: %w", p.Date, symbol, err)
		}
		points = append(points, models.PricePoint{Date: date, Close: p.Close})
	}
	return points, nil
}

// GetSyncState fetches the feed's last-synced date per symbol.
// GET /api/sync-state?symbols=A,B -> { status: "ok", data: { "A": "YYYY-MM-DD" } }
// Symbols absent from the response are unknown to the feed.
func (c *Client) GetSyncState(ctx context.Context, symbols []string) (map[string]time.Time, error) {
	var data map[string]string
	query := url.Values{"symbols": {strings.Join(symbols, ",")}}
	if err := c.get(ctx, "/api/sync-state", query, &data); err != nil {
		return nil, err
	}

	state := make(map[string]time.Time, len(data))
	for symbol, raw := range data {
		date, err := time.ParseInLocation(wireDateFormat, raw, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sync date %q for %s: %w", raw, symbol, err)
		}
		state[symbol] = date
	}
	return state, nil
}

// get issues a GET request and decodes the response envelope into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	if c.apiKey != "" {
		query.Set("api_token", c.apiKey)
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach price feed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to decode
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", models.ErrThrottled, path)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", models.ErrNotFound, path)
	default:
		return fmt.Errorf("feed returned %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Status != "ok" {
		return fmt.Errorf("feed returned status %q", result.Status)
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}
