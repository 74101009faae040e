package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

var _ Provider = (*CoinGecko)(nil)

type CoinGeckoConfig struct {
	// BaseURL defaults to the public v3 API.
	BaseURL string
	// APIKey is an optional demo key sent as x-cg-demo-api-key.
	APIKey string
	// CoinID is the CoinGecko id of the tracked token (e.g. "solana").
	CoinID          string
	Timeout         time.Duration
	RateLimitPerMin int
	HTTPClient      *http.Client
}

type CoinGecko struct {
	config     CoinGeckoConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewCoinGecko(config CoinGeckoConfig) (*CoinGecko, error) {
	if config.CoinID == "" {
		return nil, errors.New("coin id is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RateLimitPerMin == 0 {
		config.RateLimitPerMin = 25
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	rps := float64(config.RateLimitPerMin) / 60.0
	return &CoinGecko{
		config:     config,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

func (c *CoinGecko) Name() string {
	return "coingecko"
}

// coinMarket is one element of the /coins/markets response.
type coinMarket struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	CurrentPrice             float64 `json:"current_price"`
	MarketCap                float64 `json:"market_cap"`
	TotalVolume              float64 `json:"total_volume"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
	LastUpdated              string  `json:"last_updated"`
}

// Snapshot reads /coins/markets for the configured coin.
func (c *CoinGecko) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{
		"vs_currency": {"usd"},
		"ids":         {c.config.CoinID},
	}
	endpoint := fmt.Sprintf("%s/coins/markets?%s", c.config.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coingecko request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{Provider: c.Name(), Status: resp.StatusCode, Body: string(body)}
	}

	var markets []coinMarket
	if err := json.NewDecoder(resp.Body).Decode(&markets); err != nil {
		return nil, fmt.Errorf("parsing coingecko response: %w", err)
	}
	if len(markets) == 0 {
		return nil, ErrNoData
	}

	m := markets[0]
	updated, err := time.Parse(time.RFC3339, m.LastUpdated)
	if err != nil {
		updated = time.Now().UTC()
	}
	return &Snapshot{
		Source:       c.Name(),
		Symbol:       m.Symbol,
		PriceUSD:     m.CurrentPrice,
		Volume24hUSD: m.TotalVolume,
		MarketCapUSD: m.MarketCap,
		Change24hPct: m.PriceChangePercentage24h,
		UpdatedAt:    updated,
		FetchedAt:    time.Now().UTC(),
	}, nil
}
