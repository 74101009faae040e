package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

var _ Provider = (*DexScreener)(nil)

type DexScreenerConfig struct {
	BaseURL      string
	TokenAddress string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

type DexScreener struct {
	config     DexScreenerConfig
	httpClient *http.Client
}

func NewDexScreener(config DexScreenerConfig) (*DexScreener, error) {
	if config.TokenAddress == "" {
		return nil, errors.New("token address is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.dexscreener.com"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	return &DexScreener{config: config, httpClient: httpClient}, nil
}

func (d *DexScreener) Name() string {
	return "dexscreener"
}

type dexTokensResponse struct {
	Pairs []dexPair `json:"pairs"`
}

type dexPair struct {
	ChainID   string `json:"chainId"`
	DexID     string `json:"dexId"`
	BaseToken struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`
	PriceUSD string `json:"priceUsd"`
	Volume   struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Liquidity *struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	MarketCap float64 `json:"marketCap"`
}

func (p dexPair) liquidityUSD() float64 {
	if p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.USD
}

// Snapshot reads /latest/dex/tokens/{address} and reports the most liquid pair.
func (d *DexScreener) Snapshot(ctx context.Context) (*Snapshot, error) {
	endpoint := fmt.Sprintf("%s/latest/dex/tokens/%s", d.config.BaseURL, d.config.TokenAddress)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dexscreener request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{Provider: d.Name(), Status: resp.StatusCode, Body: string(body)}
	}

	var out dexTokensResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("parsing dexscreener response: %w", err)
	}
	if len(out.Pairs) == 0 {
		return nil, ErrNoData
	}

	best := out.Pairs[0]
	for _, p := range out.Pairs[1:] {
		if p.liquidityUSD() > best.liquidityUSD() {
			best = p
		}
	}

	price, err := strconv.ParseFloat(best.PriceUSD, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing dexscreener price %q: %w", best.PriceUSD, err)
	}

	now := time.Now().UTC()
	return &Snapshot{
		Source:       d.Name(),
		Symbol:       best.BaseToken.Symbol,
		PriceUSD:     price,
		Volume24hUSD: best.Volume.H24,
		MarketCapUSD: best.MarketCap,
		LiquidityUSD: best.liquidityUSD(),
		Change24hPct: best.PriceChange.H24,
		UpdatedAt:    now,
		FetchedAt:    now,
	}, nil
}
