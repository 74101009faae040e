// Package pricefeed fetches token market data from public price APIs and
// caches the latest snapshot.
package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Snapshot is a source-agnostic view of a token's market.
type Snapshot struct {
	Source         string    `json:"source"`
	Symbol         string    `json:"symbol,omitempty"`
	PriceUSD       float64   `json:"price_usd"`
	Volume24hUSD   float64   `json:"volume_24h_usd"`
	MarketCapUSD   float64   `json:"market_cap_usd,omitempty"`
	LiquidityUSD   float64   `json:"liquidity_usd,omitempty"`
	Change24hPct   float64   `json:"change_24h_pct"`
	UpdatedAt      time.Time `json:"updated_at"`
	FetchedAt      time.Time `json:"fetched_at"`
	FallbackReason string    `json:"fallback_reason,omitempty"`
}

// Provider is any price data source.
type Provider interface {
	Name() string
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// ErrNoData is returned when a source answered but had nothing for the token.
var ErrNoData = errors.New("no market data for token")

// statusError is a non-2xx answer from an upstream API.
type statusError struct {
	Provider string
	Status   int
	Body     string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Provider, e.Status, e.Body)
}
