package pricefeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCoinGecko_Snapshot(t *testing.T) {
	var gotKey, gotIDs, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotIDs = r.URL.Query().Get("ids")
		gotKey = r.Header.Get("x-cg-demo-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"solana","symbol":"sol","current_price":142.5,"market_cap":65000000000,
			"total_volume":2100000000,"price_change_percentage_24h":-3.2,"last_updated":"2026-01-02T03:04:05.000Z"}]`))
	}))
	defer srv.Close()

	cg, err := NewCoinGecko(CoinGeckoConfig{BaseURL: srv.URL, APIKey: "demo", CoinID: "solana", RateLimitPerMin: 6000})
	if err != nil {
		t.Fatalf("NewCoinGecko: %v", err)
	}

	snap, err := cg.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if gotPath != "/coins/markets" || gotIDs != "solana" || gotKey != "demo" {
		t.Errorf("request path=%q ids=%q key=%q", gotPath, gotIDs, gotKey)
	}
	if snap.Source != "coingecko" || snap.PriceUSD != 142.5 || snap.Volume24hUSD != 2100000000 || snap.Change24hPct != -3.2 {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if snap.UpdatedAt.Year() != 2026 {
		t.Errorf("UpdatedAt = %v", snap.UpdatedAt)
	}
}

func TestCoinGecko_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"status":{"error_code":429}}`, func(err error) bool {
			var se *statusError
			return errors.As(err, &se) && se.Status == http.StatusTooManyRequests
		}},
		{"empty list", http.StatusOK, `[]`, func(err error) bool { return errors.Is(err, ErrNoData) }},
		{"bad json", http.StatusOK, `{`, func(err error) bool { return err != nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			cg, err := NewCoinGecko(CoinGeckoConfig{BaseURL: srv.URL, CoinID: "solana", RateLimitPerMin: 6000})
			if err != nil {
				t.Fatalf("NewCoinGecko: %v", err)
			}
			_, err = cg.Snapshot(context.Background())
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestNewCoinGecko_RequiresCoinID(t *testing.T) {
	if _, err := NewCoinGecko(CoinGeckoConfig{}); err == nil {
		t.Fatal("expected error for missing coin id")
	}
}

func TestDexScreener_PicksMostLiquidPair(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"pairs":[
			{"chainId":"solana","baseToken":{"symbol":"RAID"},"priceUsd":"0.0100","volume":{"h24":10},"priceChange":{"h24":1},"liquidity":{"usd":500}},
			{"chainId":"solana","baseToken":{"symbol":"RAID"},"priceUsd":"0.0123","volume":{"h24":9000},"priceChange":{"h24":4.5},"liquidity":{"usd":80000}},
			{"chainId":"solana","baseToken":{"symbol":"RAID"},"priceUsd":"0.0200","volume":{"h24":1}}
		]}`))
	}))
	defer srv.Close()

	dex, err := NewDexScreener(DexScreenerConfig{BaseURL: srv.URL, TokenAddress: "Mint111"})
	if err != nil {
		t.Fatalf("NewDexScreener: %v", err)
	}
	snap, err := dex.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if gotPath != "/latest/dex/tokens/Mint111" {
		t.Errorf("path = %q", gotPath)
	}
	if snap.PriceUSD != 0.0123 || snap.Volume24hUSD != 9000 || snap.LiquidityUSD != 80000 || snap.Symbol != "RAID" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
}

func TestDexScreener_NoPairs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pairs":null}`))
	}))
	defer srv.Close()

	dex, _ := NewDexScreener(DexScreenerConfig{BaseURL: srv.URL, TokenAddress: "Mint111"})
	if _, err := dex.Snapshot(context.Background()); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if snap, err := c.Get(ctx, "token"); snap != nil || err != nil {
		t.Fatalf("expected miss, got %v %v", snap, err)
	}
	if err := c.Set(ctx, "token", &Snapshot{Source: "coingecko", PriceUSD: 1.5}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	snap, _ := c.Get(ctx, "token")
	if snap == nil || snap.PriceUSD != 1.5 {
		t.Fatalf("expected hit, got %v", snap)
	}

	now = now.Add(time.Minute)
	if snap, _ := c.Get(ctx, "token"); snap != nil {
		t.Fatalf("expected expiry, got %v", snap)
	}
}
