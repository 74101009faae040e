package services

import (
	"context"
	"strings"
	"time"

	"raid-dashboard/logger"
	"raid-dashboard/pricefeed"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const priceCacheKey = "token"

const (
	// DefaultFallbackTTL is how long a default snapshot is served before the
	// request path asks the providers again.
	DefaultFallbackTTL = 15 * time.Second
	// DefaultRequestTimeout bounds a provider round triggered by a request.
	DefaultRequestTimeout = 5 * time.Second
)

// PriceService serves the token's market snapshot: cache first, then each
// provider in order, then a static default.
type PriceService struct {
	Providers []pricefeed.Provider
	Cache     pricefeed.Cache
	TTL       time.Duration
	Default   pricefeed.Snapshot

	FallbackTTL    time.Duration
	RequestTimeout time.Duration

	group singleflight.Group
}

func NewPriceService(cache pricefeed.Cache, ttl time.Duration, fallback pricefeed.Snapshot, providers ...pricefeed.Provider) *PriceService {
	if cache == nil {
		cache = pricefeed.NewMemoryCache()
	}
	fallback.Source = "default"
	return &PriceService{
		Providers:      providers,
		Cache:          cache,
		TTL:            ttl,
		Default:        fallback,
		FallbackTTL:    DefaultFallbackTTL,
		RequestTimeout: DefaultRequestTimeout,
	}
}

// Current serves the cached snapshot. On a miss, concurrent callers share a
// single provider round bounded by RequestTimeout.
func (s *PriceService) Current(ctx context.Context) (*pricefeed.Snapshot, error) {
	if cached := s.cached(ctx); cached != nil {
		return cached, nil
	}

	v, _, _ := s.group.Do(priceCacheKey, func() (interface{}, error) {
		// another caller may have filled the cache while we waited
		if cached := s.cached(ctx); cached != nil {
			return cached, nil
		}
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.RequestTimeout)
		defer cancel()
		return s.refresh(rctx, true), nil
	})
	snap := *v.(*pricefeed.Snapshot)
	return &snap, nil
}

func (s *PriceService) cached(ctx context.Context) *pricefeed.Snapshot {
	snap, err := s.Cache.Get(ctx, priceCacheKey)
	if err != nil {
		logger.Warnf("[PRICES] cache read failed: %v", err)
		return nil
	}
	return snap
}

// Refresh asks the providers in order and caches the first answer. It never
// fails: when every provider fails the default snapshot is returned and the
// cache is left as it was.
func (s *PriceService) Refresh(ctx context.Context) *pricefeed.Snapshot {
	return s.refresh(ctx, false)
}

// refresh with cacheFallback stores the default for FallbackTTL so the next
// requests do not hit failing providers again.
func (s *PriceService) refresh(ctx context.Context, cacheFallback bool) *pricefeed.Snapshot {
	var reasons []string
	for _, p := range s.Providers {
		snap, err := p.Snapshot(ctx)
		if err != nil {
			logger.WithFields(logrus.Fields{"provider": p.Name()}).Warnf("[PRICES] fetch failed: %v", err)
			reasons = append(reasons, p.Name()+": "+err.Error())
			continue
		}
		if err := s.Cache.Set(ctx, priceCacheKey, snap, s.TTL); err != nil {
			logger.Warnf("[PRICES] cache write failed: %v", err)
		}
		return snap
	}

	def := s.Default
	now := time.Now().UTC()
	def.UpdatedAt, def.FetchedAt = now, now
	def.FallbackReason = strings.Join(reasons, "; ")
	if def.FallbackReason == "" {
		def.FallbackReason = "no providers configured"
	}
	if cacheFallback && s.FallbackTTL > 0 {
		// ctx may have expired while the providers timed out
		if err := s.Cache.Set(context.WithoutCancel(ctx), priceCacheKey, &def, s.FallbackTTL); err != nil {
			logger.Warnf("[PRICES] cache write failed: %v", err)
		}
	}
	return &def
}
