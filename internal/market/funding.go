// Package market serves exchange market data to the dashboard: cached
// funding rates and the latest mark price per symbol.
package market

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"futures-dash/pkg/cache"
	binance "futures-dash/pkg/market/binance"
)

// FundingSource fetches funding data from the exchange.
type FundingSource interface {
	FundingRate(ctx context.Context, symbol string) (binance.FundingRate, error)
}

// FundingStats counts cache effectiveness.
type FundingStats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
}

// FundingService caches funding rates per symbol for a fixed TTL.
type FundingService struct {
	source FundingSource
	cache  *cache.TTLCache[binance.FundingRate]
	log    *zap.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewFundingService(source FundingSource, ttl time.Duration, log *zap.Logger, opts ...cache.Option) *FundingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &FundingService{
		source: source,
		cache:  cache.NewTTLCache[binance.FundingRate](ttl, opts...),
		log:    log,
	}
}

// Get returns the cached rate or fetches a fresh one. Errors are not cached.
func (s *FundingService) Get(ctx context.Context, symbol string) (binance.FundingRate, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if fr, ok := s.cache.Get(key); ok {
		s.hits.Add(1)
		return fr, nil
	}
	s.misses.Add(1)

	fr, err := s.source.FundingRate(ctx, key)
	if err != nil {
		s.log.Warn("fetch funding rate failed", zap.String("symbol", key), zap.Error(err))
		return binance.FundingRate{}, err
	}
	s.cache.Set(key, fr)
	return fr, nil
}

// Invalidate forgets one symbol.
func (s *FundingService) Invalidate(symbol string) {
	s.cache.Invalidate(strings.ToUpper(strings.TrimSpace(symbol)))
}

// InvalidateAll forgets every symbol.
func (s *FundingService) InvalidateAll() {
	s.cache.InvalidateAll()
}

func (s *FundingService) Stats() FundingStats {
	return FundingStats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Entries: s.cache.Len(),
	}
}
