package refdata

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"swapstats/internal/cache"
	"swapstats/internal/domain"

	"github.com/shopspring/decimal"
	"gitlab.com/nevasik7/alerting/logger"
)

// Store serves coin config, prices and fiat rates. The cache plane is consulted
// first; the last snapshot this process published backs it up.
type Store struct {
	log   logger.Logger
	plane *cache.Plane
	ttl   time.Duration

	mu      sync.RWMutex
	configs domain.CoinConfigs
	prices  domain.PriceTable
	fiat    map[string]decimal.Decimal

	configsMemo memo[domain.CoinConfigs]
	pricesMemo  memo[domain.PriceTable]
	fiatMemo    memo[map[string]decimal.Decimal]
}

// memo holds the last decoded copy of a cached table, keyed by its raw bytes.
type memo[T any] struct {
	mu  sync.Mutex
	raw []byte
	val T
}

// decode returns the decoded value of raw, reusing the previous result while the bytes are unchanged.
func (m *memo[T]) decode(raw []byte) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.raw != nil && bytes.Equal(m.raw, raw) {
		return m.val, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, err
	}
	m.raw, m.val = raw, v
	return v, nil
}

func readShared[T any](ctx context.Context, s *Store, m *memo[T], key string) (T, bool) {
	var zero T
	b, ok := s.plane.Get(ctx, key)
	if !ok {
		return zero, false
	}
	v, err := m.decode(b)
	if err != nil {
		s.log.Warnf("Failed decode cached key=%s, error=%v", key, err)
		return zero, false
	}
	return v, true
}

func NewStore(log logger.Logger, plane *cache.Plane, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &Store{log: log, plane: plane, ttl: ttl}
}

func (s *Store) CoinConfigs(ctx context.Context) domain.CoinConfigs {
	if v, ok := readShared(ctx, s, &s.configsMemo, cache.KeyCoinConfig); ok {
		return v
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.configs
}

func (s *Store) Prices(ctx context.Context) domain.PriceTable {
	if v, ok := readShared(ctx, s, &s.pricesMemo, cache.KeyPrices); ok {
		return v
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prices
}

func (s *Store) FiatRates(ctx context.Context) map[string]decimal.Decimal {
	if v, ok := readShared(ctx, s, &s.fiatMemo, cache.KeyFiatRates); ok {
		return v
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fiat
}

func (s *Store) putCoinConfigs(ctx context.Context, v domain.CoinConfigs) error {
	s.mu.Lock()
	s.configs = v
	s.mu.Unlock()
	return cache.SetJSON(ctx, s.plane, cache.KeyCoinConfig, v, s.ttl)
}

func (s *Store) putPrices(ctx context.Context, v domain.PriceTable) error {
	s.mu.Lock()
	s.prices = v
	s.mu.Unlock()
	return cache.SetJSON(ctx, s.plane, cache.KeyPrices, v, s.ttl)
}

func (s *Store) putFiat(ctx context.Context, v map[string]decimal.Decimal) error {
	s.mu.Lock()
	s.fiat = v
	s.mu.Unlock()
	return cache.SetJSON(ctx, s.plane, cache.KeyFiatRates, v, s.ttl)
}
