// Package marketdata supplies reference prices used to sanity-check protective
// levels on incoming orders.
package marketdata

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// PriceSource returns the current reference price for an instrument. ok is
// false when the source has no price for it.
type PriceSource interface {
	ReferencePrice(ctx context.Context, instrument string) (price decimal.Decimal, ok bool, err error)
}

// StaticSource serves prices from memory. Used for seeded prices and tests.
type StaticSource struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

func NewStaticSource(prices map[string]decimal.Decimal) *StaticSource {
	s := &StaticSource{prices: make(map[string]decimal.Decimal, len(prices))}
	for k, v := range prices {
		s.prices[k] = v
	}
	return s
}

func (s *StaticSource) Set(instrument string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[instrument] = price
}

func (s *StaticSource) Delete(instrument string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prices, instrument)
}

func (s *StaticSource) ReferencePrice(_ context.Context, instrument string) (decimal.Decimal, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[instrument]
	return p, ok, nil
}
