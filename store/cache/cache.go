/*
Package cache provides a read-through cache in front of rebate and product stores.

PURPOSE:
  Rebate and product definitions change rarely but are read on every
  calculation. Store keeps copies in a github.com/patrickmn/go-cache instance
  and falls through to the backend on a miss.

CACHING RULES:
  - Only successful lookups are cached. Not-found and failures always reach
    the backend, so a record created later is seen immediately.
  - Calculation results are never cached; StoreCalculationResult writes through.
  - Writers invalidate by key (InvalidateRebate, InvalidateProduct) or Flush.

USAGE:
  db, _ := sqlite.New(path)
  cached := cache.New(db, 5*time.Minute)
  svc := rebate.NewService(cached, cached, selector)
*/
package cache

import (
	"context"
	"time"

	goCache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/warp/rebate-engine/rebate"
)

// DefaultExpiration is the default lifetime of a cached record.
const DefaultExpiration = 5 * time.Minute

// DefaultCleanupInterval is how often expired items are removed.
const DefaultCleanupInterval = 10 * time.Minute

// Key prefixes per record kind.
const (
	PrefixRebate  = "rebate:v1:"
	PrefixProduct = "product:v1:"
)

// Backend is the store being cached.
type Backend interface {
	rebate.RebateStore
	rebate.ProductStore
}

// Store is a read-through cache over a Backend.
type Store struct {
	backend Backend
	cache   *goCache.Cache
}

// New wraps backend. A non-positive ttl selects DefaultExpiration.
func New(backend Backend, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultExpiration
	}
	return &Store{
		backend: backend,
		cache:   goCache.New(ttl, DefaultCleanupInterval),
	}
}

// GetRebate returns a cached copy or loads it from the backend.
func (s *Store) GetRebate(ctx context.Context, identifier string) (*rebate.Rebate, error) {
	key := PrefixRebate + identifier
	if v, ok := s.cache.Get(key); ok {
		r := v.(rebate.Rebate)
		return &r, nil
	}

	r, err := s.backend.GetRebate(ctx, identifier)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, *r)
	return r, nil
}

// GetProduct returns a cached copy or loads it from the backend.
func (s *Store) GetProduct(ctx context.Context, identifier string) (*rebate.Product, error) {
	key := PrefixProduct + identifier
	if v, ok := s.cache.Get(key); ok {
		p := v.(rebate.Product)
		return &p, nil
	}

	p, err := s.backend.GetProduct(ctx, identifier)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, *p)
	return p, nil
}

// StoreCalculationResult writes through to the backend.
func (s *Store) StoreCalculationResult(ctx context.Context, r rebate.Rebate, amount decimal.Decimal) error {
	return s.backend.StoreCalculationResult(ctx, r, amount)
}

// InvalidateRebate drops a cached rebate.
func (s *Store) InvalidateRebate(identifier string) {
	s.cache.Delete(PrefixRebate + identifier)
}

// InvalidateProduct drops a cached product.
func (s *Store) InvalidateProduct(identifier string) {
	s.cache.Delete(PrefixProduct + identifier)
}

// Flush drops every cached record.
func (s *Store) Flush() {
	s.cache.Flush()
}

// Len reports the number of cached records, expired ones included until cleanup.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

var (
	_ rebate.RebateStore  = (*Store)(nil)
	_ rebate.ProductStore = (*Store)(nil)
)
