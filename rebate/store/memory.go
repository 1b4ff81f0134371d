// Package store provides in-memory rebate.RebateStore and rebate.ProductStore implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/warp/rebate-engine/rebate"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	rebates      map[string]rebate.Rebate
	products     map[string]rebate.Product
	calculations []rebate.Calculation
	now          func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		rebates:  make(map[string]rebate.Rebate),
		products: make(map[string]rebate.Product),
		now:      time.Now,
	}
}

// SaveRebate inserts or replaces a rebate.
func (m *Memory) SaveRebate(_ context.Context, r rebate.Rebate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebates[r.Identifier] = r
	return nil
}

// SaveProduct inserts or replaces a product.
func (m *Memory) SaveProduct(_ context.Context, p rebate.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.Identifier] = p
	return nil
}

func (m *Memory) GetRebate(_ context.Context, identifier string) (*rebate.Rebate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rebates[identifier]
	if !ok {
		return nil, rebate.ErrRebateNotFound
	}
	return &r, nil
}

func (m *Memory) GetProduct(_ context.Context, identifier string) (*rebate.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[identifier]
	if !ok {
		return nil, rebate.ErrProductNotFound
	}
	return &p, nil
}

// StoreCalculationResult appends a calculation. Calls are never deduplicated.
func (m *Memory) StoreCalculationResult(_ context.Context, r rebate.Rebate, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calculations = append(m.calculations, rebate.Calculation{
		ID:               fmt.Sprintf("calc-%d", len(m.calculations)+1),
		RebateIdentifier: r.Identifier,
		Incentive:        r.Incentive,
		Amount:           amount,
		CreatedAt:        m.now().UTC(),
	})
	return nil
}

func (m *Memory) ListCalculations(_ context.Context, rebateIdentifier string) ([]rebate.Calculation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []rebate.Calculation
	for _, c := range m.calculations {
		if c.RebateIdentifier == rebateIdentifier {
			result = append(result, c)
		}
	}
	return result, nil
}

// ListRebates returns all rebates ordered by identifier.
func (m *Memory) ListRebates(_ context.Context) ([]rebate.Rebate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rebates := lo.Values(m.rebates)
	sort.Slice(rebates, func(i, j int) bool { return rebates[i].Identifier < rebates[j].Identifier })
	return rebates, nil
}

// ListProducts returns all products ordered by identifier.
func (m *Memory) ListProducts(_ context.Context) ([]rebate.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	products := lo.Values(m.products)
	sort.Slice(products, func(i, j int) bool { return products[i].Identifier < products[j].Identifier })
	return products, nil
}

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebates = make(map[string]rebate.Rebate)
	m.products = make(map[string]rebate.Product)
	m.calculations = nil
	return nil
}

// Calculations returns every stored calculation in insertion order.
func (m *Memory) Calculations() []rebate.Calculation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]rebate.Calculation, len(m.calculations))
	copy(result, m.calculations)
	return result
}

var (
	_ rebate.RebateStore      = (*Memory)(nil)
	_ rebate.ProductStore     = (*Memory)(nil)
	_ rebate.CalculationStore = (*Memory)(nil)
)
