/*
store.go - Collaborator interfaces consumed by the orchestrator

KEY INTERFACES:
  RebateStore:      Fetch rebates, persist calculation results
  ProductStore:     Fetch products
  CalculationStore: Read back persisted calculations (API, audit)
  Publisher:        Emit an event after a calculation is persisted

NOT FOUND:
  Stores return ErrRebateNotFound / ErrProductNotFound for unknown
  identifiers instead of synthesizing default records.

IMPLEMENTATIONS:
  - rebate/store/memory.go: In-memory, for tests and the CLI
  - store/sqlite/sqlite.go: SQLite
  - store/cache/cache.go: Read-through cache in front of another store
*/
package rebate

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RebateStore fetches rebates and stores calculation results.
type RebateStore interface {
	// GetRebate returns ErrRebateNotFound when identifier is unknown.
	GetRebate(ctx context.Context, identifier string) (*Rebate, error)

	// StoreCalculationResult persists amount against rebate. Not idempotent;
	// the orchestrator calls it at most once per successful calculation.
	StoreCalculationResult(ctx context.Context, rebate Rebate, amount decimal.Decimal) error
}

// ProductStore fetches products.
type ProductStore interface {
	// GetProduct returns ErrProductNotFound when identifier is unknown.
	GetProduct(ctx context.Context, identifier string) (*Product, error)
}

// CalculationStore lists stored calculations for a rebate, oldest first.
type CalculationStore interface {
	ListCalculations(ctx context.Context, rebateIdentifier string) ([]Calculation, error)
}

// =============================================================================
// EVENTS
// =============================================================================

// CalculationEvent is published after a result has been persisted.
type CalculationEvent struct {
	RebateIdentifier  string          `json:"rebate_identifier"`
	ProductIdentifier string          `json:"product_identifier"`
	Incentive         IncentiveType   `json:"incentive"`
	Volume            decimal.Decimal `json:"volume"`
	Amount            decimal.Decimal `json:"amount"`
	CalculatedAt      time.Time       `json:"calculated_at"`
}

// Publisher emits calculation events.
type Publisher interface {
	Publish(ctx context.Context, event CalculationEvent) error
}
