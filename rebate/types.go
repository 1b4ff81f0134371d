/*
Package rebate provides the rebate calculation engine.

PURPOSE:
  Computes a monetary rebate for a rebate identifier, a product identifier
  and a purchase volume. One of several interchangeable calculation rules
  (incentive types) is selected for the rebate/product pair and applied.

KEY CONCEPTS IN THIS FILE (types.go):
  - IncentiveType: Closed set of calculation rules
  - SupportedIncentives: Bitmask of incentive types a product accepts
  - Rebate / Product: Records fetched from the stores for one calculation
  - CalculateRebateRequest / CalculateRebateResult: Orchestrator input/output
  - Calculation: Persisted result of a successful calculation

DESIGN PRINCIPLES:
  1. Precision: All money and volume math uses decimal.Decimal
  2. Closed set: Incentive types are a fixed enumeration, dispatched by switch
  3. Explicit outcomes: Results carry a ReasonCode, not just a boolean

USAGE:
  svc := rebate.NewService(rebates, products, rebate.NewKindSelector(rebate.DefaultRegistry()))
  result, err := svc.Calculate(ctx, rebate.CalculateRebateRequest{
      RebateIdentifier:  "rebate1",
      ProductIdentifier: "product1",
      Volume:            decimal.NewFromInt(10),
  })

SEE ALSO:
  - calculators.go: Incentive rule set
  - selector.go: Rule selection policies
  - service.go: Calculation orchestrator
  - store.go: Store interfaces
*/
package rebate

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// =============================================================================
// INCENTIVE TYPE - Which calculation rule applies
// =============================================================================

type IncentiveType string

const (
	FixedCashAmount IncentiveType = "fixed_cash_amount"
	FixedRateRebate IncentiveType = "fixed_rate_rebate"
	AmountPerUom    IncentiveType = "amount_per_uom"
)

// AllIncentives lists the closed set of incentive types in flag order.
var AllIncentives = []IncentiveType{FixedRateRebate, AmountPerUom, FixedCashAmount}

// IsValid reports whether t is one of the known incentive types.
func (t IncentiveType) IsValid() bool {
	return lo.Contains(AllIncentives, t)
}

// Flag returns the SupportedIncentives bit for t, or 0 for unknown types.
func (t IncentiveType) Flag() SupportedIncentives {
	switch t {
	case FixedRateRebate:
		return SupportsFixedRateRebate
	case AmountPerUom:
		return SupportsAmountPerUom
	case FixedCashAmount:
		return SupportsFixedCashAmount
	}
	return 0
}

// ParseIncentiveType accepts canonical names ("fixed_cash_amount") as well as
// the legacy catalog spellings ("FixedCashAmount", "FixedRate").
func ParseIncentiveType(s string) (IncentiveType, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	switch normalized {
	case "fixedcashamount":
		return FixedCashAmount, nil
	case "fixedraterebate", "fixedrate":
		return FixedRateRebate, nil
	case "amountperuom":
		return AmountPerUom, nil
	}
	return "", errors.Wrapf(ErrUnknownIncentive, "%q", s)
}

// =============================================================================
// SUPPORTED INCENTIVES - Bitmask carried by products
// =============================================================================

// SupportedIncentives is a set of incentive types. Bit values are stable and
// match the legacy catalog encoding.
type SupportedIncentives uint8

const (
	SupportsFixedRateRebate SupportedIncentives = 1 << iota // 1
	SupportsAmountPerUom                                    // 2
	SupportsFixedCashAmount                                 // 4
)

// SupportsAll is the set of every known incentive type.
const SupportsAll = SupportsFixedRateRebate | SupportsAmountPerUom | SupportsFixedCashAmount

// NewSupportedIncentives builds a set from incentive types. Unknown types are ignored.
func NewSupportedIncentives(kinds ...IncentiveType) SupportedIncentives {
	var s SupportedIncentives
	return s.With(kinds...)
}

// Has reports whether the set contains t.
func (s SupportedIncentives) Has(t IncentiveType) bool {
	flag := t.Flag()
	return flag != 0 && s&flag == flag
}

// With returns a copy of the set with kinds added.
func (s SupportedIncentives) With(kinds ...IncentiveType) SupportedIncentives {
	for _, k := range kinds {
		s |= k.Flag()
	}
	return s
}

// Kinds returns the members of the set in flag order.
func (s SupportedIncentives) Kinds() []IncentiveType {
	return lo.Filter(AllIncentives, func(t IncentiveType, _ int) bool {
		return s.Has(t)
	})
}

// =============================================================================
// RECORDS
// =============================================================================

// Rebate is a discount/payment record. Which of Amount and Percentage is read
// depends on Incentive: FixedCashAmount and AmountPerUom read Amount,
// FixedRateRebate reads Percentage (a fraction, 0.10 == 10%).
type Rebate struct {
	Identifier string
	Incentive  IncentiveType
	Amount     decimal.Decimal
	Percentage decimal.Decimal
}

// Product is a catalog item. Uom is informational only.
type Product struct {
	Identifier          string
	Price               decimal.Decimal
	Uom                 string
	SupportedIncentives SupportedIncentives
}

// CalculateRebateRequest is the input of one calculation. Zero or negative
// volume makes volume-dependent rules inapplicable.
type CalculateRebateRequest struct {
	RebateIdentifier  string
	ProductIdentifier string
	Volume            decimal.Decimal
}

// Validate checks the request preconditions.
func (r CalculateRebateRequest) Validate() error {
	if strings.TrimSpace(r.RebateIdentifier) == "" {
		return errors.WithHint(errors.Wrap(ErrInvalidArgument, "rebate identifier is required"),
			"provide the identifier of an existing rebate")
	}
	if strings.TrimSpace(r.ProductIdentifier) == "" {
		return errors.WithHint(errors.Wrap(ErrInvalidArgument, "product identifier is required"),
			"provide the identifier of an existing product")
	}
	return nil
}

// =============================================================================
// RESULT
// =============================================================================

// ReasonCode explains the outcome of a calculation.
type ReasonCode string

const (
	ReasonCalculated      ReasonCode = "calculated"
	ReasonRebateNotFound  ReasonCode = "rebate_not_found"
	ReasonProductNotFound ReasonCode = "product_not_found"
	ReasonNoCalculator    ReasonCode = "no_calculator"
	ReasonSelectionFailed ReasonCode = "selection_failed"
	ReasonNotApplicable   ReasonCode = "not_applicable"
	ReasonStoreFailure    ReasonCode = "store_failure"
)

// CalculateRebateResult is the outcome of Service.Calculate. Amount and
// Incentive are set only when Success is true.
type CalculateRebateResult struct {
	Success   bool
	Reason    ReasonCode
	Incentive IncentiveType
	Amount    decimal.Decimal
}

// Calculation is a stored calculation result, keyed by rebate identifier.
type Calculation struct {
	ID               string
	RebateIdentifier string
	Incentive        IncentiveType
	Amount           decimal.Decimal
	CreatedAt        time.Time
}
