/*
calculators.go - Incentive rule set

PURPOSE:
  One calculator per incentive type. Each calculator answers two questions:
  is it applicable to this rebate/product/request, and what amount does it
  produce.

NARROW CONTRACTS:
  Each rule is first written against the narrowest inputs it actually reads:

    FixedCashAmountCalculator  IsApplicable(rebate, product)
                               CalculateAmount(rebate)
    FixedRateRebateCalculator  IsApplicable(rebate, product, request)
                               CalculateAmount(rebate, product, request)
    AmountPerUomCalculator     IsApplicable(rebate, product, request)
                               CalculateAmount(rebate, request)

  Adapters lift them to the uniform Calculator interface used by selectors
  and the orchestrator. Adapters reject nil inputs the rule reads and
  document the ones it ignores.

FORMULAS:
  FixedCashAmount:  amount                         (price and volume ignored)
  FixedRateRebate:  price × percentage × volume
  AmountPerUom:     amount × volume                (price ignored)

  Results keep full decimal precision. Rounding is left to the caller.

CALLING CalculateAmount WITHOUT IsApplicable:
  Allowed. The result may be zero or negative for data that would not have
  been applicable, but well-formed input never produces an error.
*/
package rebate

import (
	"github.com/shopspring/decimal"
)

// Calculator is the uniform contract for every incentive type.
type Calculator interface {
	// Incentive returns the incentive type this calculator implements.
	Incentive() IncentiveType

	// IsApplicable reports whether the rule may be applied.
	IsApplicable(rebate *Rebate, product *Product, req *CalculateRebateRequest) (bool, error)

	// CalculateAmount computes the rebate amount.
	CalculateAmount(rebate *Rebate, product *Product, req *CalculateRebateRequest) (decimal.Decimal, error)
}

// NewCalculator returns the calculator for kind.
func NewCalculator(kind IncentiveType) (Calculator, error) {
	switch kind {
	case FixedCashAmount:
		return fixedCashAmountAdapter{}, nil
	case FixedRateRebate:
		return fixedRateRebateAdapter{}, nil
	case AmountPerUom:
		return amountPerUomAdapter{}, nil
	}
	return nil, &NoCalculatorError{Incentive: kind}
}

// =============================================================================
// FIXED CASH AMOUNT
// =============================================================================

// FixedCashAmountCalculator pays the rebate amount as a flat sum.
type FixedCashAmountCalculator struct{}

func (FixedCashAmountCalculator) IsApplicable(rebate Rebate, product Product) bool {
	return product.SupportedIncentives.Has(FixedCashAmount) &&
		rebate.Amount.IsPositive()
}

func (FixedCashAmountCalculator) CalculateAmount(rebate Rebate) decimal.Decimal {
	return rebate.Amount
}

// fixedCashAmountAdapter ignores the request entirely, and ignores the
// product when computing the amount.
type fixedCashAmountAdapter struct {
	calc FixedCashAmountCalculator
}

func (fixedCashAmountAdapter) Incentive() IncentiveType { return FixedCashAmount }

func (a fixedCashAmountAdapter) IsApplicable(rebate *Rebate, product *Product, _ *CalculateRebateRequest) (bool, error) {
	if rebate == nil {
		return false, invalidArgument("rebate")
	}
	if product == nil {
		return false, invalidArgument("product")
	}
	return a.calc.IsApplicable(*rebate, *product), nil
}

func (a fixedCashAmountAdapter) CalculateAmount(rebate *Rebate, product *Product, _ *CalculateRebateRequest) (decimal.Decimal, error) {
	if rebate == nil {
		return decimal.Zero, invalidArgument("rebate")
	}
	if product == nil {
		return decimal.Zero, invalidArgument("product")
	}
	return a.calc.CalculateAmount(*rebate), nil
}

// =============================================================================
// FIXED RATE REBATE
// =============================================================================

// FixedRateRebateCalculator pays a percentage of the product price per unit.
type FixedRateRebateCalculator struct{}

func (FixedRateRebateCalculator) IsApplicable(rebate Rebate, product Product, req CalculateRebateRequest) bool {
	return product.SupportedIncentives.Has(FixedRateRebate) &&
		rebate.Percentage.IsPositive() &&
		product.Price.IsPositive() &&
		req.Volume.IsPositive()
}

func (FixedRateRebateCalculator) CalculateAmount(rebate Rebate, product Product, req CalculateRebateRequest) decimal.Decimal {
	return product.Price.Mul(rebate.Percentage).Mul(req.Volume)
}

// fixedRateRebateAdapter reads all three inputs.
type fixedRateRebateAdapter struct {
	calc FixedRateRebateCalculator
}

func (fixedRateRebateAdapter) Incentive() IncentiveType { return FixedRateRebate }

func (a fixedRateRebateAdapter) IsApplicable(rebate *Rebate, product *Product, req *CalculateRebateRequest) (bool, error) {
	if err := requireAll(rebate, product, req); err != nil {
		return false, err
	}
	return a.calc.IsApplicable(*rebate, *product, *req), nil
}

func (a fixedRateRebateAdapter) CalculateAmount(rebate *Rebate, product *Product, req *CalculateRebateRequest) (decimal.Decimal, error) {
	if err := requireAll(rebate, product, req); err != nil {
		return decimal.Zero, err
	}
	return a.calc.CalculateAmount(*rebate, *product, *req), nil
}

// =============================================================================
// AMOUNT PER UNIT OF MEASURE
// =============================================================================

// AmountPerUomCalculator pays the rebate amount for every unit purchased.
type AmountPerUomCalculator struct{}

func (AmountPerUomCalculator) IsApplicable(rebate Rebate, product Product, req CalculateRebateRequest) bool {
	return product.SupportedIncentives.Has(AmountPerUom) &&
		rebate.Amount.IsPositive() &&
		req.Volume.IsPositive()
}

func (AmountPerUomCalculator) CalculateAmount(rebate Rebate, req CalculateRebateRequest) decimal.Decimal {
	return rebate.Amount.Mul(req.Volume)
}

// amountPerUomAdapter ignores the product when computing the amount but
// still requires one.
type amountPerUomAdapter struct {
	calc AmountPerUomCalculator
}

func (amountPerUomAdapter) Incentive() IncentiveType { return AmountPerUom }

func (a amountPerUomAdapter) IsApplicable(rebate *Rebate, product *Product, req *CalculateRebateRequest) (bool, error) {
	if err := requireAll(rebate, product, req); err != nil {
		return false, err
	}
	return a.calc.IsApplicable(*rebate, *product, *req), nil
}

func (a amountPerUomAdapter) CalculateAmount(rebate *Rebate, product *Product, req *CalculateRebateRequest) (decimal.Decimal, error) {
	if err := requireAll(rebate, product, req); err != nil {
		return decimal.Zero, err
	}
	return a.calc.CalculateAmount(*rebate, *req), nil
}

func requireAll(rebate *Rebate, product *Product, req *CalculateRebateRequest) error {
	switch {
	case rebate == nil:
		return invalidArgument("rebate")
	case product == nil:
		return invalidArgument("product")
	case req == nil:
		return invalidArgument("request")
	}
	return nil
}
