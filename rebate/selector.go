/*
selector.go - Rule selection

PURPOSE:
  Chooses which Calculator applies to a rebate/product pair. Two policies:

    KindSelector        Direct: looks up the incentive type stored on the rebate.
    DeterminedSelector  Asks a Determiner for the incentive type, then looks it up.

  Both fail explicitly (NoCalculatorError) when nothing is registered for the
  resolved type. There is no default calculator.

REGISTRY:
  A Registry maps incentive type -> Calculator. It is built once and never
  mutated, so it can be shared by any number of selectors and goroutines.

DETERMINERS:
  StoredIncentive echoes the rebate's incentive type, which makes
  DeterminedSelector behave like KindSelector. The indirection lets
  determination move to product category or business policy without
  touching the rule set.
*/
package rebate

import (
	"github.com/cockroachdb/errors"
)

// =============================================================================
// REGISTRY
// =============================================================================

// Registry is an immutable incentive type -> Calculator mapping.
type Registry struct {
	calculators map[IncentiveType]Calculator
}

// NewRegistry builds a registry from calculators. A later calculator for the
// same incentive type replaces an earlier one.
func NewRegistry(calculators ...Calculator) *Registry {
	m := make(map[IncentiveType]Calculator, len(calculators))
	for _, c := range calculators {
		m[c.Incentive()] = c
	}
	return &Registry{calculators: m}
}

// DefaultRegistry registers a calculator for every known incentive type.
func DefaultRegistry() *Registry {
	calculators := make([]Calculator, 0, len(AllIncentives))
	for _, kind := range AllIncentives {
		c, err := NewCalculator(kind)
		if err != nil {
			panic(err) // AllIncentives and NewCalculator out of sync
		}
		calculators = append(calculators, c)
	}
	return NewRegistry(calculators...)
}

// Lookup returns the calculator registered for kind.
func (r *Registry) Lookup(kind IncentiveType) (Calculator, error) {
	if c, ok := r.calculators[kind]; ok {
		return c, nil
	}
	return nil, &NoCalculatorError{Incentive: kind}
}

// Incentives returns the registered incentive types in flag order.
func (r *Registry) Incentives() []IncentiveType {
	var kinds []IncentiveType
	for _, kind := range AllIncentives {
		if _, ok := r.calculators[kind]; ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// =============================================================================
// SELECTORS
// =============================================================================

// Selector resolves exactly one calculator for a rebate/product pair.
type Selector interface {
	Resolve(rebate *Rebate, product *Product) (Calculator, error)
}

// SelectorMode names a selection policy in configuration.
type SelectorMode string

const (
	SelectorDirect     SelectorMode = "direct"
	SelectorDetermined SelectorMode = "determined"
)

// NewSelector builds the selector for mode. Determined mode uses
// DefaultStrategyDeterminer.
func NewSelector(mode SelectorMode, registry *Registry) (Selector, error) {
	switch mode {
	case SelectorDirect, "":
		return NewKindSelector(registry), nil
	case SelectorDetermined:
		return NewDeterminedSelector(registry, DefaultStrategyDeterminer()), nil
	}
	return nil, errors.Wrapf(ErrInvalidArgument, "unknown selector mode %q", mode)
}

// KindSelector resolves by the incentive type stored on the rebate.
type KindSelector struct {
	registry *Registry
}

func NewKindSelector(registry *Registry) *KindSelector {
	return &KindSelector{registry: registry}
}

func (s *KindSelector) Resolve(rebate *Rebate, product *Product) (Calculator, error) {
	if rebate == nil {
		return nil, invalidArgument("rebate")
	}
	if product == nil {
		return nil, invalidArgument("product")
	}
	return s.registry.Lookup(rebate.Incentive)
}

// DeterminedSelector resolves by the incentive type a Determiner picks.
type DeterminedSelector struct {
	registry   *Registry
	determiner Determiner
}

func NewDeterminedSelector(registry *Registry, determiner Determiner) *DeterminedSelector {
	return &DeterminedSelector{registry: registry, determiner: determiner}
}

func (s *DeterminedSelector) Resolve(rebate *Rebate, product *Product) (Calculator, error) {
	if rebate == nil {
		return nil, invalidArgument("rebate")
	}
	if product == nil {
		return nil, invalidArgument("product")
	}
	kind, err := s.determiner.DetermineIncentive(rebate, product)
	if err != nil {
		return nil, errors.Wrap(err, "determine incentive type")
	}
	return s.registry.Lookup(kind)
}

// =============================================================================
// DETERMINERS
// =============================================================================

// Determiner picks the incentive type for a rebate/product pair.
type Determiner interface {
	DetermineIncentive(rebate *Rebate, product *Product) (IncentiveType, error)
}

// DeterminerFunc adapts a function to Determiner.
type DeterminerFunc func(rebate *Rebate, product *Product) (IncentiveType, error)

func (f DeterminerFunc) DetermineIncentive(rebate *Rebate, product *Product) (IncentiveType, error) {
	return f(rebate, product)
}

// StoredIncentive returns the incentive type already stored on the rebate.
var StoredIncentive Determiner = DeterminerFunc(func(rebate *Rebate, _ *Product) (IncentiveType, error) {
	if rebate == nil {
		return "", invalidArgument("rebate")
	}
	return rebate.Incentive, nil
})

// StrategyDeterminer delegates to a per-incentive strategy chosen by the
// rebate's stored type. A type without a strategy is a configuration error.
type StrategyDeterminer struct {
	strategies map[IncentiveType]Determiner
}

func NewStrategyDeterminer(strategies map[IncentiveType]Determiner) *StrategyDeterminer {
	m := make(map[IncentiveType]Determiner, len(strategies))
	for k, v := range strategies {
		m[k] = v
	}
	return &StrategyDeterminer{strategies: m}
}

// DefaultStrategyDeterminer maps every known incentive type to itself.
func DefaultStrategyDeterminer() *StrategyDeterminer {
	strategies := make(map[IncentiveType]Determiner, len(AllIncentives))
	for _, kind := range AllIncentives {
		strategies[kind] = fixedIncentive(kind)
	}
	return NewStrategyDeterminer(strategies)
}

func (d *StrategyDeterminer) DetermineIncentive(rebate *Rebate, product *Product) (IncentiveType, error) {
	if rebate == nil {
		return "", invalidArgument("rebate")
	}
	strategy, ok := d.strategies[rebate.Incentive]
	if !ok {
		return "", &NoCalculatorError{Incentive: rebate.Incentive}
	}
	return strategy.DetermineIncentive(rebate, product)
}

func fixedIncentive(kind IncentiveType) Determiner {
	return DeterminerFunc(func(*Rebate, *Product) (IncentiveType, error) {
		return kind, nil
	})
}
