/*
errors.go - Error types for the rebate engine

ERROR CATEGORIES:
  1. Precondition errors - Programming errors (missing identifiers, nil records).
     Returned to the direct caller, never folded into a result.
  2. Configuration errors - No calculator registered for an incentive type.
  3. Store errors - Not found (a distinguished outcome) and storage failures.

"Rule found but not applicable" is NOT an error. It is a normal business
outcome reported as CalculateRebateResult{Success: false, Reason: ReasonNotApplicable}.

USAGE:
  if errors.Is(err, rebate.ErrNoCalculator) {
      var nc *rebate.NoCalculatorError
      errors.As(err, &nc) // nc.Incentive
  }
*/
package rebate

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidArgument marks precondition violations: empty identifiers,
	// nil rebate/product/request passed to a calculator.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownIncentive is returned when text cannot be parsed as an incentive type.
	ErrUnknownIncentive = errors.New("unknown incentive type")

	// ErrNoCalculator is returned when no calculator is registered for an incentive type.
	ErrNoCalculator = errors.New("no calculator for incentive type")

	// ErrRebateNotFound is returned by a RebateStore for unknown identifiers.
	ErrRebateNotFound = errors.New("rebate not found")

	// ErrProductNotFound is returned by a ProductStore for unknown identifiers.
	ErrProductNotFound = errors.New("product not found")

	// ErrStoreFailure marks storage errors (I/O, persistence) surfaced by the orchestrator.
	ErrStoreFailure = errors.New("store failure")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// NoCalculatorError reports the incentive type that had no registered calculator.
type NoCalculatorError struct {
	Incentive IncentiveType
}

func (e *NoCalculatorError) Error() string {
	if e.Incentive == "" {
		return "no calculator for empty incentive type"
	}
	return fmt.Sprintf("no calculator for incentive type %q", e.Incentive)
}

func (e *NoCalculatorError) Unwrap() error {
	return ErrNoCalculator
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether err means a rebate or product does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRebateNotFound) || errors.Is(err, ErrProductNotFound)
}

// IsClientError reports whether err was caused by caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrUnknownIncentive)
}

func invalidArgument(name string) error {
	return errors.Wrapf(ErrInvalidArgument, "%s must not be nil", name)
}
