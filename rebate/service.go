/*
service.go - Calculation orchestrator

PURPOSE:
  Ties rule selection to data retrieval and result persistence.

FLOW (Calculate):
  1. Validate request identifiers           -> error (ErrInvalidArgument)
  2. Fetch rebate                           -> ReasonRebateNotFound
  3. Fetch product                          -> ReasonProductNotFound
  4. Resolve calculator via the Selector    -> ReasonNoCalculator + error
                                               (ReasonSelectionFailed for
                                               other selector errors)
  5. Check applicability                    -> ReasonNotApplicable
  6. Compute amount
  7. Persist result                         -> ReasonStoreFailure + error
  8. Publish event (optional, best effort)
  9. Success

ERROR vs RESULT:
  Business outcomes (not found, not applicable) come back as a result with
  Success=false and a nil error. Caller mistakes, missing calculators and
  storage failures come back as an error AND a result carrying the reason.
  A store returning neither a record nor an error is a storage failure.

STATE:
  Service holds only injected collaborators. Each call is independent; there
  are no retries and no partial-completion recovery.
*/
package rebate

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Service is the calculation orchestrator.
type Service struct {
	rebates   RebateStore
	products  ProductStore
	selector  Selector
	publisher Publisher
	logger    *zap.SugaredLogger
	now       func() time.Time
}

// ServiceOption configures optional Service collaborators.
type ServiceOption func(*Service)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.SugaredLogger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithPublisher sets the event publisher.
func WithPublisher(p Publisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates an orchestrator.
func NewService(rebates RebateStore, products ProductStore, selector Selector, opts ...ServiceOption) *Service {
	s := &Service{
		rebates:  rebates,
		products: products,
		selector: selector,
		logger:   zap.NewNop().Sugar(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calculate runs one rebate calculation.
func (s *Service) Calculate(ctx context.Context, req CalculateRebateRequest) (CalculateRebateResult, error) {
	if err := req.Validate(); err != nil {
		return CalculateRebateResult{}, err
	}

	log := s.logger.With(
		"rebate_identifier", req.RebateIdentifier,
		"product_identifier", req.ProductIdentifier,
		"volume", req.Volume.String(),
	)

	rebate, err := s.rebates.GetRebate(ctx, req.RebateIdentifier)
	if err != nil {
		if errors.Is(err, ErrRebateNotFound) {
			log.Infow("rebate calculation skipped", "reason", ReasonRebateNotFound)
			return failed(ReasonRebateNotFound), nil
		}
		return failed(ReasonStoreFailure), storeFailure(err, "get rebate %q", req.RebateIdentifier)
	}
	if rebate == nil {
		return failed(ReasonStoreFailure), missingRecord("rebate", req.RebateIdentifier)
	}

	product, err := s.products.GetProduct(ctx, req.ProductIdentifier)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			log.Infow("rebate calculation skipped", "reason", ReasonProductNotFound)
			return failed(ReasonProductNotFound), nil
		}
		return failed(ReasonStoreFailure), storeFailure(err, "get product %q", req.ProductIdentifier)
	}
	if product == nil {
		return failed(ReasonStoreFailure), missingRecord("product", req.ProductIdentifier)
	}

	calc, err := s.selector.Resolve(rebate, product)
	if err != nil {
		log.Warnw("no calculator resolved", "incentive", rebate.Incentive, "error", err)
		if errors.Is(err, ErrNoCalculator) {
			return failed(ReasonNoCalculator), err
		}
		return failed(ReasonSelectionFailed), err
	}
	log = log.With("incentive", calc.Incentive())

	applicable, err := calc.IsApplicable(rebate, product, &req)
	if err != nil {
		return failed(ReasonNotApplicable), err
	}
	if !applicable {
		log.Infow("rebate not applicable", "reason", ReasonNotApplicable)
		return failed(ReasonNotApplicable), nil
	}

	amount, err := calc.CalculateAmount(rebate, product, &req)
	if err != nil {
		return failed(ReasonNotApplicable), err
	}
	log.Debugw("rebate amount calculated", "amount", amount.String())

	if err := s.rebates.StoreCalculationResult(ctx, *rebate, amount); err != nil {
		return failed(ReasonStoreFailure), storeFailure(err, "store calculation for rebate %q", rebate.Identifier)
	}

	if s.publisher != nil {
		event := CalculationEvent{
			RebateIdentifier:  rebate.Identifier,
			ProductIdentifier: product.Identifier,
			Incentive:         calc.Incentive(),
			Volume:            req.Volume,
			Amount:            amount,
			CalculatedAt:      s.now().UTC(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			log.Warnw("failed to publish calculation event", "error", err)
		}
	}

	log.Infow("rebate calculated", "amount", amount.String())
	return CalculateRebateResult{
		Success:   true,
		Reason:    ReasonCalculated,
		Incentive: calc.Incentive(),
		Amount:    amount,
	}, nil
}

func failed(reason ReasonCode) CalculateRebateResult {
	return CalculateRebateResult{Success: false, Reason: reason}
}

func storeFailure(err error, format string, args ...any) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrStoreFailure)
}

func missingRecord(kind, identifier string) error {
	return errors.Mark(errors.Newf("%s store returned no %s for %q", kind, kind, identifier), ErrStoreFailure)
}
