package rebate_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rebate-engine/rebate"
	"github.com/warp/rebate-engine/rebate/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func seededMemory(t *testing.T, r rebate.Rebate, p rebate.Product) *store.Memory {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.SaveRebate(ctx, r))
	require.NoError(t, mem.SaveProduct(ctx, p))
	return mem
}

func bothSelectors() map[string]rebate.Selector {
	registry := rebate.DefaultRegistry()
	return map[string]rebate.Selector{
		"direct":     rebate.NewKindSelector(registry),
		"determined": rebate.NewDeterminedSelector(registry, rebate.StoredIncentive),
	}
}

func calcRequest(volume string) rebate.CalculateRebateRequest {
	return rebate.CalculateRebateRequest{
		RebateIdentifier:  "rebate1",
		ProductIdentifier: "product1",
		Volume:            dec(volume),
	}
}

// failingStore wraps Memory and fails the configured operations.
type failingStore struct {
	*store.Memory
	getErr   error
	storeErr error
}

func (f *failingStore) GetRebate(ctx context.Context, id string) (*rebate.Rebate, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Memory.GetRebate(ctx, id)
}

func (f *failingStore) StoreCalculationResult(ctx context.Context, r rebate.Rebate, amount decimal.Decimal) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	return f.Memory.StoreCalculationResult(ctx, r, amount)
}

// emptyStore returns neither a record nor an error for the configured lookups.
type emptyStore struct {
	*store.Memory
	noRebate  bool
	noProduct bool
}

func (e *emptyStore) GetRebate(ctx context.Context, id string) (*rebate.Rebate, error) {
	if e.noRebate {
		return nil, nil
	}
	return e.Memory.GetRebate(ctx, id)
}

func (e *emptyStore) GetProduct(ctx context.Context, id string) (*rebate.Product, error) {
	if e.noProduct {
		return nil, nil
	}
	return e.Memory.GetProduct(ctx, id)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []rebate.CalculationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e rebate.CalculationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

// =============================================================================
// END-TO-END
// =============================================================================

func TestCalculate_FixedCashAmount_PersistsOnce(t *testing.T) {
	for name, selector := range bothSelectors() {
		t.Run(name, func(t *testing.T) {
			// GIVEN: rebate1 = fixed cash 100, product1 supports fixed cash
			mem := seededMemory(t,
				rebate.Rebate{Identifier: "rebate1", Incentive: rebate.FixedCashAmount, Amount: dec("100")},
				rebate.Product{Identifier: "product1", Price: dec("50"), SupportedIncentives: supports(rebate.FixedCashAmount)},
			)
			svc := rebate.NewService(mem, mem, selector)

			// WHEN: Calculating with volume 10
			result, err := svc.Calculate(context.Background(), calcRequest("10"))

			// THEN: Success, and exactly one result of 100 stored against rebate1
			require.NoError(t, err)
			assert.True(t, result.Success)
			assert.Equal(t, rebate.ReasonCalculated, result.Reason)
			assert.Equal(t, rebate.FixedCashAmount, result.Incentive)
			assert.True(t, result.Amount.Equal(dec("100")))

			calcs := mem.Calculations()
			require.Len(t, calcs, 1)
			assert.Equal(t, "rebate1", calcs[0].RebateIdentifier)
			assert.True(t, calcs[0].Amount.Equal(dec("100")))
		})
	}
}

func TestCalculate_ZeroAmount_NotApplicable(t *testing.T) {
	for name, selector := range bothSelectors() {
		t.Run(name, func(t *testing.T) {
			// GIVEN: Same setup but the rebate amount is 0
			mem := seededMemory(t,
				rebate.Rebate{Identifier: "rebate1", Incentive: rebate.FixedCashAmount, Amount: dec("0")},
				rebate.Product{Identifier: "product1", SupportedIncentives: supports(rebate.FixedCashAmount)},
			)
			pub := &recordingPublisher{}
			svc := rebate.NewService(mem, mem, selector, rebate.WithPublisher(pub))

			// WHEN: Calculating
			result, err := svc.Calculate(context.Background(), calcRequest("10"))

			// THEN: Unsuccessful, nothing persisted, nothing published
			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.Equal(t, rebate.ReasonNotApplicable, result.Reason)
			assert.Empty(t, mem.Calculations())
			assert.Empty(t, pub.events)
		})
	}
}

func TestCalculate_FixedRateAndPerUom(t *testing.T) {
	tests := []struct {
		name     string
		rebate   rebate.Rebate
		product  rebate.Product
		volume   string
		expected string
	}{
		{
			name:     "fixed rate",
			rebate:   rebate.Rebate{Identifier: "rebate1", Incentive: rebate.FixedRateRebate, Percentage: dec("0.10")},
			product:  rebate.Product{Identifier: "product1", Price: dec("200"), SupportedIncentives: supports(rebate.FixedRateRebate)},
			volume:   "10",
			expected: "200",
		},
		{
			name:     "per uom",
			rebate:   rebate.Rebate{Identifier: "rebate1", Incentive: rebate.AmountPerUom, Amount: dec("7")},
			product:  rebate.Product{Identifier: "product1", Uom: "case", SupportedIncentives: supports(rebate.AmountPerUom)},
			volume:   "15",
			expected: "105",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := seededMemory(t, tt.rebate, tt.product)
			svc := rebate.NewService(mem, mem, rebate.NewKindSelector(rebate.DefaultRegistry()))

			result, err := svc.Calculate(context.Background(), calcRequest(tt.volume))
			require.NoError(t, err)
			assert.True(t, result.Success)
			assert.True(t, result.Amount.Equal(dec(tt.expected)), "got %s", result.Amount)
			require.Len(t, mem.Calculations(), 1)
		})
	}
}

func TestCalculate_UnsupportedIncentiveOnProduct(t *testing.T) {
	mem := seededMemory(t,
		rebate.Rebate{Identifier: "rebate1", Incentive: rebate.AmountPerUom, Amount: dec("5")},
		rebate.Product{Identifier: "product1", SupportedIncentives: supports(rebate.FixedCashAmount)},
	)
	svc := rebate.NewService(mem, mem, rebate.NewKindSelector(rebate.DefaultRegistry()))

	result, err := svc.Calculate(context.Background(), calcRequest("10"))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, rebate.ReasonNotApplicable, result.Reason)
	assert.Empty(t, mem.Calculations())
}

// =============================================================================
// FAILURE MODES
// =============================================================================

func TestCalculate_InvalidRequestIsError(t *testing.T) {
	svc := rebate.NewService(store.NewMemory(), store.NewMemory(), rebate.NewKindSelector(rebate.DefaultRegistry()))

	_, err := svc.Calculate(context.Background(), rebate.CalculateRebateRequest{ProductIdentifier: "product1"})
	assert.ErrorIs(t, err, rebate.ErrInvalidArgument)

	_, err = svc.Calculate(context.Background(), rebate.CalculateRebateRequest{RebateIdentifier: "rebate1"})
	assert.ErrorIs(t, err, rebate.ErrInvalidArgument)
}

func TestCalculate_NotFoundIsDistinct(t *testing.T) {
	mem := seededMemory(t,
		rebate.Rebate{Identifier: "rebate1", Incentive: rebate.FixedCashAmount, Amount: dec("100")},
		rebate.Product{Identifier: "product1", SupportedIncentives: rebate.SupportsAll},
	)
	svc := rebate.NewService(mem, mem, rebate.NewKindSelector(rebate.DefaultRegistry()))
	ctx := context.Background()

	result, err := svc.Calculate(ctx, rebate.CalculateRebateRequest{RebateIdentifier: "missing", ProductIdentifier: "product1", Volume: dec("1")})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, rebate.ReasonRebateNotFound, result.Reason)

	result, err = svc.Calculate(ctx, rebate.CalculateRebateRequest{RebateIdentifier: "rebate1", ProductIdentifier: "missing", Volume: dec("1")})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, rebate.ReasonProductNotFound, result.Reason)

	assert.Empty(t, mem.Calculations())
}

func TestCalculate_NoCalculatorIsError(t *testing.T) {
	// GIVEN: A registry missing the rebate's incentive type
	mem := seededMemory(t,
		rebate.Rebate{Identifier: "rebate1", Incentive: rebate.FixedRateRebate, Percentage: dec("0.1")},
		rebate.Product{Identifier: "product1", Price: dec("10"), SupportedIncentives: rebate.SupportsAll},
	)
	fixedCash, err := rebate.NewCalculator(rebate.FixedCashAmount)
	require.NoError(t, err)
	svc := rebate.NewService(mem, mem, rebate.NewKindSelector(rebate.NewRegistry(fixedCash)))

	// WHEN: Calculating
	result, err := svc.Calculate(context.Background(), calcRequest("1"))

	// THEN: A configuration error, reported distinctly from not-applicable
	require.ErrorIs(t, err, rebate.ErrNoCalculator)
	assert.False(t, result.Success)
	assert.Equal(t, rebate.ReasonNoCalculator, result.Reason)
	assert.Empty(t, mem.Calculations())
}

func TestCalculate_SelectorFailureIsNotNoCalculator(t *testing.T) {
	// GIVEN: A determiner that fails for a reason other than a missing rule
	mem := seededMemory(t,
		rebate.Rebate{Identifier: "rebate1", Incentive: rebate.FixedCashAmount, Amount: dec("100")},
		rebate.Product{Identifier: "product1", SupportedIncentives: rebate.SupportsAll},
	)
	lookupErr := errors.New("pricing service unavailable")
	determiner := rebate.DeterminerFunc(func(*rebate.Rebate, *rebate.Product) (rebate.IncentiveType, error) {
		return "", lookupErr
	})
	svc := rebate.NewService(mem, mem, rebate.NewDeterminedSelector(rebate.DefaultRegistry(), determiner))

	// WHEN: Calculating
	result, err := svc.Calculate(context.Background(), calcRequest("1"))

	// THEN: The failure is reported as a selection failure
	require.ErrorIs(t, err, lookupErr)
	assert.False(t, errors.Is(err, rebate.ErrNoCalculator))
	assert.Equal(t, rebate.ReasonSelectionFailed, result.Reason)
	assert.Empty(t, mem.Calculations())
}

func TestCalculate_NilRecordIsStoreFailure(t *testing.T) {
	r := rebate.Rebate{Identifier: "rebate1", Incentive: rebate.FixedCashAmount, Amount: dec("100")}
	p := rebate.Product{Identifier: "product1", SupportedIncentives: rebate.SupportsAll}

	tests := []struct {
		name  string
		store *emptyStore
	}{
		{"rebate", &emptyStore{Memory: seededMemory(t, r, p), noRebate: true}},
		{"product", &emptyStore{Memory: seededMemory(t, r, p), noProduct: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := rebate.NewService(tt.store, tt.store, rebate.NewKindSelector(rebate.DefaultRegistry()))

			result, err := svc.Calculate(context.Background(), calcRequest("1"))

			require.Error(t, err)
			assert.True(t, errors.Is(err, rebate.ErrStoreFailure))
			assert.False(t, result.Success)
			assert.Equal(t, rebate.ReasonStoreFailure, result.Reason)
			assert.Empty(t, tt.store.Calculations())
		})
	}
}

func TestCalculate_StoreFailures(t *testing.T) {
	ioErr := errors.New("disk on fire")
	r := rebate.Rebate{Identifier: "rebate1", Incentive: rebate.FixedCashAmount, Amount: dec("100")}
	p := rebate.Product{Identifier: "product1", SupportedIncentives: rebate.SupportsAll}

	t.Run("fetch", func(t *testing.T) {
		fs := &failingStore{Memory: seededMemory(t, r, p), getErr: ioErr}
		svc := rebate.NewService(fs, fs, rebate.NewKindSelector(rebate.DefaultRegistry()))

		result, err := svc.Calculate(context.Background(), calcRequest("1"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, rebate.ErrStoreFailure))
		assert.True(t, errors.Is(err, ioErr))
		assert.Equal(t, rebate.ReasonStoreFailure, result.Reason)
	})

	t.Run("persist", func(t *testing.T) {
		fs := &failingStore{Memory: seededMemory(t, r, p), storeErr: ioErr}
		pub := &recordingPublisher{}
		svc := rebate.NewService(fs, fs, rebate.NewKindSelector(rebate.DefaultRegistry()), rebate.WithPublisher(pub))

		result, err := svc.Calculate(context.Background(), calcRequest("1"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, rebate.ErrStoreFailure))
		assert.False(t, result.Success)
		assert.Equal(t, rebate.ReasonStoreFailure, result.Reason)
		assert.Empty(t, pub.events)
	})
}

// =============================================================================
// EVENTS
// =============================================================================

func TestCalculate_PublishesEvent(t *testing.T) {
	mem := seededMemory(t,
		rebate.Rebate{Identifier: "rebate1", Incentive: rebate.AmountPerUom, Amount: dec("5")},
		rebate.Product{Identifier: "product1", SupportedIncentives: rebate.SupportsAll},
	)
	fixed := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	pub := &recordingPublisher{}
	svc := rebate.NewService(mem, mem, rebate.NewKindSelector(rebate.DefaultRegistry()),
		rebate.WithPublisher(pub),
		rebate.WithClock(func() time.Time { return fixed }),
	)

	_, err := svc.Calculate(context.Background(), calcRequest("10"))
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	e := pub.events[0]
	assert.Equal(t, "rebate1", e.RebateIdentifier)
	assert.Equal(t, "product1", e.ProductIdentifier)
	assert.Equal(t, rebate.AmountPerUom, e.Incentive)
	assert.True(t, e.Amount.Equal(dec("50")))
	assert.Equal(t, fixed, e.CalculatedAt)
}

func TestCalculate_PublishFailureDoesNotFailCalculation(t *testing.T) {
	mem := seededMemory(t,
		rebate.Rebate{Identifier: "rebate1", Incentive: rebate.FixedCashAmount, Amount: dec("100")},
		rebate.Product{Identifier: "product1", SupportedIncentives: rebate.SupportsAll},
	)
	pub := &recordingPublisher{err: errors.New("broker unavailable")}
	svc := rebate.NewService(mem, mem, rebate.NewKindSelector(rebate.DefaultRegistry()), rebate.WithPublisher(pub))

	result, err := svc.Calculate(context.Background(), calcRequest("1"))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, mem.Calculations(), 1)
}
