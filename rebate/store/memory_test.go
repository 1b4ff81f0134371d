package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rebate-engine/rebate"
)

func TestMemory_GetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.SaveRebate(ctx, rebate.Rebate{Identifier: "r1", Incentive: rebate.FixedCashAmount, Amount: decimal.NewFromInt(10)}))

	got, err := m.GetRebate(ctx, "r1")
	require.NoError(t, err)
	got.Amount = decimal.NewFromInt(999)

	again, err := m.GetRebate(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, again.Amount.Equal(decimal.NewFromInt(10)))
}

func TestMemory_NotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.GetRebate(ctx, "missing")
	assert.ErrorIs(t, err, rebate.ErrRebateNotFound)

	_, err = m.GetProduct(ctx, "missing")
	assert.ErrorIs(t, err, rebate.ErrProductNotFound)
}

func TestMemory_CalculationsAreAppendOnly(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	r1 := rebate.Rebate{Identifier: "r1", Incentive: rebate.FixedCashAmount}
	r2 := rebate.Rebate{Identifier: "r2", Incentive: rebate.AmountPerUom}

	// GIVEN: the same result stored twice and another rebate in between
	require.NoError(t, m.StoreCalculationResult(ctx, r1, decimal.NewFromInt(100)))
	require.NoError(t, m.StoreCalculationResult(ctx, r2, decimal.NewFromInt(5)))
	require.NoError(t, m.StoreCalculationResult(ctx, r1, decimal.NewFromInt(100)))

	// THEN: both r1 rows are kept in order
	calcs, err := m.ListCalculations(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, calcs, 2)
	assert.Equal(t, "calc-1", calcs[0].ID)
	assert.Equal(t, "calc-3", calcs[1].ID)
	assert.Equal(t, fixed, calcs[0].CreatedAt)
	assert.Equal(t, rebate.FixedCashAmount, calcs[0].Incentive)

	assert.Len(t, m.Calculations(), 3)
}

func TestMemory_ListsAreSortedAndResetClears(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, m.SaveRebate(ctx, rebate.Rebate{Identifier: id}))
		require.NoError(t, m.SaveProduct(ctx, rebate.Product{Identifier: id}))
	}

	rebates, err := m.ListRebates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, []string{rebates[0].Identifier, rebates[1].Identifier, rebates[2].Identifier})

	products, err := m.ListProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", products[0].Identifier)

	require.NoError(t, m.StoreCalculationResult(ctx, rebate.Rebate{Identifier: "a"}, decimal.NewFromInt(1)))
	require.NoError(t, m.Reset(ctx))

	rebates, err = m.ListRebates(ctx)
	require.NoError(t, err)
	assert.Empty(t, rebates)
	assert.Empty(t, m.Calculations())
}
