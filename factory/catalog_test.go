package factory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rebate-engine/rebate"
	"github.com/warp/rebate-engine/rebate/store"
)

const sampleCatalog = `{
	"rebates": [
		{"identifier": "rebate1", "incentive": "fixed_cash_amount", "amount": "100"},
		{"identifier": "rebate2", "incentive": "FixedRate", "percentage": 0.10},
		{"identifier": "rebate3", "incentive": "AmountPerUom", "amount": 5}
	],
	"products": [
		{"identifier": "product1", "price": "50", "uom": "case", "supported_incentives": ["fixed_cash_amount", "AmountPerUom"]},
		{"identifier": "product2", "price": 19.99, "supported_incentives": ["fixed_rate_rebate"]}
	]
}`

func TestParseCatalog(t *testing.T) {
	f := NewCatalogFactory()

	catalog, err := f.ParseCatalog(sampleCatalog)
	require.NoError(t, err)

	require.Len(t, catalog.Rebates, 3)
	assert.Equal(t, rebate.FixedCashAmount, catalog.Rebates[0].Incentive)
	assert.True(t, catalog.Rebates[0].Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, rebate.FixedRateRebate, catalog.Rebates[1].Incentive)
	assert.True(t, catalog.Rebates[1].Percentage.Equal(decimal.RequireFromString("0.1")))
	assert.Equal(t, rebate.AmountPerUom, catalog.Rebates[2].Incentive)

	require.Len(t, catalog.Products, 2)
	p := catalog.Products[0]
	assert.Equal(t, "case", p.Uom)
	assert.True(t, p.SupportedIncentives.Has(rebate.FixedCashAmount))
	assert.True(t, p.SupportedIncentives.Has(rebate.AmountPerUom))
	assert.False(t, p.SupportedIncentives.Has(rebate.FixedRateRebate))
	assert.True(t, catalog.Products[1].Price.Equal(decimal.RequireFromString("19.99")))
}

func TestParseCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"rebates": [`},
		{"missing identifier", `{"rebates": [{"incentive": "fixed_cash_amount"}]}`},
		{"missing incentive", `{"rebates": [{"identifier": "r"}]}`},
		{"unknown incentive", `{"rebates": [{"identifier": "r", "incentive": "loyalty"}]}`},
		{"unknown supported incentive", `{"products": [{"identifier": "p", "supported_incentives": ["loyalty"]}]}`},
		{"duplicate rebate", `{"rebates": [{"identifier": "r", "incentive": "fixed_cash_amount"}, {"identifier": "r", "incentive": "amount_per_uom"}]}`},
		{"duplicate product", `{"products": [{"identifier": "p"}, {"identifier": "p"}]}`},
		{"negative price", `{"products": [{"identifier": "p", "price": "-5"}]}`},
		{"negative amount", `{"rebates": [{"identifier": "r", "incentive": "fixed_cash_amount", "amount": "-100"}]}`},
		{"negative percentage", `{"rebates": [{"identifier": "r", "incentive": "fixed_rate_rebate", "percentage": "-0.1"}]}`},
	}

	f := NewCatalogFactory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseCatalog(tt.json)
			require.Error(t, err)
			assert.True(t, rebate.IsClientError(err), "expected a client error, got %v", err)
		})
	}
}

func TestToJSON_RoundTrip(t *testing.T) {
	f := NewCatalogFactory()
	catalog, err := f.ParseCatalog(sampleCatalog)
	require.NoError(t, err)

	data, err := json.Marshal(f.ToJSON(catalog.Rebates, catalog.Products))
	require.NoError(t, err)

	again, err := f.ParseCatalog(string(data))
	require.NoError(t, err)
	require.Len(t, again.Rebates, len(catalog.Rebates))
	for i := range catalog.Rebates {
		assert.Equal(t, catalog.Rebates[i].Incentive, again.Rebates[i].Incentive)
		assert.True(t, catalog.Rebates[i].Amount.Equal(again.Rebates[i].Amount))
	}
	assert.Equal(t, catalog.Products[0].SupportedIncentives, again.Products[0].SupportedIncentives)
}

func TestProductToJSON_CanonicalNames(t *testing.T) {
	pj := ProductToJSON(rebate.Product{Identifier: "p", SupportedIncentives: rebate.SupportsAll})
	assert.Equal(t, []string{"fixed_rate_rebate", "amount_per_uom", "fixed_cash_amount"}, pj.SupportedIncentives)
}

func TestLoad(t *testing.T) {
	f := NewCatalogFactory()
	catalog, err := f.ParseCatalog(sampleCatalog)
	require.NoError(t, err)

	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, Load(ctx, mem, catalog))

	r, err := mem.GetRebate(ctx, "rebate2")
	require.NoError(t, err)
	assert.Equal(t, rebate.FixedRateRebate, r.Incentive)

	_, err = mem.GetProduct(ctx, "product2")
	require.NoError(t, err)
}

func TestPresetCatalogsParse(t *testing.T) {
	f := NewCatalogFactory()
	presets := map[string]string{
		"default":    DefaultCatalogJSON(),
		"fixed-rate": FixedRateCatalogJSON(),
		"per-uom":    PerUomCatalogJSON(),
		"mixed":      MixedCatalogJSON(),
	}
	for name, js := range presets {
		t.Run(name, func(t *testing.T) {
			c, err := f.ParseCatalog(js)
			require.NoError(t, err)
			assert.NotEmpty(t, c.Rebates)
			assert.NotEmpty(t, c.Products)
		})
	}
}
