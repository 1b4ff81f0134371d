package factory

// =============================================================================
// PRESET CATALOGS
// =============================================================================
//
// Ready-made catalogs for demos, the CLI and tests. Each returns catalog JSON
// accepted by CatalogFactory.ParseCatalog.

// DefaultCatalogJSON is the minimal catalog: one fixed cash rebate of 100 and
// one product priced 50 that accepts it.
func DefaultCatalogJSON() string {
	return `{
	"rebates": [
		{"identifier": "rebate1", "incentive": "fixed_cash_amount", "amount": "100"}
	],
	"products": [
		{"identifier": "product1", "price": "50", "uom": "unit", "supported_incentives": ["fixed_cash_amount"]}
	]
}`
}

// FixedRateCatalogJSON has a 10% rebate on a product priced 200.
func FixedRateCatalogJSON() string {
	return `{
	"rebates": [
		{"identifier": "rate10", "incentive": "fixed_rate_rebate", "percentage": "0.10"}
	],
	"products": [
		{"identifier": "widget", "price": "200", "uom": "unit", "supported_incentives": ["fixed_rate_rebate"]}
	]
}`
}

// PerUomCatalogJSON pays 5 per case.
func PerUomCatalogJSON() string {
	return `{
	"rebates": [
		{"identifier": "case5", "incentive": "amount_per_uom", "amount": "5"}
	],
	"products": [
		{"identifier": "beverage-case", "price": "24", "uom": "case", "supported_incentives": ["amount_per_uom"]}
	]
}`
}

// MixedCatalogJSON combines every incentive type with products that accept
// only some of them, so calculations show both successes and not-applicable
// outcomes.
func MixedCatalogJSON() string {
	return `{
	"rebates": [
		{"identifier": "cash100", "incentive": "fixed_cash_amount", "amount": "100"},
		{"identifier": "cash0", "incentive": "fixed_cash_amount", "amount": "0"},
		{"identifier": "rate15", "incentive": "fixed_rate_rebate", "percentage": "0.15"},
		{"identifier": "uom7", "incentive": "amount_per_uom", "amount": "7"}
	],
	"products": [
		{"identifier": "all-in", "price": "19.99", "uom": "unit",
		 "supported_incentives": ["fixed_cash_amount", "fixed_rate_rebate", "amount_per_uom"]},
		{"identifier": "cash-only", "price": "300", "uom": "unit", "supported_incentives": ["fixed_cash_amount"]},
		{"identifier": "bulk", "price": "12.50", "uom": "pallet", "supported_incentives": ["amount_per_uom"]}
	]
}`
}
