/*
Package factory provides JSON to Go catalog conversion.

PURPOSE:
  Converts JSON catalog definitions into rebate.Rebate and rebate.Product
  records. Rebates and products can be configured without code changes and
  loaded into any store through Load.

JSON SCHEMA:
  {
    "rebates": [
      {"identifier": "rebate1", "incentive": "fixed_cash_amount", "amount": "100"},
      {"identifier": "rebate2", "incentive": "FixedRateRebate", "percentage": 0.10}
    ],
    "products": [
      {
        "identifier": "product1",
        "price": "50",
        "uom": "case",
        "supported_incentives": ["fixed_cash_amount", "amount_per_uom"]
      }
    ]
  }

  Decimal fields accept JSON numbers or strings. Incentive names accept the
  canonical snake_case spelling and the legacy PascalCase one.

KEY FEATURES:
  - Struct-tag validation (go-playground/validator)
  - Duplicate identifiers are rejected
  - ToJSON produces the canonical spelling, so ParseCatalog(ToJSON(x)) == x

USAGE:
  f := factory.NewCatalogFactory()
  catalog, err := f.ParseCatalog(jsonString)
  if err != nil { ... }
  err = factory.Load(ctx, store, catalog)

SEE ALSO:
  - rebate/types.go: Rebate and Product definitions
  - api/scenarios.go: Demo catalogs
*/
package factory

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/warp/rebate-engine/rebate"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// CatalogJSON is the JSON representation of a catalog.
type CatalogJSON struct {
	Rebates  []RebateJSON  `json:"rebates" validate:"dive"`
	Products []ProductJSON `json:"products" validate:"dive"`
}

// RebateJSON is the JSON representation of a rebate.
type RebateJSON struct {
	Identifier string          `json:"identifier" validate:"required"`
	Incentive  string          `json:"incentive" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
}

// ProductJSON is the JSON representation of a product.
type ProductJSON struct {
	Identifier          string          `json:"identifier" validate:"required"`
	Price               decimal.Decimal `json:"price"`
	Uom                 string          `json:"uom,omitempty"`
	SupportedIncentives []string        `json:"supported_incentives"`
}

// Catalog is a parsed, validated set of rebates and products.
type Catalog struct {
	Rebates  []rebate.Rebate
	Products []rebate.Product
}

// =============================================================================
// CATALOG FACTORY
// =============================================================================

// CatalogFactory converts JSON catalogs to Go structs.
type CatalogFactory struct {
	validate *validator.Validate
}

// NewCatalogFactory creates a new catalog factory.
func NewCatalogFactory() *CatalogFactory {
	return &CatalogFactory{validate: validator.New()}
}

// ParseCatalog parses a JSON string into a Catalog.
func (f *CatalogFactory) ParseCatalog(jsonStr string) (*Catalog, error) {
	var cj CatalogJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to parse catalog JSON"), rebate.ErrInvalidArgument)
	}
	return f.FromJSON(cj)
}

// FromJSON validates and converts CatalogJSON.
func (f *CatalogFactory) FromJSON(cj CatalogJSON) (*Catalog, error) {
	if err := f.validate.Struct(cj); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "invalid catalog"), rebate.ErrInvalidArgument)
	}

	if dup, ok := firstDuplicate(lo.Map(cj.Rebates, func(r RebateJSON, _ int) string { return r.Identifier })); ok {
		return nil, errors.Wrapf(rebate.ErrInvalidArgument, "duplicate rebate identifier %q", dup)
	}
	if dup, ok := firstDuplicate(lo.Map(cj.Products, func(p ProductJSON, _ int) string { return p.Identifier })); ok {
		return nil, errors.Wrapf(rebate.ErrInvalidArgument, "duplicate product identifier %q", dup)
	}

	catalog := &Catalog{}
	for _, rj := range cj.Rebates {
		r, err := f.RebateFromJSON(rj)
		if err != nil {
			return nil, err
		}
		catalog.Rebates = append(catalog.Rebates, r)
	}
	for _, pj := range cj.Products {
		p, err := f.ProductFromJSON(pj)
		if err != nil {
			return nil, err
		}
		catalog.Products = append(catalog.Products, p)
	}
	return catalog, nil
}

// RebateFromJSON converts a single rebate definition. Amount and percentage
// must not be negative.
func (f *CatalogFactory) RebateFromJSON(rj RebateJSON) (rebate.Rebate, error) {
	if err := f.validate.Struct(rj); err != nil {
		return rebate.Rebate{}, errors.Mark(errors.Wrap(err, "invalid rebate"), rebate.ErrInvalidArgument)
	}
	kind, err := rebate.ParseIncentiveType(rj.Incentive)
	if err != nil {
		return rebate.Rebate{}, errors.Wrapf(err, "rebate %q", rj.Identifier)
	}
	if rj.Amount.IsNegative() {
		return rebate.Rebate{}, errors.Wrapf(rebate.ErrInvalidArgument, "rebate %q: amount must not be negative", rj.Identifier)
	}
	if rj.Percentage.IsNegative() {
		return rebate.Rebate{}, errors.Wrapf(rebate.ErrInvalidArgument, "rebate %q: percentage must not be negative", rj.Identifier)
	}
	return rebate.Rebate{
		Identifier: rj.Identifier,
		Incentive:  kind,
		Amount:     rj.Amount,
		Percentage: rj.Percentage,
	}, nil
}

// ProductFromJSON converts a single product definition. Price must not be
// negative.
func (f *CatalogFactory) ProductFromJSON(pj ProductJSON) (rebate.Product, error) {
	if err := f.validate.Struct(pj); err != nil {
		return rebate.Product{}, errors.Mark(errors.Wrap(err, "invalid product"), rebate.ErrInvalidArgument)
	}
	if pj.Price.IsNegative() {
		return rebate.Product{}, errors.Wrapf(rebate.ErrInvalidArgument, "product %q: price must not be negative", pj.Identifier)
	}
	var supported rebate.SupportedIncentives
	for _, name := range pj.SupportedIncentives {
		kind, err := rebate.ParseIncentiveType(name)
		if err != nil {
			return rebate.Product{}, errors.Wrapf(err, "product %q", pj.Identifier)
		}
		supported = supported.With(kind)
	}
	return rebate.Product{
		Identifier:          pj.Identifier,
		Price:               pj.Price,
		Uom:                 pj.Uom,
		SupportedIncentives: supported,
	}, nil
}

// ToJSON converts records back to the canonical JSON form.
func (f *CatalogFactory) ToJSON(rebates []rebate.Rebate, products []rebate.Product) CatalogJSON {
	return CatalogJSON{
		Rebates:  lo.Map(rebates, func(r rebate.Rebate, _ int) RebateJSON { return RebateToJSON(r) }),
		Products: lo.Map(products, func(p rebate.Product, _ int) ProductJSON { return ProductToJSON(p) }),
	}
}

// RebateToJSON converts a rebate to its JSON form.
func RebateToJSON(r rebate.Rebate) RebateJSON {
	return RebateJSON{
		Identifier: r.Identifier,
		Incentive:  string(r.Incentive),
		Amount:     r.Amount,
		Percentage: r.Percentage,
	}
}

// ProductToJSON converts a product to its JSON form.
func ProductToJSON(p rebate.Product) ProductJSON {
	return ProductJSON{
		Identifier: p.Identifier,
		Price:      p.Price,
		Uom:        p.Uom,
		SupportedIncentives: lo.Map(p.SupportedIncentives.Kinds(), func(k rebate.IncentiveType, _ int) string {
			return string(k)
		}),
	}
}

// =============================================================================
// LOADING
// =============================================================================

// Saver is implemented by stores that accept catalog records.
type Saver interface {
	SaveRebate(ctx context.Context, r rebate.Rebate) error
	SaveProduct(ctx context.Context, p rebate.Product) error
}

// Load writes every record of the catalog to the store.
func Load(ctx context.Context, s Saver, c *Catalog) error {
	for _, r := range c.Rebates {
		if err := s.SaveRebate(ctx, r); err != nil {
			return errors.Wrapf(err, "load rebate %q", r.Identifier)
		}
	}
	for _, p := range c.Products {
		if err := s.SaveProduct(ctx, p); err != nil {
			return errors.Wrapf(err, "load product %q", p.Identifier)
		}
	}
	return nil
}

func firstDuplicate(ids []string) (string, bool) {
	dups := lo.FindDuplicates(ids)
	if len(dups) == 0 {
		return "", false
	}
	return dups[0], true
}
