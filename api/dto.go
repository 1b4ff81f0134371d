/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Calculations:
    CalculateRequest, CalculationResultDTO, CalculationDTO

  Rebates / Products:
    factory.RebateJSON, factory.ProductJSON (catalog JSON is the wire format)

  Catalog:
    CatalogImportResponse

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

DECIMALS:
  Money and volume fields accept JSON numbers or strings and are always
  returned as strings so clients never round through float64.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/catalog.go: RebateJSON and ProductJSON
*/
package api

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/warp/rebate-engine/rebate"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// CalculateRequest is the body of POST /api/calculations.
type CalculateRequest struct {
	RebateIdentifier  string          `json:"rebate_identifier"`
	ProductIdentifier string          `json:"product_identifier"`
	Volume            decimal.Decimal `json:"volume"`
}

// CalculationResultDTO is the outcome of one calculation.
type CalculationResultDTO struct {
	Success   bool   `json:"success"`
	Reason    string `json:"reason"`
	Incentive string `json:"incentive,omitempty"`
	Amount    string `json:"amount,omitempty"`
}

// CalculationDTO is a stored calculation.
type CalculationDTO struct {
	ID               string `json:"id"`
	RebateIdentifier string `json:"rebate_identifier"`
	Incentive        string `json:"incentive"`
	Amount           string `json:"amount"`
	CreatedAt        string `json:"created_at"`
}

// CatalogImportResponse reports what a catalog import wrote.
type CatalogImportResponse struct {
	Rebates  int `json:"rebates"`
	Products int `json:"products"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toCalculationResultDTO(r rebate.CalculateRebateResult) CalculationResultDTO {
	dto := CalculationResultDTO{
		Success: r.Success,
		Reason:  string(r.Reason),
	}
	if r.Success {
		dto.Incentive = string(r.Incentive)
		dto.Amount = r.Amount.String()
	}
	return dto
}

func toCalculationDTOs(calcs []rebate.Calculation) []CalculationDTO {
	return lo.Map(calcs, func(c rebate.Calculation, _ int) CalculationDTO {
		return CalculationDTO{
			ID:               c.ID,
			RebateIdentifier: c.RebateIdentifier,
			Incentive:        string(c.Incentive),
			Amount:           c.Amount.String(),
			CreatedAt:        c.CreatedAt.Format(time.RFC3339),
		}
	})
}
