/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built catalogs that populate the store with rebates and
	products demonstrating each incentive type.

AVAILABLE SCENARIOS:

	default:    rebate1 (fixed cash 100) + product1 (price 50)
	fixed-rate: 10% of price x volume
	per-uom:    5 per case
	mixed:      Every incentive type, products accepting only some of them

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Parse the preset catalog via factory
 3. Load rebates and products
 4. Flush the read-through cache

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "mixed"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Catalog import shares the loading path
  - factory/presets.go: Preset catalog JSON
*/
package api

import (
	"net/http"

	"github.com/samber/lo"
	"github.com/warp/rebate-engine/factory"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	catalog func() string
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "default",
			Name:        "Default",
			Description: "One fixed cash rebate of 100 on a product priced 50",
			Category:    "fixed_cash_amount",
		},
		catalog: factory.DefaultCatalogJSON,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "fixed-rate",
			Name:        "Fixed Rate",
			Description: "10% of price times volume on a product priced 200",
			Category:    "fixed_rate_rebate",
		},
		catalog: factory.FixedRateCatalogJSON,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "per-uom",
			Name:        "Amount per UOM",
			Description: "5 per case purchased",
			Category:    "amount_per_uom",
		},
		catalog: factory.PerUomCatalogJSON,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "mixed",
			Name:        "Mixed Catalog",
			Description: "Every incentive type with products that accept only some of them",
			Category:    "mixed",
		},
		catalog: factory.MixedCatalogJSON,
	},
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, lo.Map(scenarios, func(s scenario, _ int) ScenarioDTO {
		return s.ScenarioDTO
	}))
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	s, ok := lo.Find(scenarios, func(s scenario) bool { return s.ID == current })
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.ScenarioDTO)
}

// LoadScenario resets the store and loads a predefined catalog.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, ok := lo.Find(scenarios, func(s scenario) bool { return s.ID == req.ScenarioID })
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	catalog, err := h.Catalog.ParseCatalog(s.catalog())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to parse scenario catalog", err)
		return
	}

	ctx := r.Context()

	h.mu.Lock()
	defer h.mu.Unlock()

	// The cache must not outlive the records Reset removed.
	defer h.flushCache()
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""

	if err := h.importCatalog(ctx, catalog); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = s.ID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": s.ID})
}
