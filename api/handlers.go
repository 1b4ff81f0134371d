/*
handlers.go - HTTP API handlers for the rebate engine

PURPOSE:
  Exposes the calculation orchestrator and the rebate/product catalog via a
  REST API. Handles HTTP request/response, JSON serialization, and delegates
  to domain logic.

ENDPOINTS:
  Calculations:
    POST   /api/calculations                Calculate a rebate
    GET    /api/rebates/{id}/calculations   Calculation history of a rebate

  Rebates:
    GET    /api/rebates              List rebates
    POST   /api/rebates              Create or replace a rebate
    GET    /api/rebates/{id}         Get a rebate

  Products:
    GET    /api/products             List products
    POST   /api/products             Create or replace a product
    GET    /api/products/{id}        Get a product

  Catalog:
    POST   /api/catalog              Import a JSON catalog

  Scenarios:
    GET    /api/scenarios            List demo scenarios
    GET    /api/scenarios/current    Currently loaded scenario
    POST   /api/scenarios/load       Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input (rebate.IsClientError)
  - 404: Rebate or product not found
  - 500: Storage failures, missing calculators

  A calculation whose rule is not applicable is NOT an error: it returns 200
  with success=false and the reason code.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"github.com/warp/rebate-engine/factory"
	"github.com/warp/rebate-engine/rebate"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies, catalogs included.
const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Repository is the storage the API reads and writes.
type Repository interface {
	rebate.RebateStore
	rebate.ProductStore
	rebate.CalculationStore
	SaveRebate(ctx context.Context, r rebate.Rebate) error
	SaveProduct(ctx context.Context, p rebate.Product) error
	ListRebates(ctx context.Context) ([]rebate.Rebate, error)
	ListProducts(ctx context.Context) ([]rebate.Product, error)
	Reset(ctx context.Context) error
}

// Invalidator drops cached records after writes.
type Invalidator interface {
	InvalidateRebate(identifier string)
	InvalidateProduct(identifier string)
	Flush()
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   Repository
	Service *rebate.Service
	Catalog *factory.CatalogFactory

	cache  Invalidator
	logger *zap.SugaredLogger

	mu              sync.RWMutex
	currentScenario string
}

// HandlerOption configures optional Handler dependencies.
type HandlerOption func(*Handler)

// WithCache registers the cache to invalidate on writes.
func WithCache(c Invalidator) HandlerOption {
	return func(h *Handler) { h.cache = c }
}

// WithLogger sets the handler logger.
func WithLogger(l *zap.SugaredLogger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a new handler over store and the calculation service.
func NewHandler(store Repository, svc *rebate.Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		Store:   store,
		Service: svc,
		Catalog: factory.NewCatalogFactory(),
		logger:  zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// Calculate runs one rebate calculation.
// POST /api/calculations
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Service.Calculate(r.Context(), rebate.CalculateRebateRequest{
		RebateIdentifier:  req.RebateIdentifier,
		ProductIdentifier: req.ProductIdentifier,
		Volume:            req.Volume,
	})
	if err != nil {
		if rebate.IsClientError(err) {
			writeDomainError(w, err, "Invalid calculation request")
			return
		}
		h.logger.Errorw("calculation failed",
			"rebate_identifier", req.RebateIdentifier,
			"product_identifier", req.ProductIdentifier,
			"reason", result.Reason,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "Calculation failed",
			Code:    string(result.Reason),
			Details: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, toCalculationResultDTO(result))
}

// ListCalculations returns the calculation history of a rebate.
// GET /api/rebates/{id}/calculations
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.Store.GetRebate(r.Context(), id); err != nil {
		writeDomainError(w, err, "Failed to get rebate")
		return
	}

	calcs, err := h.Store.ListCalculations(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calculations", err)
		return
	}
	writeJSON(w, http.StatusOK, toCalculationDTOs(calcs))
}

// =============================================================================
// REBATE HANDLERS
// =============================================================================

// ListRebates returns all rebates.
// GET /api/rebates
func (h *Handler) ListRebates(w http.ResponseWriter, r *http.Request) {
	rebates, err := h.Store.ListRebates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list rebates", err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(rebates, func(rb rebate.Rebate, _ int) factory.RebateJSON {
		return factory.RebateToJSON(rb)
	}))
}

// GetRebate returns a single rebate.
// GET /api/rebates/{id}
func (h *Handler) GetRebate(w http.ResponseWriter, r *http.Request) {
	rb, err := h.Store.GetRebate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "Failed to get rebate")
		return
	}
	writeJSON(w, http.StatusOK, factory.RebateToJSON(*rb))
}

// CreateRebate creates or replaces a rebate.
// POST /api/rebates
func (h *Handler) CreateRebate(w http.ResponseWriter, r *http.Request) {
	var body factory.RebateJSON
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rb, err := h.Catalog.RebateFromJSON(body)
	if err != nil {
		writeDomainError(w, err, "Invalid rebate")
		return
	}
	if err := h.Store.SaveRebate(r.Context(), rb); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rebate", err)
		return
	}
	if h.cache != nil {
		h.cache.InvalidateRebate(rb.Identifier)
	}

	writeJSON(w, http.StatusCreated, factory.RebateToJSON(rb))
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns all products.
// GET /api/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}
	writeJSON(w, http.StatusOK, lo.Map(products, func(p rebate.Product, _ int) factory.ProductJSON {
		return factory.ProductToJSON(p)
	}))
}

// GetProduct returns a single product.
// GET /api/products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "Failed to get product")
		return
	}
	writeJSON(w, http.StatusOK, factory.ProductToJSON(*p))
}

// CreateProduct creates or replaces a product.
// POST /api/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var body factory.ProductJSON
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := h.Catalog.ProductFromJSON(body)
	if err != nil {
		writeDomainError(w, err, "Invalid product")
		return
	}
	if err := h.Store.SaveProduct(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save product", err)
		return
	}
	if h.cache != nil {
		h.cache.InvalidateProduct(p.Identifier)
	}

	writeJSON(w, http.StatusCreated, factory.ProductToJSON(p))
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ImportCatalog loads a JSON catalog into the store.
// POST /api/catalog
func (h *Handler) ImportCatalog(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	catalog, err := h.Catalog.ParseCatalog(string(body))
	if err != nil {
		writeDomainError(w, err, "Invalid catalog")
		return
	}
	if err := h.importCatalog(r.Context(), catalog); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to import catalog", err)
		return
	}

	writeJSON(w, http.StatusOK, CatalogImportResponse{
		Rebates:  len(catalog.Rebates),
		Products: len(catalog.Products),
	})
}

// importCatalog flushes the cache even when the load fails part way.
func (h *Handler) importCatalog(ctx context.Context, catalog *factory.Catalog) error {
	defer h.flushCache()
	if err := factory.Load(ctx, h.Store, catalog); err != nil {
		return err
	}
	h.logger.Infow("catalog imported", "rebates", len(catalog.Rebates), "products", len(catalog.Products))
	return nil
}

func (h *Handler) flushCache() {
	if h.cache != nil {
		h.cache.Flush()
	}
}

// =============================================================================
// HEALTH
// =============================================================================

// Healthz reports liveness.
// GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error, message string) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, rebate.ErrRebateNotFound):
		status, code = http.StatusNotFound, "rebate_not_found"
	case errors.Is(err, rebate.ErrProductNotFound):
		status, code = http.StatusNotFound, "product_not_found"
	case errors.Is(err, rebate.ErrUnknownIncentive):
		status, code = http.StatusBadRequest, "unknown_incentive"
	case errors.Is(err, rebate.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "invalid_argument"
	}

	resp := ErrorResponse{Error: message, Code: code, Details: err.Error()}
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		resp.Details = map[string]any{"message": err.Error(), "hints": hints}
	}
	writeJSON(w, status, resp)
}
