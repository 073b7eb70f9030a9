package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hyperengineering/driverlib/internal/driver"
	"github.com/hyperengineering/driverlib/internal/graph"
	"github.com/hyperengineering/driverlib/internal/instance"
	"github.com/hyperengineering/driverlib/internal/period"
	"github.com/hyperengineering/driverlib/internal/store"
	"github.com/hyperengineering/driverlib/internal/types"
	"github.com/hyperengineering/driverlib/internal/validation"
)

// Handler implements the API handlers
type Handler struct {
	store     store.Store
	instances *instance.Service
	graph     *graph.Service
	generator *period.Generator
	version   string
}

// NewHandler creates a new Handler. The services must share the store.
func NewHandler(s store.Store, instances *instance.Service, g *graph.Service, gen *period.Generator, version string) *Handler {
	return &Handler{
		store:     s,
		instances: instances,
		graph:     g,
		generator: gen,
		version:   version,
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		MapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:  "healthy",
		Version: h.version,
		Stats:   *stats,
	})
}

// ListTemplates handles GET /api/v1/templates
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.ListTemplates(r.Context())
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewListResponse(templates))
}

// GetTemplate handles GET /api/v1/templates/{id}
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.store.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

// Calculate handles POST /api/v1/calculate. When the driver type has a
// template in the catalog, missing inputs take its defaults and the bag is
// validated against its schema before calculating.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req types.CalculateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !driver.Known(req.DriverType) {
		MapError(w, r, fmt.Errorf("%q: %w", req.DriverType, driver.ErrUnknownDriverType))
		return
	}

	var c validation.Collector
	c.Add(validation.ValidateMin("month_index", float64(req.MonthIndex), 0))

	inputs := req.Inputs
	tmpl, err := h.store.GetTemplateByType(r.Context(), req.DriverType)
	switch {
	case err == nil:
		inputs = instance.WithDefaults(tmpl.InputSchema, inputs)
		for _, e := range validation.ValidateInputs(tmpl.InputSchema, inputs) {
			c.Add(&e)
		}
	case !errors.Is(err, store.ErrNotFound):
		MapError(w, r, err)
		return
	}
	if err := c.Err(); err != nil {
		MapError(w, r, err)
		return
	}

	result, err := driver.Calculate(req.DriverType, inputs, req.MonthIndex)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// decodeJSON decodes the request body into v, writing a 400 on malformed
// JSON. It reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return false
	}
	return true
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		return true
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
	return false
}
