package api

import (
	"net/http"
	"time"

	"github.com/hyperengineering/driverlib/internal/period"
	"github.com/hyperengineering/driverlib/internal/types"
	"github.com/hyperengineering/driverlib/internal/validation"
)

// ListInstances handles GET /api/v1/instances?forecast_version_id=
func (h *Handler) ListInstances(w http.ResponseWriter, r *http.Request) {
	instances, err := h.instances.List(r.Context(), r.URL.Query().Get("forecast_version_id"))
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewListResponse(instances))
}

// CreateInstance handles POST /api/v1/instances
func (h *Handler) CreateInstance(w http.ResponseWriter, r *http.Request) {
	var req types.NewDriverInstance
	if !decodeJSON(w, r, &req) {
		return
	}
	inst, err := h.instances.Create(r.Context(), req)
	if err != nil {
		MapError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/instances/"+inst.ID)
	writeJSON(w, http.StatusCreated, inst)
}

// GetInstance handles GET /api/v1/instances/{id}
func (h *Handler) GetInstance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MustInstanceFromContext(r.Context()))
}

// UpdateInstance handles PATCH /api/v1/instances/{id}
func (h *Handler) UpdateInstance(w http.ResponseWriter, r *http.Request) {
	inst := MustInstanceFromContext(r.Context())

	var req types.InstanceUpdate
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := h.instances.Update(r.Context(), inst.ID, req)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteInstance handles DELETE /api/v1/instances/{id}
func (h *Handler) DeleteInstance(w http.ResponseWriter, r *http.Request) {
	inst := MustInstanceFromContext(r.Context())
	if err := h.instances.Delete(r.Context(), inst.ID); err != nil {
		MapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Generate handles POST /api/v1/instances/{id}/generate. The body is an
// optional window; omitted fields come from the instance configuration.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	inst := MustInstanceFromContext(r.Context())

	var win period.Window
	if !decodeOptionalJSON(w, r, &win) {
		return
	}
	results, err := h.generator.GenerateForInstance(r.Context(), inst.ID, win)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.GenerateResponse{InstanceID: inst.ID, Results: results})
}

// ListResults handles GET /api/v1/instances/{id}/results?period_type=&from=&to=
func (h *Handler) ListResults(w http.ResponseWriter, r *http.Request) {
	inst := MustInstanceFromContext(r.Context())

	q := r.URL.Query()
	filter := types.ResultFilter{
		PeriodType: types.PeriodType(q.Get("period_type")),
		From:       q.Get("from"),
		To:         q.Get("to"),
	}
	if err := validateResultFilter(filter); err != nil {
		MapError(w, r, err)
		return
	}

	results, err := h.store.ListResults(r.Context(), inst.ID, filter)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewListResponse(results))
}

func validateResultFilter(f types.ResultFilter) error {
	var c validation.Collector
	if f.PeriodType != "" {
		c.Add(validation.ValidateEnum("period_type", string(f.PeriodType),
			[]string{string(types.PeriodMonth), string(types.PeriodQuarter)}))
	}
	for _, d := range []struct{ field, value string }{{"from", f.From}, {"to", f.To}} {
		if d.value == "" {
			continue
		}
		if _, err := time.Parse(types.DateLayout, d.value); err != nil {
			c.Add(&validation.ValidationError{Field: d.field, Message: "must be a YYYY-MM-DD date"})
		}
	}
	return c.Err()
}

// Regenerate handles POST /api/v1/instances/{id}/regenerate: the instance
// and everything downstream of it, parents first.
func (h *Handler) Regenerate(w http.ResponseWriter, r *http.Request) {
	inst := MustInstanceFromContext(r.Context())

	var win period.Window
	if !decodeOptionalJSON(w, r, &win) {
		return
	}
	regenerated, err := h.graph.Regenerate(r.Context(), inst.ID, win)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewListResponse(regenerated))
}

// InstanceDependencies handles GET /api/v1/instances/{id}/dependencies
func (h *Handler) InstanceDependencies(w http.ResponseWriter, r *http.Request) {
	inst := MustInstanceFromContext(r.Context())
	edges, err := h.graph.Edges(r.Context(), inst.ID)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.NewListResponse(edges))
}
