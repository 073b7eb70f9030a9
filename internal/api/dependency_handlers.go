package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hyperengineering/driverlib/internal/types"
)

// CreateDependency handles POST /api/v1/dependencies
func (h *Handler) CreateDependency(w http.ResponseWriter, r *http.Request) {
	var req types.NewDriverDependency
	if !decodeJSON(w, r, &req) {
		return
	}
	dep, err := h.graph.Link(r.Context(), req)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dep)
}

// DeleteDependency handles DELETE /api/v1/dependencies/{id}
func (h *Handler) DeleteDependency(w http.ResponseWriter, r *http.Request) {
	if err := h.graph.Unlink(r.Context(), chi.URLParam(r, "id")); err != nil {
		MapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
