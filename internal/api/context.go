package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hyperengineering/driverlib/internal/types"
)

// instanceContextKey is the context key for the instance loaded from the URL.
type instanceContextKey struct{}

// ErrNoInstanceInContext indicates no instance was found in the context.
var ErrNoInstanceInContext = errors.New("no instance in context")

// WithInstance returns a new context with the instance attached.
func WithInstance(ctx context.Context, inst *types.DriverInstance) context.Context {
	return context.WithValue(ctx, instanceContextKey{}, inst)
}

// InstanceFromContext extracts the instance from the context.
// Returns ErrNoInstanceInContext if not present or nil.
func InstanceFromContext(ctx context.Context) (*types.DriverInstance, error) {
	inst, ok := ctx.Value(instanceContextKey{}).(*types.DriverInstance)
	if !ok || inst == nil {
		return nil, ErrNoInstanceInContext
	}
	return inst, nil
}

// MustInstanceFromContext extracts the instance or panics.
// Use only on routes mounted behind InstanceCtx.
func MustInstanceFromContext(ctx context.Context) *types.DriverInstance {
	inst, err := InstanceFromContext(ctx)
	if err != nil {
		panic("instance not in context: middleware misconfiguration")
	}
	return inst
}

// InstanceCtx loads the instance named by the {id} URL parameter and
// attaches it to the request context. Unknown ids get a 404.
func (h *Handler) InstanceCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inst, err := h.instances.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			MapError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithInstance(r.Context(), inst)))
	})
}
