package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hyperengineering/driverlib/internal/instance"
	"github.com/hyperengineering/driverlib/internal/types"
)

func TestWithInstance_InstanceFromContext_RoundTrip(t *testing.T) {
	inst := &types.DriverInstance{ID: "01HZX0000000000000000000AA"}
	ctx := WithInstance(context.Background(), inst)

	got, err := InstanceFromContext(ctx)
	if err != nil {
		t.Fatalf("InstanceFromContext returned error: %v", err)
	}
	if got != inst {
		t.Errorf("got different instance, want same pointer")
	}
}

func TestInstanceFromContext_Missing(t *testing.T) {
	if _, err := InstanceFromContext(context.Background()); err != ErrNoInstanceInContext {
		t.Errorf("error = %v, want ErrNoInstanceInContext", err)
	}

	ctx := WithInstance(context.Background(), nil)
	if _, err := InstanceFromContext(ctx); err != ErrNoInstanceInContext {
		t.Errorf("nil instance error = %v, want ErrNoInstanceInContext", err)
	}
}

func TestMustInstanceFromContext_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustInstanceFromContext did not panic")
		}
	}()
	MustInstanceFromContext(context.Background())
}

func TestInstanceCtx(t *testing.T) {
	ts := newTestServer(t)
	inst := ts.createInstance(types.DriverFunnel, "inbound", nil)
	h := NewHandler(ts.store, instance.NewService(ts.store), nil, nil, "test")

	var seen *types.DriverInstance
	router := chi.NewRouter()
	router.With(h.InstanceCtx).Get("/instances/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = MustInstanceFromContext(r.Context())
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/instances/"+inst.ID, nil))
	if seen == nil || seen.ID != inst.ID || seen.Template == nil {
		t.Errorf("context instance = %+v, want %s with template", seen, inst.ID)
	}

	seen = nil
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/instances/"+missingID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if seen != nil {
		t.Error("handler ran for a missing instance")
	}
}
