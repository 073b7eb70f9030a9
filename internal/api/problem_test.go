package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hyperengineering/driverlib/internal/driver"
	"github.com/hyperengineering/driverlib/internal/graph"
	"github.com/hyperengineering/driverlib/internal/period"
	"github.com/hyperengineering/driverlib/internal/store"
	"github.com/hyperengineering/driverlib/internal/validation"
)

func TestWriteProblem_BodyFormat(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/instances/abc", nil)

	WriteProblem(w, r, http.StatusNotFound, "Resource not found")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %v, want application/problem+json", ct)
	}

	var got Problem
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := Problem{
		Type:     "https://driverlib.dev/errors/not-found",
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Detail:   "Resource not found",
		Instance: "/api/v1/instances/abc",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("problem (-want +got):\n%s", diff)
	}
}

func TestWriteProblem_UnknownStatus(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteProblem(w, r, http.StatusTeapot, "short and stout")

	var got Problem
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "https://driverlib.dev/errors/unknown" || got.Title != http.StatusText(http.StatusTeapot) {
		t.Errorf("problem = %+v, want unknown type with status text title", got)
	}
}

func TestWriteProblemWithErrors_422(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/instances", nil)

	errs := []validation.ValidationError{
		{Field: "name", Message: "is required"},
		{Field: "inputs.cac", Message: "must be at least 0.01"},
	}
	WriteProblemWithErrors(w, r, "Request contains invalid fields", errs)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
	var got ProblemWithErrors
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "https://driverlib.dev/errors/validation-error" {
		t.Errorf("type = %v", got.Type)
	}
	if diff := cmp.Diff(errs, got.Errors); diff != "" {
		t.Errorf("errors (-want +got):\n%s", diff)
	}
}

func TestMapError(t *testing.T) {
	var verrs validation.Collector
	verrs.Add(&validation.ValidationError{Field: "mapping", Message: "must map at least one field"})

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantFields int
	}{
		{"validation", fmt.Errorf("link: %w", verrs.Err()), http.StatusUnprocessableEntity, 1},
		{"cycle", fmt.Errorf("%w: a already depends on b", graph.ErrCycle), http.StatusUnprocessableEntity, 0},
		{"self", graph.ErrSelfDependency, http.StatusUnprocessableEntity, 0},
		{"invalid range", period.ErrInvalidRange, http.StatusUnprocessableEntity, 0},
		{"range too large", period.ErrRangeTooLarge, http.StatusUnprocessableEntity, 0},
		{"unknown driver", driver.ErrUnknownDriverType, http.StatusUnprocessableEntity, 0},
		{"template missing", fmt.Errorf("template x: %w", store.ErrTemplateNotFound), http.StatusUnprocessableEntity, 0},
		{"not found", fmt.Errorf("instance: %w", store.ErrNotFound), http.StatusNotFound, 0},
		{"duplicate edge", store.ErrDuplicateDependency, http.StatusConflict, 0},
		{"store failure", errors.New("disk I/O error at /var/db"), http.StatusInternalServerError, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureLogs(t)
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/v1/test", nil)

			MapError(w, r, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var got ProblemWithErrors
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(got.Errors) != tt.wantFields {
				t.Errorf("errors = %+v, want %d field errors", got.Errors, tt.wantFields)
			}
		})
	}
}

func TestMapError_InternalDetailsHidden(t *testing.T) {
	captureLogs(t)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)

	MapError(w, r, errors.New("database is locked: /var/lib/driverlib/drivers.db"))

	if strings.Contains(w.Body.String(), "/var/lib") {
		t.Errorf("internal error leaked: %s", w.Body)
	}
}
