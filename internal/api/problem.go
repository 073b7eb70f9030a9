package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/driverlib/internal/driver"
	"github.com/hyperengineering/driverlib/internal/graph"
	"github.com/hyperengineering/driverlib/internal/period"
	"github.com/hyperengineering/driverlib/internal/store"
	"github.com/hyperengineering/driverlib/internal/validation"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// problemTypes maps HTTP status codes to RFC 7807 type URIs and titles.
var problemTypes = map[int]struct {
	typeURI string
	title   string
}{
	http.StatusBadRequest: {
		typeURI: "https://driverlib.dev/errors/bad-request",
		title:   "Bad Request",
	},
	http.StatusNotFound: {
		typeURI: "https://driverlib.dev/errors/not-found",
		title:   "Not Found",
	},
	http.StatusConflict: {
		typeURI: "https://driverlib.dev/errors/conflict",
		title:   "Conflict",
	},
	http.StatusUnprocessableEntity: {
		typeURI: "https://driverlib.dev/errors/validation-error",
		title:   "Validation Error",
	},
	http.StatusInternalServerError: {
		typeURI: "https://driverlib.dev/errors/internal-error",
		title:   "Internal Server Error",
	},
}

// WriteProblem writes an RFC 7807 Problem Details response.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeProblem(w, status, problemFor(r, status, detail))
}

// ProblemWithErrors extends Problem with validation error details.
type ProblemWithErrors struct {
	Problem
	Errors []validation.ValidationError `json:"errors,omitempty"`
}

// WriteProblemWithErrors writes a 422 Problem Details response with field errors.
func WriteProblemWithErrors(w http.ResponseWriter, r *http.Request, detail string, errs []validation.ValidationError) {
	writeProblem(w, http.StatusUnprocessableEntity, ProblemWithErrors{
		Problem: problemFor(r, http.StatusUnprocessableEntity, detail),
		Errors:  errs,
	})
}

func problemFor(r *http.Request, status int, detail string) Problem {
	pt, ok := problemTypes[status]
	if !ok {
		pt.typeURI = "https://driverlib.dev/errors/unknown"
		pt.title = http.StatusText(status)
	}
	return Problem{
		Type:     pt.typeURI,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}
}

func writeProblem(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode problem response", "error", err)
	}
}

// MapError converts domain errors to Problem Details responses. Validation
// and configuration failures are 422, missing rows 404, duplicate edges 409.
// Anything else is logged and reported as a bare 500.
func MapError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs *validation.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		WriteProblemWithErrors(w, r, "Request contains invalid fields", verrs.Errors)
	case errors.Is(err, store.ErrTemplateNotFound),
		errors.Is(err, driver.ErrUnknownDriverType),
		errors.Is(err, graph.ErrCycle),
		errors.Is(err, graph.ErrSelfDependency),
		errors.Is(err, period.ErrInvalidRange),
		errors.Is(err, period.ErrRangeTooLarge):
		WriteProblem(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, store.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Resource not found")
	case errors.Is(err, store.ErrDuplicateDependency):
		WriteProblem(w, r, http.StatusConflict, "Dependency already exists")
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		// Never expose internal error details to client
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}
