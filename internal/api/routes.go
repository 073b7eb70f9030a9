package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Get("/templates", h.ListTemplates)
		r.Get("/templates/{id}", h.GetTemplate)
		r.Post("/calculate", h.Calculate)

		r.Route("/instances", func(r chi.Router) {
			r.Get("/", h.ListInstances)
			r.Post("/", h.CreateInstance)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.InstanceCtx)
				r.Get("/", h.GetInstance)
				r.Patch("/", h.UpdateInstance)
				r.Delete("/", h.DeleteInstance)
				r.Post("/generate", h.Generate)
				r.Get("/results", h.ListResults)
				r.Post("/regenerate", h.Regenerate)
				r.Get("/dependencies", h.InstanceDependencies)
			})
		})

		r.Post("/dependencies", h.CreateDependency)
		r.Delete("/dependencies/{id}", h.DeleteDependency)
	})

	return r
}
