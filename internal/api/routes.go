package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/schedule", func(r chi.Router) {
			r.Post("/generate", h.GenerateSchedule)
			r.Post("/optimize", h.OptimizeSchedule)
			r.Get("/summary", h.ScheduleSummary)
		})

		r.Post("/revenue/estimate", h.EstimateRevenue)

		r.Route("/admission", func(r chi.Router) {
			r.Post("/check", h.CheckAdmission)
			r.Post("/reset", h.ResetAdmissionWindow)
			r.Get("/usage", h.AdmissionUsage)
		})
	})

	return r
}
