/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard

ROUTE GROUPS:
  /api/orders/*     Order registration and computed views
  /api/renewals/*   Offer token resolution
  /api/admin/*      Manual job and scan triggers

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Order routes
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.CreateOrder)
			r.Get("/{id}", h.GetOrder)
			r.Get("/{id}/remaining", h.GetRemaining)
			r.Get("/{id}/history", h.GetHistory)
			r.Get("/{id}/history.csv", h.ExportHistoryCSV)
			r.Get("/{id}/renewal-projection", h.GetRenewalProjection)
			r.Post("/{id}/status", h.ChangeStatus)
		})

		// Renewal routes
		r.Route("/renewals", func(r chi.Router) {
			r.Get("/offers/{token}", h.GetOffer)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/run-daily-job", h.RunDailyJob)
			r.Post("/renewal-scan", h.RunRenewalScan)
		})
	})

	return r
}
