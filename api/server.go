/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/tracking/*       Check-in, check-out, pauses, status
  /api/days/*           Work day records
  /api/entries/*        Manual entry edits
  /api/summary/*        Week/month aggregation
  /api/achievements/*   Progress catalog
  /api/settings         Configuration
  /api/scenarios/*      Demo scenarios (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public. Bind
  to localhost for single-user deployments.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/attendanced/main.go: Server startup
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

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Tracking routes
		r.Route("/tracking", func(r chi.Router) {
			r.Get("/status", h.GetStatus)
			r.Post("/checkin", h.CheckIn)
			r.Post("/checkout", h.CheckOut)
			r.Post("/pause", h.StartPause)
			r.Post("/resume", h.EndPause)
		})

		// Work day routes
		r.Route("/days", func(r chi.Router) {
			r.Get("/", h.ListWorkDays)
			r.Get("/{date}", h.GetWorkDay)
			r.Put("/{date}/status", h.SetDayStatus)
		})

		// Entry routes
		r.Route("/entries", func(r chi.Router) {
			r.Put("/{id}", h.EditEntry)
			r.Delete("/{id}", h.DeleteEntry)
		})

		// Summary routes
		r.Route("/summary", func(r chi.Router) {
			r.Get("/week", h.WeekSummary)
			r.Get("/month", h.MonthSummary)
		})
		r.Get("/balance", h.GetBalance)
		r.Get("/compliance", h.CheckCompliance)

		// Achievement routes
		r.Route("/achievements", func(r chi.Router) {
			r.Get("/", h.ListAchievements)
			r.Get("/streak", h.GetStreak)
		})

		// Settings routes
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)

		// Scenario routes (demo data)
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
