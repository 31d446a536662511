/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests from the staff web form

ROUTE GROUPS:
  /api/units, /api/positions, /api/deduction-table, /api/employees
                        Deduction catalog (read-only)
  /api/calculate        Deduction of one deviation
  /api/attendance       Attendance records

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

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

// RouterOptions tunes the router.
type RouterOptions struct {
	// AllowedOrigins for CORS. Defaults to every origin.
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.NotFound(NotFound)

	r.Route("/api", func(r chi.Router) {
		// Catalog routes
		r.Get("/units", h.ListUnits)
		r.Get("/positions", h.ListPositions)
		r.Get("/deduction-table", h.GetDeductionTable)
		r.Get("/employees", h.ListEmployees)
		r.Post("/calculate", h.Calculate)

		// Attendance routes
		r.Route("/attendance", func(r chi.Router) {
			r.Get("/", h.ListAttendance)
			r.Get("/{id}", h.GetAttendance)
			r.Post("/", h.SaveAttendance)
			r.Put("/", h.UpdateAttendance)
			r.Delete("/", h.DeleteAttendance)
		})
	})

	return r
}
