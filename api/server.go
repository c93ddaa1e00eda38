/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       The terminal UI is served from its own local origin

ROUTE GROUPS:
  /api/login          Passcode login
  /api/inventory      Catalog reads
  /api/activity       Ledger reads
  /api/borrows        Borrow transactions and status
  /api/settlements    Settlement transactions
  /api/import/*       Spreadsheet imports
  /api/export/*       Spreadsheet exports

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
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)

		r.Get("/inventory", h.ListInventory)
		r.Get("/activity", h.ListActivity)

		r.Route("/borrows", func(r chi.Router) {
			r.Post("/", h.CreateBorrow)
			r.Get("/{id}", h.GetBorrowStatus)
		})

		r.Post("/settlements", h.CreateSettlement)

		r.Route("/import", func(r chi.Router) {
			r.Post("/inventory", h.ImportInventory)
			r.Post("/users", h.ImportUsers)
		})

		r.Post("/export/activity", h.ExportActivity)
	})

	return r
}
