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
  /api/accounts/*   Chart of accounts + per-account ledger
  /api/entries/*    Journal entries: post, list, reverse
  /api/events       Auto-posting of business events
  /api/reports/*    Trial balance and financial statements

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
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Chart of accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
			r.Put("/{id}", h.UpdateAccount)
			r.Delete("/{id}", h.DeleteAccount)
			r.Get("/{id}/ledger", h.GetAccountLedger)
		})

		// Journal entries
		r.Route("/entries", func(r chi.Router) {
			r.Get("/", h.ListEntries)
			r.Post("/", h.CreateEntry)
			r.Get("/{id}", h.GetEntry)
			r.Post("/{id}/reverse", h.ReverseEntry)
		})

		// Business events
		r.Post("/events", h.PostEvent)

		// Reports
		r.Route("/reports", func(r chi.Router) {
			r.Get("/trial-balance", h.TrialBalance)
			r.Get("/income-statement", h.IncomeStatement)
			r.Get("/balance-sheet", h.BalanceSheet)
			r.Get("/cash-flow", h.CashFlow)
		})
	})

	return r
}
