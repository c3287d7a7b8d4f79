/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (logging.RequestLogger)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the voucher frontend

ROUTE GROUPS:
  /api/calculate/*      Stateless calculator
  /api/vouchers/*       Voucher CRUD and postings
  /api/accounts/*       Chart of accounts
  /api/products/*       Products
  /api/reports/*        Ledger statement and trial balance
  /api/scenarios/*      Demo scenarios
  /api/health           Store ping
  /*                    Static files (frontend), when built

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/voucher-ledger/logging"
)

// RouterOptions configures the outer surface of the router.
type RouterOptions struct {
	AllowedOrigins []string

	// StaticDir holds a built frontend. Empty or missing serves a short
	// index page instead.
	StaticDir string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/calculate", func(r chi.Router) {
			r.Post("/line-item", h.CalculateLineItem)
			r.Post("/discount", h.CalculateDiscount)
			r.Post("/ledger", h.CalculateLedger)
			r.Post("/invoice", h.CalculateInvoice)
			r.Post("/payment", h.CalculatePayment)
		})

		r.Route("/vouchers", func(r chi.Router) {
			r.Get("/", h.ListVouchers)
			r.Post("/", h.CreateVoucher)
			r.Post("/validate", h.ValidateVoucher)
			r.Get("/{id}", h.GetVoucher)
			r.Put("/{id}", h.UpdateVoucher)
			r.Delete("/{id}", h.DeleteVoucher)
			r.Get("/{id}/postings", h.GetVoucherPostings)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
		})

		r.Get("/policies", h.ListPolicies)
		r.Get("/health", h.Health)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/ledger/{account}", h.GetLedgerReport)
			r.Get("/trial-balance", h.GetTrialBalance)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	staticDir := opts.StaticDir
	if staticDir != "" {
		if _, err := os.Stat(staticDir); err != nil {
			staticDir = ""
		}
	}

	if staticDir != "" {
		fileServer := http.FileServer(http.Dir(staticDir))
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			fullPath := filepath.Join(staticDir, r.URL.Path)
			// SPA routing: unknown paths get index.html
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			fileServer.ServeHTTP(w, r)
		})
	} else {
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Voucher Ledger</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Voucher Ledger API</h1>
<ul>
<li><a href="/api/vouchers">/api/vouchers</a> - List vouchers</li>
<li><a href="/api/accounts">/api/accounts</a> - Chart of accounts</li>
<li><a href="/api/reports/trial-balance">/api/reports/trial-balance</a> - Trial balance</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
</ul>
</body>
</html>`))
		})
	}

	return r
}
