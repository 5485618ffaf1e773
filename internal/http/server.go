// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"splitledger/internal/log"
	"splitledger/internal/metrics"
	"splitledger/internal/middleware/auth"
	"splitledger/internal/middleware/ratelimit"
	"splitledger/internal/middleware/security"
	"splitledger/internal/middleware/trace"
	"splitledger/internal/services"
)

// Services bundles everything the handlers call into.
type Services struct {
	Expenses    *services.ExpenseService
	Recurring   *services.RecurringService
	SplitConfig *services.SplitConfigService
	Settlements *services.SettlementService
	Categories  *services.CategoryService
	Analytics   *services.AnalyticsService
	Export      *services.ExportService
}

// RouterConfig wires the router. Metrics, Limiter, Health and Now may be nil.
type RouterConfig struct {
	Services Services
	Auth     *auth.Manager
	Metrics  *metrics.Metrics
	Logger   *log.Logger
	Limiter  *ratelimit.Limiter
	IPs      *security.IPExtractor
	Health   func(ctx context.Context) error
	Now      func() time.Time
}

type handlers struct {
	svc Services
	now func() time.Time
}

// NewRouter builds the API routes.
func NewRouter(cfg RouterConfig) http.Handler {
	h := &handlers{svc: cfg.Services, now: cfg.Now}
	if h.now == nil {
		h.now = func() time.Time { return time.Now().UTC() }
	}
	ips := cfg.IPs
	if ips == nil {
		ips = security.NewIPExtractor()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	r := chi.NewRouter()
	r.Use(log.Middleware(logger.WithComponent(log.ComponentHTTP)))
	r.Use(trace.NewMiddleware(ips.ClientIP, cfg.Metrics).Handler)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", healthHandler(cfg.Health))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cfg.Auth.Middleware(authFailed))
		if cfg.Limiter != nil {
			r.Use(cfg.Limiter.Middleware(ownerOrIP(ips), rateLimited))
		}

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", h.listExpenses)
			r.Post("/", h.createExpense)
			r.Get("/{id}", h.getExpense)
			r.Patch("/{id}", h.updateExpense)
			r.Delete("/{id}", h.deleteExpense)
		})

		r.Route("/recurring", func(r chi.Router) {
			r.Get("/", h.listTemplates)
			r.Get("/upcoming", h.upcoming)
			r.Post("/{id}/generate", h.generate)
			r.Post("/{id}/pause", h.pause)
			r.Post("/{id}/resume", h.resume)
			r.Post("/{id}/skip", h.skip)
		})

		r.Get("/split-config", h.getSplitConfig)
		r.Put("/split-config", h.updateSplitConfig)

		r.Route("/settlements", func(r chi.Router) {
			r.Get("/", h.listSettlements)
			r.Get("/unsettled", h.unsettledMonths)
			r.Get("/{month}", h.settlementSummary)
			r.Post("/{month}/settle", h.markSettled)
			r.Delete("/{month}/settle", h.unmarkSettled)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.listCategories)
			r.Post("/", h.createCategory)
			r.Get("/budgets", h.categoryBudgets)
			r.Get("/{id}", h.getCategory)
			r.Patch("/{id}", h.updateCategory)
			r.Delete("/{id}", h.deleteCategory)
			r.Put("/{id}/budget", h.setBudget)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/trend", h.monthlyTrend)
			r.Get("/categories", h.categorySpending)
			r.Get("/insights", h.insights)
		})

		r.Get("/export.csv", h.exportCSV)
		r.Post("/export/sheet", h.exportSheet)
	})

	return r
}

// ownerOrIP keys rate limiting by the authenticated owner, falling back to
// the client address.
func ownerOrIP(ips *security.IPExtractor) func(*http.Request) string {
	return func(r *http.Request) string {
		if owner := auth.OwnerFromContext(r.Context()); owner != "" {
			return "owner:" + owner
		}
		return "ip:" + ips.ClientIP(r)
	}
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				log.FromContext(r.Context()).WarnContext(r.Context(), "Health check failed", log.FieldError, err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Server is the API listener with idempotent shutdown.
type Server struct {
	http.Server
	shutdownOnce sync.Once
}

// NewServer returns a server for handler listening on addr.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}
