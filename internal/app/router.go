package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/acero-crm/acero-crm/internal/agents"
	"github.com/acero-crm/acero-crm/internal/auth"
	"github.com/acero-crm/acero-crm/internal/catalog"
	"github.com/acero-crm/acero-crm/internal/crm/clients"
	"github.com/acero-crm/acero-crm/internal/crm/pipeline"
	"github.com/acero-crm/acero-crm/internal/invoices"
	"github.com/acero-crm/acero-crm/internal/observability"
	"github.com/acero-crm/acero-crm/internal/quotes"
	"github.com/acero-crm/acero-crm/internal/rbac"
	"github.com/acero-crm/acero-crm/internal/reports"
	"github.com/acero-crm/acero-crm/internal/shared"
	"github.com/acero-crm/acero-crm/internal/users"
	"github.com/acero-crm/acero-crm/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
	RBACMiddleware rbac.Middleware

	AuthHandler     *auth.Handler
	UsersHandler    *users.Handler
	RBACHandler     *rbac.Handler
	QuotesHandler   *quotes.Handler
	CatalogHandler  *catalog.Handler
	ClientsHandler  *clients.Handler
	PipelineHandler *pipeline.Handler
	InvoicesHandler *invoices.Handler
	ReportsHandler  *reports.Handler
	AgentsHandler   *agents.Handler
	JobsHandler     *jobs.Handler
}

// NewRouter constructs the chi router serving the JSON API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	guard := params.RBACMiddleware

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/users", func(r chi.Router) {
		params.UsersHandler.MountRoutes(r, guard)
	})
	if params.RBACHandler != nil {
		r.Route("/roles", func(r chi.Router) {
			params.RBACHandler.MountRoutes(r, guard)
		})
	}
	r.Route("/quotes", func(r chi.Router) {
		params.QuotesHandler.MountRoutes(r, guard)
	})
	r.Route("/catalog", func(r chi.Router) {
		params.CatalogHandler.MountRoutes(r, guard)
	})
	r.Route("/clients", func(r chi.Router) {
		params.ClientsHandler.MountRoutes(r, guard)
	})
	r.Route("/pipeline", func(r chi.Router) {
		params.PipelineHandler.MountRoutes(r, guard)
	})
	r.Route("/invoices", func(r chi.Router) {
		params.InvoicesHandler.MountRoutes(r, guard)
	})
	r.Route("/reports", func(r chi.Router) {
		params.ReportsHandler.MountRoutes(r, guard)
	})
	r.Route("/agents", func(r chi.Router) {
		params.AgentsHandler.MountRoutes(r, guard)
	})
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
