package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/tenantkit/pkg/httpserver"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/pkg/tenantdb"
	"github.com/dmitrymomot/tenantkit/svc/provisioning"
)

// Admin is the operator surface of the provisioning service.
type Admin interface {
	Provision(ctx context.Context, slug, name string) (provisioning.Tenant, error)
	List(ctx context.Context) ([]tenant.DirectoryEntry, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Activate(ctx context.Context, id uuid.UUID) error
	IssueAPIKey(ctx context.Context, id uuid.UUID, name string) (string, error)
}

// Settings is the per-tenant settings store.
type Settings interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
	Put(ctx context.Context, key string, value json.RawMessage) error
	List(ctx context.Context) ([]tenantdb.Setting, error)
}

// Counter increments tenant-scoped counters.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// Deps are the collaborators of the router. Counter and Gatherer are optional.
type Deps struct {
	Logger     *slog.Logger
	Tenancy    func(http.Handler) http.Handler
	Admin      Admin
	AdminToken string
	Settings   Settings
	Counter    Counter
	Checks     []httpserver.Check
	Gatherer   prometheus.Gatherer
}

// NewRouter builds the tenantd HTTP surface. Health, metrics and admin routes
// must be on the tenant middleware's skip list; everything under /api runs
// with a bound tenant.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	h := &handlers{deps: d, logger: d.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if d.Tenancy != nil {
		r.Use(d.Tenancy)
	}

	r.Get("/healthz", httpserver.Liveness())
	r.Get("/readyz", httpserver.Readiness(d.Logger, d.Checks...))
	r.Handle("/metrics", metricsHandler(d.Gatherer))

	r.Route("/admin", func(r chi.Router) {
		r.Use(adminOnly(d.AdminToken))
		r.Get("/tenants", h.listTenants)
		r.Post("/tenants", h.provisionTenant)
		r.Post("/tenants/{id}/deactivate", h.setActive(false))
		r.Post("/tenants/{id}/activate", h.setActive(true))
		r.Post("/tenants/{id}/api-keys", h.issueAPIKey)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(tenant.RequireTenant(TenantErrorHandler(d.Logger)))
		r.Get("/whoami", h.whoami)
		r.Get("/settings", h.listSettings)
		r.Get("/settings/{key}", h.getSetting)
		r.Put("/settings/{key}", h.putSetting)
		r.Post("/visits", h.countVisit)
	})

	return r
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RequestIDExtractor adds the chi request id to log records.
func RequestIDExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := middleware.GetReqID(ctx); id != "" {
			return logger.RequestID(id), true
		}
		return slog.Attr{}, false
	}
}
