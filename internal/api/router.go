package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmcnally/provisor/internal/audit"
	"github.com/jmcnally/provisor/internal/auth"
	"github.com/jmcnally/provisor/internal/directory"
	"github.com/jmcnally/provisor/internal/fieldcfg"
	"github.com/jmcnally/provisor/internal/linkmap"
	"github.com/jmcnally/provisor/internal/metrics"
	"github.com/jmcnally/provisor/internal/operator"
	"github.com/jmcnally/provisor/internal/ratelimit"
	"github.com/jmcnally/provisor/internal/staging"
	"github.com/jmcnally/provisor/internal/tenant"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	FieldConfigs *fieldcfg.Store
	Mappings     *linkmap.Store
	Tenants      *tenant.Store
	Operators    *operator.Store
	Sessions     *staging.Manager
	Directory    *directory.Client
	AuditStore   *audit.Store
	Collector    *audit.Collector
	Limiter      *ratelimit.Limiter
	Metrics      *metrics.Metrics
	AdminKey     string
	CORSOrigins  []string
	Version      string
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.CORSOrigins))
	r.Use(slogRequestLogger)
	r.Use(metricsMiddleware(deps.Metrics))

	// Handlers.
	aud := &auditor{collector: deps.Collector}
	authH := newAuthHandler(deps.Operators, deps.Metrics)
	adminH := newAdminHandler(deps.Operators, deps.AuditStore, deps.Sessions, deps.Version)
	tenantsH := newTenantsHandler(deps.Tenants, deps.Directory, aud)
	fieldsH := newFieldConfigHandler(deps.FieldConfigs, aud, deps.Metrics)
	mappingsH := newMappingsHandler(deps.Mappings, aud)
	sessionsH := newSessionsHandler(deps.Sessions, deps.Mappings, aud, deps.Metrics)
	provisionH := newProvisionHandler(deps.FieldConfigs, deps.Mappings, deps.Directory, aud, deps.Metrics)

	operatorAuth := auth.OperatorAuthMiddleware(operator.NewAuthAdapter(deps.Operators))

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Well-known manifest.
	r.Get("/.well-known/provisor.json", WellKnownHandler)

	// Operator authentication.
	r.Post("/api/v1/auth/login", authH.Login)
	r.Post("/api/v1/auth/logout", authH.Logout)
	r.Group(func(gr chi.Router) {
		gr.Use(operatorAuth)
		gr.Get("/api/v1/auth/me", authH.Me)
	})

	// Admin routes (require admin key).
	r.Route("/api/v1/admin", func(ar chi.Router) {
		ar.Use(auth.AdminKeyMiddleware(deps.AdminKey))
		ar.Use(ratelimit.Middleware(deps.Limiter, deps.Metrics.RateLimitRejectionsTotal.Inc))

		ar.Get("/ping", adminH.Ping)
		ar.Get("/info", adminH.Info)
		ar.Get("/metrics", deps.Metrics.Handler())
		ar.Get("/audit", adminH.ListAuditEvents)

		ar.Post("/operators", adminH.CreateOperator)
		ar.Get("/operators", adminH.ListOperators)

		ar.Post("/tenants", tenantsH.CreateTenant)
		ar.Get("/tenants", tenantsH.ListTenants)
		ar.Get("/tenants/{tenant}", tenantsH.GetTenant)
		ar.Put("/tenants/{tenant}", tenantsH.UpdateTenant)
		ar.Delete("/tenants/{tenant}", tenantsH.DeleteTenant)
		ar.Get("/tenants/{tenant}/ping-directory", tenantsH.PingDirectory)
	})

	// Tenant-scoped operator routes.
	r.Route("/api/v1/tenants/{tenant}", func(tr chi.Router) {
		tr.Use(operatorAuth)
		tr.Use(ratelimit.Middleware(deps.Limiter, deps.Metrics.RateLimitRejectionsTotal.Inc))
		tr.Use(tenantContextMiddleware(deps.Tenants))

		// Field configuration.
		tr.Get("/field-configs", fieldsH.ListFieldConfigs)
		tr.Get("/field-configs/{key}", fieldsH.GetFieldConfig)
		tr.Put("/field-configs/{key}", fieldsH.PutFieldConfig)

		// Attribute link mappings.
		tr.Get("/mappings/{family}", mappingsH.GetMappings)
		tr.Put("/mappings/{family}", mappingsH.PutMappings)

		// Staged configuration sessions.
		tr.Post("/config-sessions", sessionsH.CreateSession)
		tr.Route("/config-sessions/{token}", func(sr chi.Router) {
			sr.Get("/", sessionsH.GetSnapshot)
			sr.Delete("/", sessionsH.DeleteSession)
			sr.Post("/focus", sessionsH.Focus)
			sr.Get("/fields/{key}", sessionsH.GetField)
			sr.Put("/fields/{key}", sessionsH.PutField)
			sr.Post("/fields/{key}/save", sessionsH.SaveField)
			sr.Post("/fields/{key}/discard", sessionsH.DiscardField)
			sr.Post("/fields/{key}/mapping-editor", sessionsH.RegisterMappingEditor)
			sr.Delete("/fields/{key}/mapping-editor", sessionsH.UnregisterMappingEditor)
		})

		// Selection engine and provisioning.
		tr.Post("/selection/reconcile", provisionH.Reconcile)
		tr.Post("/password/generate", provisionH.GeneratePassword)
		tr.Get("/validation-rules", provisionH.ValidationRules)
		tr.Post("/users", provisionH.ProvisionUser)
	})

	return r
}

// slogRequestLogger is a simple structured logging middleware using slog.
func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", ww.BytesWritten(),
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}

// metricsMiddleware records request counts and latency, labeled by the chi
// route pattern rather than the raw path.
func metricsMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = "unmatched"
			}
			m.ObserveHTTPRequest(r.Method, pattern, ww.Status(), time.Since(start).Seconds())
		})
	}
}
