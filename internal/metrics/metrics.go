package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds all Prometheus metric collectors for the Provisor console.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Field configuration metrics.
	ConfigLoadsTotal          *prometheus.CounterVec
	ConfigSavesTotal          *prometheus.CounterVec
	ConfigParseFallbacksTotal *prometheus.CounterVec

	// Selection engine metrics.
	ReconcileOpsTotal    prometheus.Counter
	LinkageDegradedTotal prometheus.Counter

	// Provisioning metrics.
	ProvisionRequestsTotal  *prometheus.CounterVec
	ProvisionDuration       prometheus.Histogram
	ValidationFailuresTotal *prometheus.CounterVec
	PasswordsGeneratedTotal prometheus.Counter

	// Staged edit sessions.
	ConfigSessionsActive prometheus.Gauge

	// Rate limiting.
	RateLimitRejectionsTotal prometheus.Counter

	// Audit collector metrics.
	AuditBufferSize    prometheus.Gauge
	AuditFlushesTotal  *prometheus.CounterVec
	AuditFlushDuration prometheus.Histogram
	AuditEventsTotal   prometheus.Counter

	// Auth metrics.
	AuthFailuresTotal  *prometheus.CounterVec
	AuthSuccessesTotal *prometheus.CounterVec

	// Server lifecycle.
	ServerStartTime prometheus.Gauge
}

// New creates and registers all Prometheus metrics on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provisor_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "provisor_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path_pattern"}),

		ConfigLoadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provisor_field_config_loads_total",
			Help: "Total number of field configuration loads.",
		}, []string{"tenant"}),

		ConfigSavesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provisor_field_config_saves_total",
			Help: "Total number of field configuration saves.",
		}, []string{"tenant", "field"}),

		ConfigParseFallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provisor_field_config_parse_fallbacks_total",
			Help: "Total number of stored configurations that failed to parse and fell back to defaults.",
		}, []string{"field"}),

		ReconcileOpsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "provisor_reconcile_ops_total",
			Help: "Total number of selection reconciliation operations.",
		}),

		LinkageDegradedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "provisor_linkage_degraded_total",
			Help: "Total number of reconciliations performed without link mappings available.",
		}),

		ProvisionRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provisor_provision_requests_total",
			Help: "Total number of user provisioning requests by outcome.",
		}, []string{"status"}),

		ProvisionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "provisor_provision_duration_seconds",
			Help:    "Duration of upstream directory provisioning calls in seconds.",
			Buckets: prometheus.DefBuckets,
		}),

		ValidationFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provisor_validation_failures_total",
			Help: "Total number of field validation failures.",
		}, []string{"field"}),

		PasswordsGeneratedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "provisor_passwords_generated_total",
			Help: "Total number of passwords generated from tenant policy.",
		}),

		ConfigSessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "provisor_config_sessions_active",
			Help: "Number of active staged configuration sessions.",
		}),

		RateLimitRejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "provisor_ratelimit_rejections_total",
			Help: "Total number of rate limit rejections.",
		}),

		AuditBufferSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "provisor_audit_buffer_size",
			Help: "Current number of buffered audit events.",
		}),

		AuditFlushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provisor_audit_flushes_total",
			Help: "Total number of audit collector flushes.",
		}, []string{"status"}),

		AuditFlushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "provisor_audit_flush_duration_seconds",
			Help:    "Duration of audit collector flush operations in seconds.",
			Buckets: prometheus.DefBuckets,
		}),

		AuditEventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "provisor_audit_events_total",
			Help: "Total number of audit events recorded.",
		}),

		AuthFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provisor_auth_failures_total",
			Help: "Total number of authentication failures.",
		}, []string{"auth_type"}),

		AuthSuccessesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provisor_auth_successes_total",
			Help: "Total number of successful authentications.",
		}, []string{"auth_type"}),

		ServerStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "provisor_server_start_time_seconds",
			Help: "Unix timestamp when the server started.",
		}),
	}

	// Register all metrics.
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ConfigLoadsTotal,
		m.ConfigSavesTotal,
		m.ConfigParseFallbacksTotal,
		m.ReconcileOpsTotal,
		m.LinkageDegradedTotal,
		m.ProvisionRequestsTotal,
		m.ProvisionDuration,
		m.ValidationFailuresTotal,
		m.PasswordsGeneratedTotal,
		m.ConfigSessionsActive,
		m.RateLimitRejectionsTotal,
		m.AuditBufferSize,
		m.AuditFlushesTotal,
		m.AuditFlushDuration,
		m.AuditEventsTotal,
		m.AuthFailuresTotal,
		m.AuthSuccessesTotal,
		m.ServerStartTime,
	)

	// Set server start time.
	m.ServerStartTime.Set(float64(time.Now().Unix()))

	// Register Go runtime and process collectors.
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return m
}

// Registry returns the private Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterDBPoolCollector registers a custom DB pool stats collector.
func (m *Metrics) RegisterDBPoolCollector(statFunc DBPoolStatFunc) {
	m.registry.MustRegister(NewDBPoolCollector(statFunc))
}

// ObserveHTTPRequest records a completed HTTP request.
func (m *Metrics) ObserveHTTPRequest(method, pathPattern string, statusCode int, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, fmt.Sprintf("%d", statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(seconds)
}

// IncConfigLoad increments the field configuration load counter.
func (m *Metrics) IncConfigLoad(tenant string) {
	m.ConfigLoadsTotal.WithLabelValues(tenant).Inc()
}

// IncConfigSave increments the field configuration save counter.
func (m *Metrics) IncConfigSave(tenant, field string) {
	m.ConfigSavesTotal.WithLabelValues(tenant, field).Inc()
}

// IncParseFallback increments the default-fallback counter for a field.
func (m *Metrics) IncParseFallback(field string) {
	m.ConfigParseFallbacksTotal.WithLabelValues(field).Inc()
}

// IncProvisionRequest increments the provisioning counter for the given outcome.
func (m *Metrics) IncProvisionRequest(status string) {
	m.ProvisionRequestsTotal.WithLabelValues(status).Inc()
}

// IncValidationFailure increments the validation failure counter for a field.
func (m *Metrics) IncValidationFailure(field string) {
	m.ValidationFailuresTotal.WithLabelValues(field).Inc()
}

// IncAuthFailure increments the auth failure counter for the given auth type.
func (m *Metrics) IncAuthFailure(authType string) {
	m.AuthFailuresTotal.WithLabelValues(authType).Inc()
}

// IncAuthSuccess increments the auth success counter for the given auth type.
func (m *Metrics) IncAuthSuccess(authType string) {
	m.AuthSuccessesTotal.WithLabelValues(authType).Inc()
}
