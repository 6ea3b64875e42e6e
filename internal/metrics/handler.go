package metrics

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
)

// Summary is the JSON response for the metrics endpoint.
type Summary struct {
	Mode         string           `json:"mode"`
	HTTP         httpSummary      `json:"http"`
	FieldConfig  fieldConfigInfo  `json:"fieldConfig"`
	Selection    selectionInfo    `json:"selection"`
	Provisioning provisioningInfo `json:"provisioning"`
	Sessions     sessionsInfo     `json:"sessions"`
	RateLimit    rateLimitInfo    `json:"rateLimit"`
	Audit        auditInfo        `json:"audit"`
	Auth         authInfo         `json:"auth"`
	DB           dbInfo           `json:"db"`
	Server       serverInfo       `json:"server"`
}

type httpSummary struct {
	TotalRequests float64 `json:"totalRequests"`
	ErrorRate     float64 `json:"errorRate"`
	P50Latency    float64 `json:"p50Latency"`
	P95Latency    float64 `json:"p95Latency"`
	P99Latency    float64 `json:"p99Latency"`
}

type fieldConfigInfo struct {
	Loads          float64 `json:"loads"`
	Saves          float64 `json:"saves"`
	ParseFallbacks float64 `json:"parseFallbacks"`
}

type selectionInfo struct {
	ReconcileOps    float64 `json:"reconcileOps"`
	LinkageDegraded float64 `json:"linkageDegraded"`
}

type provisioningInfo struct {
	TotalRequests      float64 `json:"totalRequests"`
	Failures           float64 `json:"failures"`
	ValidationFailures float64 `json:"validationFailures"`
	PasswordsGenerated float64 `json:"passwordsGenerated"`
	P95Upstream        float64 `json:"p95Upstream"`
}

type sessionsInfo struct {
	Active float64 `json:"active"`
}

type rateLimitInfo struct {
	Rejections float64 `json:"rejections"`
}

type auditInfo struct {
	BufferSize   float64 `json:"bufferSize"`
	TotalFlushes float64 `json:"totalFlushes"`
	FlushErrors  float64 `json:"flushErrors"`
	Events       float64 `json:"events"`
}

type authInfo struct {
	Failures  float64 `json:"failures"`
	Successes float64 `json:"successes"`
}

type dbInfo struct {
	TotalConns    float64 `json:"totalConns"`
	IdleConns     float64 `json:"idleConns"`
	AcquiredConns float64 `json:"acquiredConns"`
}

type serverInfo struct {
	StartTime     float64 `json:"startTime"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// Handler returns an http.HandlerFunc that serves live metrics in JSON format.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.handleLive(w)
	}
}

func (m *Metrics) handleLive(w http.ResponseWriter) {
	families, err := m.registry.Gather()
	if err != nil {
		http.Error(w, "failed to gather metrics", http.StatusInternalServerError)
		return
	}

	fam := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		fam[f.GetName()] = f
	}

	summary := Summary{
		Mode: "live",
		HTTP: httpSummary{
			TotalRequests: sumCounter(fam["provisor_http_requests_total"]),
			ErrorRate:     computeErrorRate(fam["provisor_http_requests_total"]),
			P50Latency:    histogramPercentile(fam["provisor_http_request_duration_seconds"], 0.50),
			P95Latency:    histogramPercentile(fam["provisor_http_request_duration_seconds"], 0.95),
			P99Latency:    histogramPercentile(fam["provisor_http_request_duration_seconds"], 0.99),
		},
		FieldConfig: fieldConfigInfo{
			Loads:          sumCounter(fam["provisor_field_config_loads_total"]),
			Saves:          sumCounter(fam["provisor_field_config_saves_total"]),
			ParseFallbacks: sumCounter(fam["provisor_field_config_parse_fallbacks_total"]),
		},
		Selection: selectionInfo{
			ReconcileOps:    counterValue(fam["provisor_reconcile_ops_total"]),
			LinkageDegraded: counterValue(fam["provisor_linkage_degraded_total"]),
		},
		Provisioning: provisioningInfo{
			TotalRequests:      sumCounter(fam["provisor_provision_requests_total"]),
			Failures:           counterWithLabel(fam["provisor_provision_requests_total"], "status", "error"),
			ValidationFailures: sumCounter(fam["provisor_validation_failures_total"]),
			PasswordsGenerated: counterValue(fam["provisor_passwords_generated_total"]),
			P95Upstream:        histogramPercentile(fam["provisor_provision_duration_seconds"], 0.95),
		},
		Sessions: sessionsInfo{
			Active: gaugeValue(fam["provisor_config_sessions_active"]),
		},
		RateLimit: rateLimitInfo{
			Rejections: counterValue(fam["provisor_ratelimit_rejections_total"]),
		},
		Audit: auditInfo{
			BufferSize:   gaugeValue(fam["provisor_audit_buffer_size"]),
			TotalFlushes: sumCounter(fam["provisor_audit_flushes_total"]),
			FlushErrors:  counterWithLabel(fam["provisor_audit_flushes_total"], "status", "error"),
			Events:       counterValue(fam["provisor_audit_events_total"]),
		},
		Auth: authInfo{
			Failures:  sumCounter(fam["provisor_auth_failures_total"]),
			Successes: sumCounter(fam["provisor_auth_successes_total"]),
		},
		DB: dbInfo{
			TotalConns:    gaugeValue(fam["provisor_db_pool_total_conns"]),
			IdleConns:     gaugeValue(fam["provisor_db_pool_idle_conns"]),
			AcquiredConns: gaugeValue(fam["provisor_db_pool_acquired_conns"]),
		},
		Server: serverInfo{
			StartTime:     gaugeValue(fam["provisor_server_start_time_seconds"]),
			UptimeSeconds: float64(time.Now().Unix()) - gaugeValue(fam["provisor_server_start_time_seconds"]),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	_ = json.NewEncoder(w).Encode(summary)
}

// --- Prometheus metric helpers ---

func sumCounter(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	var total float64
	for _, m := range f.GetMetric() {
		if m.GetCounter() != nil {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func gaugeValue(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	ms := f.GetMetric()
	if len(ms) == 0 {
		return 0
	}
	if ms[0].GetGauge() != nil {
		return ms[0].GetGauge().GetValue()
	}
	return 0
}

func counterValue(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	ms := f.GetMetric()
	if len(ms) == 0 {
		return 0
	}
	if ms[0].GetCounter() != nil {
		return ms[0].GetCounter().GetValue()
	}
	return 0
}

func counterWithLabel(f *dto.MetricFamily, labelName, labelValue string) float64 {
	if f == nil {
		return 0
	}
	for _, m := range f.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == labelName && lp.GetValue() == labelValue {
				if m.GetCounter() != nil {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func computeErrorRate(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	var total, errors float64
	for _, m := range f.GetMetric() {
		if m.GetCounter() == nil {
			continue
		}
		v := m.GetCounter().GetValue()
		total += v
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "status_code" {
				code := lp.GetValue()
				if len(code) > 0 && code[0] >= '4' {
					errors += v
				}
			}
		}
	}
	if total == 0 {
		return 0
	}
	return errors / total
}

// histogramPercentile computes a percentile from aggregated histogram buckets
// using linear interpolation.
func histogramPercentile(f *dto.MetricFamily, q float64) float64 {
	if f == nil {
		return 0
	}

	// Aggregate all histogram metrics in the family.
	type bucket struct {
		upperBound      float64
		cumulativeCount uint64
	}
	var totalCount uint64
	bucketMap := make(map[float64]uint64)

	for _, m := range f.GetMetric() {
		h := m.GetHistogram()
		if h == nil {
			continue
		}
		totalCount += h.GetSampleCount()
		for _, b := range h.GetBucket() {
			bucketMap[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}

	if totalCount == 0 {
		return 0
	}

	buckets := make([]bucket, 0, len(bucketMap))
	for ub, count := range bucketMap {
		buckets = append(buckets, bucket{upperBound: ub, cumulativeCount: count})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].upperBound < buckets[j].upperBound
	})

	rank := q * float64(totalCount)

	var prevBound float64
	var prevCount uint64
	for _, b := range buckets {
		if math.IsInf(b.upperBound, 1) {
			break
		}
		if float64(b.cumulativeCount) >= rank {
			// Linear interpolation within this bucket.
			bucketCount := b.cumulativeCount - prevCount
			if bucketCount == 0 {
				return b.upperBound
			}
			fraction := (rank - float64(prevCount)) / float64(bucketCount)
			return prevBound + fraction*(b.upperBound-prevBound)
		}
		prevBound = b.upperBound
		prevCount = b.cumulativeCount
	}

	// If we didn't find it, return the last finite bucket upper bound.
	if len(buckets) > 0 {
		for i := len(buckets) - 1; i >= 0; i-- {
			if !math.IsInf(buckets[i].upperBound, 1) {
				return buckets[i].upperBound
			}
		}
	}
	return 0
}
