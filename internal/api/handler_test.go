package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jmcnally/provisor/internal/fieldcfg"
	"github.com/jmcnally/provisor/internal/metrics"
	"github.com/jmcnally/provisor/internal/ratelimit"
	"github.com/jmcnally/provisor/internal/staging"
)

// fakeConfigStore satisfies staging.ConfigStore without a database.
type fakeConfigStore struct{}

func (fakeConfigStore) Load(_ context.Context, _ string) (map[fieldcfg.FieldKey]fieldcfg.Config, error) {
	return fieldcfg.Defaults(), nil
}

func (fakeConfigStore) Save(_ context.Context, _ string, _ fieldcfg.FieldKey, _ fieldcfg.Config) error {
	return nil
}

// newTestRouter builds a router with in-memory dependencies only. Routes
// that hit the database are not exercised here; their logic is covered by
// the store and engine package tests.
func newTestRouter(adminKey string) http.Handler {
	return NewRouter(RouterDeps{
		Sessions: staging.NewManager(fakeConfigStore{}, time.Hour),
		Limiter:  ratelimit.New(100, time.Minute),
		Metrics:  metrics.New(),
		AdminKey: adminKey,
		Version:  "test",
	})
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter("")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestWellKnownManifest(t *testing.T) {
	router := newTestRouter("")

	req := httptest.NewRequest(http.MethodGet, "/.well-known/provisor.json", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var manifest map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&manifest); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if manifest["name"] != "Provisor" {
		t.Errorf("unexpected manifest name: %v", manifest["name"])
	}
	if _, ok := manifest["endpoints"]; !ok {
		t.Error("manifest missing endpoints section")
	}
}

func TestRequestIDHeader(t *testing.T) {
	router := newTestRouter("")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated X-Request-ID header")
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "client-supplied-id" {
		t.Errorf("expected client request id to be echoed, got %q", got)
	}
}

func TestSecureHeaders(t *testing.T) {
	router := newTestRouter("")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := NewRouter(RouterDeps{
		Sessions:    staging.NewManager(fakeConfigStore{}, time.Hour),
		Limiter:     ratelimit.New(100, time.Minute),
		Metrics:     metrics.New(),
		CORSOrigins: []string{"https://console.example.com"},
		Version:     "test",
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "https://console.example.com")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://console.example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	// Unlisted origin gets no allow header.
	req = httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow header for unlisted origin, got %q", got)
	}
}

func TestAdminRoutesRequireKey(t *testing.T) {
	router := newTestRouter("test-admin-key")

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"no auth", "", http.StatusUnauthorized},
		{"wrong key", "Bearer wrong", http.StatusUnauthorized},
		{"valid key", "Bearer test-admin-key", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/ping", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rr.Code)
			}
		})
	}
}

func TestAdminInfo(t *testing.T) {
	router := newTestRouter("test-admin-key")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/info", nil)
	req.Header.Set("Authorization", "Bearer test-admin-key")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["name"] != "provisor" {
		t.Errorf("unexpected name: %v", body["name"])
	}
	if body["version"] != "test" {
		t.Errorf("unexpected version: %v", body["version"])
	}
}

func TestAdminMetricsSummary(t *testing.T) {
	router := newTestRouter("test-admin-key")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/metrics", nil)
	req.Header.Set("Authorization", "Bearer test-admin-key")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var summary metrics.Summary
	if err := json.NewDecoder(rr.Body).Decode(&summary); err != nil {
		t.Fatalf("decoding summary: %v", err)
	}
	if summary.Mode != "live" {
		t.Errorf("expected live mode, got %q", summary.Mode)
	}
}

func TestAdminRateLimitHeaders(t *testing.T) {
	router := NewRouter(RouterDeps{
		Sessions: staging.NewManager(fakeConfigStore{}, time.Hour),
		Limiter:  ratelimit.New(2, time.Minute),
		Metrics:  metrics.New(),
		AdminKey: "test-admin-key",
		Version:  "test",
	})

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/ping", nil)
		req.Header.Set("Authorization", "Bearer test-admin-key")
		last = httptest.NewRecorder()
		router.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third request, got %d", last.Code)
	}
	if last.Header().Get("X-RateLimit-Limit") != "2" {
		t.Errorf("X-RateLimit-Limit = %q", last.Header().Get("X-RateLimit-Limit"))
	}
	var body errorEnvelope
	if err := json.NewDecoder(last.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error envelope: %v", err)
	}
	if body.Error.Code != "rate_limited" {
		t.Errorf("expected rate_limited code, got %q", body.Error.Code)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	router := newTestRouter("")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}
