package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeSessions implements SessionLookup with a fixed token table.
type fakeSessions struct {
	operators map[string]*Operator
}

func (f *fakeSessions) LookupSession(_ context.Context, token string) (*Operator, error) {
	op, ok := f.operators[token]
	if !ok {
		return nil, errors.New("not found")
	}
	return op, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdminKeyMiddleware(t *testing.T) {
	const adminKey = "super-secret-admin-key"

	tests := []struct {
		name       string
		key        string
		authHeader string
		wantStatus int
	}{
		{"valid admin key", adminKey, "Bearer " + adminKey, http.StatusOK},
		{"wrong admin key", adminKey, "Bearer wrong-key", http.StatusUnauthorized},
		{"missing header", adminKey, "", http.StatusUnauthorized},
		{"malformed header", adminKey, "Basic " + adminKey, http.StatusUnauthorized},
		{"no key configured", "", "Bearer anything", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			AdminKeyMiddleware(tt.key)(okHandler()).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantStatus != http.StatusOK {
				assertJSONError(t, rr)
			}
		})
	}
}

func TestOperatorAuthMiddleware(t *testing.T) {
	sessions := &fakeSessions{operators: map[string]*Operator{
		"good-token": {ID: "op-1", Email: "ada@corp.example.com", Role: "operator"},
	}}

	var captured *Operator
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = OperatorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rr := httptest.NewRecorder()
	OperatorAuthMiddleware(sessions)(inner).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if captured == nil || captured.ID != "op-1" {
		t.Errorf("operator not injected into context: %+v", captured)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rr = httptest.NewRecorder()
	OperatorAuthMiddleware(sessions)(inner).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad token, got %d", rr.Code)
	}
	assertJSONError(t, rr)
}

func TestRequireAdminRole(t *testing.T) {
	tests := []struct {
		name       string
		op         *Operator
		wantStatus int
	}{
		{"admin allowed", &Operator{ID: "op-1", Role: "admin"}, http.StatusOK},
		{"operator forbidden", &Operator{ID: "op-2", Role: "operator"}, http.StatusForbidden},
		{"no operator", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.op != nil {
				req = req.WithContext(ContextWithOperator(req.Context(), tt.op))
			}
			rr := httptest.NewRecorder()

			RequireAdminRole(okHandler()).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
		})
	}
}

func TestPrincipalFromContext(t *testing.T) {
	ctx := ContextWithOperator(context.Background(), &Operator{ID: "op-9"})
	if got := PrincipalFromContext(ctx); got != "operator:op-9" {
		t.Errorf("principal = %q", got)
	}
	if got := PrincipalFromContext(context.Background()); got != "" {
		t.Errorf("expected empty principal, got %q", got)
	}
}

// assertJSONError checks that the response body carries the error envelope.
func assertJSONError(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	var body errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("response is not the JSON error envelope: %v", err)
	}
	if body.Error.Code == "" || body.Error.Message == "" {
		t.Errorf("incomplete error envelope: %+v", body)
	}
}
