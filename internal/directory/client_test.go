package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestProvisionUser(t *testing.T) {
	var gotAuth string
	var gotBody ProvisionRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(ProvisionResult{UserID: "u-123", Status: "active"})
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, 1<<20)
	result, err := c.ProvisionUser(context.Background(), Endpoint{BaseURL: srv.URL, Token: "tok"}, ProvisionRequest{
		FirstName:           "Ada",
		LastName:            "Lovelace",
		Email:               "ada@corp.example.com",
		Groups:              []string{"eng-all"},
		Applications:        []string{"GitHub", "Slack"},
		SendActivationEmail: true,
	})
	if err != nil {
		t.Fatalf("ProvisionUser failed: %v", err)
	}

	if result.UserID != "u-123" {
		t.Errorf("user id = %q", result.UserID)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("authorization header = %q", gotAuth)
	}
	if len(gotBody.Applications) != 2 || !gotBody.SendActivationEmail {
		t.Errorf("submitted body = %+v", gotBody)
	}
}

func TestProvisionUserNilSlicesSerializeAsEmptyLists(t *testing.T) {
	var raw map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, 1<<20)
	if _, err := c.ProvisionUser(context.Background(), Endpoint{BaseURL: srv.URL}, ProvisionRequest{}); err != nil {
		t.Fatalf("ProvisionUser failed: %v", err)
	}

	if _, ok := raw["groups"].([]any); !ok {
		t.Errorf("groups not serialized as a list: %v", raw["groups"])
	}
	if _, ok := raw["applications"].([]any); !ok {
		t.Errorf("applications not serialized as a list: %v", raw["applications"])
	}
}

func TestProvisionUserUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "directory unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, 1<<20)
	_, err := c.ProvisionUser(context.Background(), Endpoint{BaseURL: srv.URL}, ProvisionRequest{})
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ping" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, 1<<20)
	if err := c.Ping(context.Background(), Endpoint{BaseURL: srv.URL}); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	srv.Close()
	if err := c.Ping(context.Background(), Endpoint{BaseURL: srv.URL}); !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream after close, got %v", err)
	}
}
