// Package directory is the HTTP client for the external directory service
// that actually provisions users. The engine decides which groups, apps and
// fields apply; this client only carries the decision over the wire.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUpstream indicates the directory rejected or failed the request.
var ErrUpstream = errors.New("directory request failed")

// ProvisionRequest is the new-user submission sent to the directory. Groups
// and Applications carry exactly the reconciled selected sets at submit time.
type ProvisionRequest struct {
	FirstName           string   `json:"firstName"`
	LastName            string   `json:"lastName"`
	Email               string   `json:"email"`
	Password            string   `json:"password,omitempty"`
	Title               string   `json:"title,omitempty"`
	Manager             string   `json:"manager,omitempty"`
	Department          string   `json:"department,omitempty"`
	EmployeeType        string   `json:"employeeType,omitempty"`
	Groups              []string `json:"groups"`
	Applications        []string `json:"applications"`
	SendActivationEmail bool     `json:"sendActivationEmail"`
}

// ProvisionResult is the directory's answer to a provision request.
type ProvisionResult struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// Endpoint identifies one tenant's directory service.
type Endpoint struct {
	BaseURL string
	Token   string
}

// Client talks to tenant directory services. One client serves all tenants;
// the per-tenant endpoint is passed per call.
type Client struct {
	httpClient      *http.Client
	maxResponseSize int64
}

// NewClient creates a directory client with the given request timeout and
// response size cap.
func NewClient(timeout time.Duration, maxResponseSize int64) *Client {
	return &Client{
		httpClient:      &http.Client{Timeout: timeout},
		maxResponseSize: maxResponseSize,
	}
}

// ProvisionUser submits a new user to the tenant's directory.
func (c *Client) ProvisionUser(ctx context.Context, ep Endpoint, req ProvisionRequest) (*ProvisionResult, error) {
	if req.Groups == nil {
		req.Groups = []string{}
	}
	if req.Applications == nil {
		req.Applications = []string{}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding provision request: %w", err)
	}

	url := strings.TrimRight(ep.BaseURL, "/") + "/api/users"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building provision request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if ep.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+ep.Token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading provision response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, truncate(string(data), 200))
	}

	result := &ProvisionResult{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return nil, fmt.Errorf("decoding provision response: %w", err)
		}
	}
	return result, nil
}

// Ping checks connectivity to a tenant's directory service.
func (c *Client) Ping(ctx context.Context, ep Endpoint) error {
	url := strings.TrimRight(ep.BaseURL, "/") + "/api/ping"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building ping request: %w", err)
	}
	if ep.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+ep.Token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxResponseSize))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
