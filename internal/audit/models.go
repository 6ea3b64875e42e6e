package audit

import "time"

// Event records one administrative action: a field-config save, a mapping
// replacement, a tenant change, or a provisioning submission.
type Event struct {
	ID            string    `json:"id"`
	Tenant        string    `json:"tenant"`
	ActorID       string    `json:"actor_id"`
	ActorEmail    string    `json:"actor_email"`
	Action        string    `json:"action"`
	ResourceType  string    `json:"resource_type"`
	ResourceID    string    `json:"resource_id"`
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id"`
	Detail        string    `json:"detail,omitempty"`
	Success       bool      `json:"success"`
}

// Query defines filters and pagination for listing audit events.
type Query struct {
	Tenant string    `json:"tenant,omitempty"`
	Action string    `json:"action,omitempty"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	Limit  int       `json:"limit"`
}
