package tenant

import "time"

// Tenant represents one managed organization in the console. Each tenant
// points at its own directory service endpoint; the API credential for that
// endpoint is encrypted at rest.
type Tenant struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	DirectoryURL string    `json:"directory_url"`
	// DirectoryToken is decrypted on read and never serialized.
	DirectoryToken string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateTenantInput holds the fields required to register a tenant.
type CreateTenantInput struct {
	Slug           string `json:"slug"`
	Name           string `json:"name"`
	DirectoryURL   string `json:"directory_url"`
	DirectoryToken string `json:"directory_token"`
}

// UpdateTenantInput holds optional fields for a partial tenant update.
type UpdateTenantInput struct {
	Name           *string `json:"name,omitempty"`
	DirectoryURL   *string `json:"directory_url,omitempty"`
	DirectoryToken *string `json:"directory_token,omitempty"`
}
