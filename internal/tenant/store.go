package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmcnally/provisor/internal/crypto"
)

// Validation errors returned by the tenant store.
var (
	ErrSlugRequired       = errors.New("slug is required")
	ErrNameRequired       = errors.New("name is required")
	ErrDirectoryURLInvalid = errors.New("directory_url must be a valid URL")
)

// Store provides database operations for tenants. Directory tokens are
// encrypted with the given cipher before they touch the database; a nil
// cipher stores them in the clear.
type Store struct {
	pool   *pgxpool.Pool
	cipher *crypto.Cipher
}

// NewStore creates a new tenant store backed by the given pool and cipher.
func NewStore(pool *pgxpool.Pool, cipher *crypto.Cipher) *Store {
	return &Store{pool: pool, cipher: cipher}
}

func validateCreate(in CreateTenantInput) error {
	if strings.TrimSpace(in.Slug) == "" {
		return ErrSlugRequired
	}
	if strings.TrimSpace(in.Name) == "" {
		return ErrNameRequired
	}
	return validateDirectoryURL(in.DirectoryURL)
}

func validateDirectoryURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrDirectoryURLInvalid
	}
	return nil
}

func (s *Store) scanTenant(scan func(dest ...any) error) (*Tenant, error) {
	t := &Tenant{}
	var encToken string
	if err := scan(&t.ID, &t.Slug, &t.Name, &t.DirectoryURL, &encToken, &t.CreatedAt); err != nil {
		return nil, err
	}
	token, err := s.cipher.Decrypt(encToken)
	if err != nil {
		return nil, fmt.Errorf("decrypting directory token: %w", err)
	}
	t.DirectoryToken = token
	return t, nil
}

// Create validates and inserts a new tenant.
func (s *Store) Create(ctx context.Context, in CreateTenantInput) (*Tenant, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	encToken, err := s.cipher.Encrypt(in.DirectoryToken)
	if err != nil {
		return nil, fmt.Errorf("encrypting directory token: %w", err)
	}

	t, err := s.scanTenant(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO tenants (slug, name, directory_url, directory_token)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, slug, name, directory_url, directory_token, created_at`,
			in.Slug, in.Name, in.DirectoryURL, encToken,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("creating tenant: %w", err)
	}
	return t, nil
}

// GetBySlug retrieves a tenant by its slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	t, err := s.scanTenant(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT id, slug, name, directory_url, directory_token, created_at
			 FROM tenants WHERE slug = $1`, slug,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("getting tenant by slug: %w", err)
	}
	return t, nil
}

// List returns all tenants ordered by created_at DESC.
func (s *Store) List(ctx context.Context) ([]*Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, slug, name, directory_url, directory_token, created_at
		 FROM tenants ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*Tenant
	for rows.Next() {
		t, err := s.scanTenant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning tenant row: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// Update performs a partial update on the tenant with the given slug.
func (s *Store) Update(ctx context.Context, slug string, in UpdateTenantInput) (*Tenant, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	if in.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *in.Name)
		argIdx++
	}
	if in.DirectoryURL != nil {
		if err := validateDirectoryURL(*in.DirectoryURL); err != nil {
			return nil, err
		}
		setClauses = append(setClauses, fmt.Sprintf("directory_url = $%d", argIdx))
		args = append(args, *in.DirectoryURL)
		argIdx++
	}
	if in.DirectoryToken != nil {
		encToken, err := s.cipher.Encrypt(*in.DirectoryToken)
		if err != nil {
			return nil, fmt.Errorf("encrypting directory token: %w", err)
		}
		setClauses = append(setClauses, fmt.Sprintf("directory_token = $%d", argIdx))
		args = append(args, encToken)
		argIdx++
	}

	if len(setClauses) == 0 {
		return s.GetBySlug(ctx, slug)
	}

	args = append(args, slug)
	query := fmt.Sprintf(
		`UPDATE tenants SET %s WHERE slug = $%d
		 RETURNING id, slug, name, directory_url, directory_token, created_at`,
		strings.Join(setClauses, ", "), argIdx,
	)

	t, err := s.scanTenant(func(dest ...any) error {
		return s.pool.QueryRow(ctx, query, args...).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("updating tenant: %w", err)
	}
	return t, nil
}

// Delete removes a tenant by slug. The tenant's settings, mappings and
// audit events are removed by ON DELETE CASCADE.
func (s *Store) Delete(ctx context.Context, slug string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tenants WHERE slug = $1`, slug)
	if err != nil {
		return fmt.Errorf("deleting tenant: %w", err)
	}
	return nil
}
