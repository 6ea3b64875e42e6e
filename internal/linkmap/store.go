package linkmap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for link mappings.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new link-mapping store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ListFamily returns the flat mapping list for one family, ordered by source
// value then target name.
func (s *Store) ListFamily(ctx context.Context, tenant string, family Family) ([]Mapping, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT source_value, target_name
		 FROM link_mappings
		 WHERE tenant_id = $1 AND family = $2
		 ORDER BY source_value, target_name`,
		tenant, string(family))
	if err != nil {
		return nil, fmt.Errorf("listing %s mappings: %w", family, err)
	}
	defer rows.Close()

	var mappings []Mapping
	for rows.Next() {
		var m Mapping
		if err := rows.Scan(&m.SourceValue, &m.TargetName); err != nil {
			return nil, fmt.Errorf("scanning mapping row: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// ListAll returns the mapping lists for all four families.
func (s *Store) ListAll(ctx context.Context, tenant string) (map[Family][]Mapping, error) {
	out := make(map[Family][]Mapping, len(AllFamilies()))
	for _, f := range AllFamilies() {
		mappings, err := s.ListFamily(ctx, tenant, f)
		if err != nil {
			return nil, err
		}
		out[f] = mappings
	}
	return out, nil
}

// ReplaceFamily atomically replaces one family's mapping list for a tenant.
// Passing an empty list clears the family.
func (s *Store) ReplaceFamily(ctx context.Context, tenant string, family Family, mappings []Mapping) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning mapping replace: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM link_mappings WHERE tenant_id = $1 AND family = $2`,
		tenant, string(family)); err != nil {
		return fmt.Errorf("clearing %s mappings: %w", family, err)
	}

	for _, m := range mappings {
		if _, err := tx.Exec(ctx,
			`INSERT INTO link_mappings (tenant_id, family, source_value, target_name)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (tenant_id, family, source_value, target_name) DO NOTHING`,
			tenant, string(family), m.SourceValue, m.TargetName); err != nil {
			return fmt.Errorf("inserting %s mapping: %w", family, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing mapping replace: %w", err)
	}
	return nil
}
