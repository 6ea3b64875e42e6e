package fieldcfg

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// settingType is the stored type discriminator for field-config rows.
const settingType = "user_config"

// Store provides database operations for per-tenant field configurations.
type Store struct {
	pool *pgxpool.Pool

	// OnParseFallback, if set, is called whenever a stored row fails to
	// decode and the field falls back to its default.
	OnParseFallback func(tenant string, key FieldKey)
}

// NewStore creates a new field-config store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Load returns the full configuration snapshot for a tenant. Every field key
// is present in the result: keys with no stored row, an unknown stored key,
// or a malformed stored value fall back to the hard-coded default for that
// field only. Load fails only when the query itself fails.
func (s *Store) Load(ctx context.Context, tenant string) (map[FieldKey]Config, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT setting_key, setting_value
		 FROM tenant_settings
		 WHERE tenant_id = $1 AND setting_type = $2`,
		tenant, settingType)
	if err != nil {
		return nil, fmt.Errorf("loading field configs: %w", err)
	}
	defer rows.Close()

	configs := Defaults()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning field config row: %w", err)
		}

		fk := FieldKey(key)
		if !fk.Valid() {
			slog.Warn("skipping unknown field config key", "tenant", tenant, "key", key)
			continue
		}

		cfg, err := Decode(fk, value)
		if err != nil {
			// Malformed row: keep the default for this field, load the rest.
			slog.Warn("field config failed to parse, using default",
				"tenant", tenant, "key", key, "error", err)
			if s.OnParseFallback != nil {
				s.OnParseFallback(tenant, fk)
			}
			continue
		}
		configs[fk] = cfg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading field config rows: %w", err)
	}

	return configs, nil
}

// Save upserts the configuration for a single field. The caller sees the
// failure directly; nothing is retried or absorbed here.
func (s *Store) Save(ctx context.Context, tenant string, key FieldKey, cfg Config) error {
	data, err := Encode(key, cfg)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO tenant_settings (tenant_id, setting_key, setting_value, setting_type, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (tenant_id, setting_key)
		 DO UPDATE SET setting_value = EXCLUDED.setting_value, updated_at = now()`,
		tenant, string(key), data, settingType)
	if err != nil {
		return fmt.Errorf("saving field config %q: %w", key, err)
	}
	return nil
}
