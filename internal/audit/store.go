package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for audit events.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new audit store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// BatchInsert writes a slice of events in a single multi-row INSERT.
// It is a no-op when events is empty.
func (s *Store) BatchInsert(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	const cols = 10
	args := make([]any, 0, len(events)*cols)
	rows := make([]string, 0, len(events))

	for i, ev := range events {
		base := i * cols
		rows = append(rows, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10,
		))
		ts := ev.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		args = append(args,
			ev.Tenant,
			ev.ActorID,
			ev.ActorEmail,
			ev.Action,
			ev.ResourceType,
			ev.ResourceID,
			ts,
			ev.RequestID,
			ev.Detail,
			ev.Success,
		)
	}

	query := fmt.Sprintf(
		`INSERT INTO audit_events
		 (tenant_id, actor_id, actor_email, action, resource_type, resource_id, timestamp, request_id, detail, success)
		 VALUES %s`,
		strings.Join(rows, ", "),
	)

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting audit events: %w", err)
	}
	return nil
}

// List returns events matching the query, newest first.
func (s *Store) List(ctx context.Context, q Query) ([]Event, error) {
	var conds []string
	var args []any
	argIdx := 1

	if q.Tenant != "" {
		conds = append(conds, fmt.Sprintf("tenant_id = $%d", argIdx))
		args = append(args, q.Tenant)
		argIdx++
	}
	if q.Action != "" {
		conds = append(conds, fmt.Sprintf("action = $%d", argIdx))
		args = append(args, q.Action)
		argIdx++
	}
	if !q.From.IsZero() {
		conds = append(conds, fmt.Sprintf("timestamp >= $%d", argIdx))
		args = append(args, q.From)
		argIdx++
	}
	if !q.To.IsZero() {
		conds = append(conds, fmt.Sprintf("timestamp <= $%d", argIdx))
		args = append(args, q.To)
		argIdx++
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	limit := q.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT id, tenant_id, actor_id, actor_email, action, resource_type, resource_id, timestamp, request_id, detail, success
		 FROM audit_events %s ORDER BY timestamp DESC LIMIT $%d`,
		where, argIdx,
	)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Tenant, &ev.ActorID, &ev.ActorEmail, &ev.Action,
			&ev.ResourceType, &ev.ResourceID, &ev.Timestamp, &ev.RequestID, &ev.Detail, &ev.Success); err != nil {
			return nil, fmt.Errorf("scanning audit event row: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
