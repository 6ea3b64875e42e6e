package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmcnally/provisor/internal/audit"
	"github.com/jmcnally/provisor/internal/auth"
)

// auditor records administrative actions both to the structured log and to
// the async audit collector. A nil collector disables persistence but keeps
// the log entries.
type auditor struct {
	collector *audit.Collector
}

// record emits one audit entry for the given request. detail may be nil.
func (a *auditor) record(r *http.Request, tenant, action, resourceType, resourceID string, detail map[string]any, success bool) {
	attrs := []any{
		"action", action,
		"resource_type", resourceType,
		"resource_id", resourceID,
		"tenant", tenant,
		"success", success,
		"ip", clientIP(r),
		"request_id", RequestIDFromContext(r.Context()),
	}

	ev := audit.Event{
		Tenant:       tenant,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Timestamp:    time.Now().UTC(),
		RequestID:    RequestIDFromContext(r.Context()),
		Success:      success,
	}

	if op := auth.OperatorFromContext(r.Context()); op != nil {
		attrs = append(attrs, "operator_id", op.ID, "operator_email", op.Email)
		ev.ActorID = op.ID
		ev.ActorEmail = op.Email
	}

	if len(detail) > 0 {
		if b, err := json.Marshal(detail); err == nil {
			ev.Detail = string(b)
		}
		for k, v := range detail {
			attrs = append(attrs, k, v)
		}
	}

	slog.Info("audit", attrs...)

	if a.collector != nil {
		a.collector.Record(ev)
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
