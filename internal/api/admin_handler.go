package api

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/jmcnally/provisor/internal/audit"
	"github.com/jmcnally/provisor/internal/operator"
	"github.com/jmcnally/provisor/internal/staging"
)

// adminHandler groups deployment-level admin HTTP handlers.
type adminHandler struct {
	operators  *operator.Store
	auditStore *audit.Store
	sessions   *staging.Manager
	version    string
	startedAt  time.Time
}

func newAdminHandler(operators *operator.Store, auditStore *audit.Store, sessions *staging.Manager, version string) *adminHandler {
	return &adminHandler{
		operators:  operators,
		auditStore: auditStore,
		sessions:   sessions,
		version:    version,
		startedAt:  time.Now().UTC(),
	}
}

// Ping handles GET /api/v1/admin/ping.
func (h *adminHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Info handles GET /api/v1/admin/info.
func (h *adminHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":            "provisor",
		"version":         h.version,
		"go_version":      runtime.Version(),
		"started_at":      h.startedAt.Format(time.RFC3339),
		"uptime_seconds":  int64(time.Since(h.startedAt).Seconds()),
		"config_sessions": h.sessions.Count(),
	})
}

// CreateOperator handles POST /api/v1/admin/operators.
func (h *adminHandler) CreateOperator(w http.ResponseWriter, r *http.Request) {
	var input operator.CreateOperatorInput
	if err := readJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if input.Email == "" || input.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "email and password are required")
		return
	}
	if input.Role != "admin" && input.Role != "operator" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "role must be admin or operator")
		return
	}

	op, err := h.operators.Create(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create operator")
		return
	}

	writeJSON(w, http.StatusCreated, op)
}

// ListOperators handles GET /api/v1/admin/operators.
func (h *adminHandler) ListOperators(w http.ResponseWriter, r *http.Request) {
	ops, err := h.operators.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list operators")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"operators": ops})
}

// ListAuditEvents handles GET /api/v1/admin/audit.
func (h *adminHandler) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	q := audit.Query{
		Tenant: r.URL.Query().Get("tenant"),
		Action: r.URL.Query().Get("action"),
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", "from must be an RFC 3339 timestamp")
			return
		}
		q.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", "to must be an RFC 3339 timestamp")
			return
		}
		q.To = t
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 1 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		q.Limit = l
	}

	events, err := h.auditStore.List(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list audit events")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
