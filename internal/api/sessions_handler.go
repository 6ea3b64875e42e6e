package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jmcnally/provisor/internal/fieldcfg"
	"github.com/jmcnally/provisor/internal/linkmap"
	"github.com/jmcnally/provisor/internal/metrics"
	"github.com/jmcnally/provisor/internal/staging"
)

// sessionsHandler groups staged configuration session HTTP handlers.
//
// A session holds pending, unsaved edits server-side. Edits become visible
// to other readers only after an explicit save; moving focus to a different
// field discards that field's pending edit, with the mapping-editor
// registration as the one exception.
type sessionsHandler struct {
	manager  *staging.Manager
	mappings *linkmap.Store
	audit    *auditor
	metrics  *metrics.Metrics
}

func newSessionsHandler(manager *staging.Manager, mappings *linkmap.Store, audit *auditor, m *metrics.Metrics) *sessionsHandler {
	return &sessionsHandler{manager: manager, mappings: mappings, audit: audit, metrics: m}
}

// CreateSession handles POST /api/v1/tenants/{tenant}/config-sessions.
func (h *sessionsHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	t := TenantFromContext(r.Context())

	token, _, err := h.manager.Create(r.Context(), t.Slug)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create configuration session")
		return
	}

	h.metrics.ConfigSessionsActive.Set(float64(h.manager.Count()))

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
	})
}

// DeleteSession handles DELETE /api/v1/tenants/{tenant}/config-sessions/{token}.
// Pending edits are discarded.
func (h *sessionsHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	h.manager.Delete(chi.URLParam(r, "token"))
	h.metrics.ConfigSessionsActive.Set(float64(h.manager.Count()))
	w.WriteHeader(http.StatusNoContent)
}

// GetSnapshot handles GET /api/v1/tenants/{tenant}/config-sessions/{token}.
// The response is the session's effective view: pending edits over saved
// configs over defaults.
func (h *sessionsHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fields": encodeConfigMap(sess.EffectiveSnapshot()),
	})
}

// GetField handles GET .../config-sessions/{token}/fields/{key}.
func (h *sessionsHandler) GetField(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	key, ok := h.fieldKey(w, r)
	if !ok {
		return
	}

	cfg, err := sess.Effective(key)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "unknown field key")
		return
	}

	raw, err := fieldcfg.Encode(key, cfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to encode field configuration")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"key":     key,
		"config":  json.RawMessage(raw),
		"unsaved": sess.HasUnsavedChanges(key),
	})
}

// PutField handles PUT .../config-sessions/{token}/fields/{key}. The edit
// is staged in the session; nothing is persisted until save.
func (h *sessionsHandler) PutField(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	key, ok := h.fieldKey(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to read request body")
		return
	}

	cfg, err := fieldcfg.Decode(key, body)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	if err := sess.SetPending(key, cfg); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SaveField handles POST .../config-sessions/{token}/fields/{key}/save.
// On failure the pending edit is retained so the operator can retry.
func (h *sessionsHandler) SaveField(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	key, ok := h.fieldKey(w, r)
	if !ok {
		return
	}

	t := TenantFromContext(r.Context())

	if err := sess.SaveField(r.Context(), key); err != nil {
		h.audit.record(r, t.Slug, "save", "field_config", string(key), nil, false)
		writeError(w, http.StatusInternalServerError, "save_failed", "failed to save field configuration; pending edit retained")
		return
	}

	h.metrics.IncConfigSave(t.Slug, string(key))
	h.audit.record(r, t.Slug, "save", "field_config", string(key),
		map[string]any{"via": "session"}, true)

	w.WriteHeader(http.StatusNoContent)
}

// DiscardField handles POST .../config-sessions/{token}/fields/{key}/discard.
func (h *sessionsHandler) DiscardField(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	key, ok := h.fieldKey(w, r)
	if !ok {
		return
	}

	sess.DiscardField(key)
	w.WriteHeader(http.StatusNoContent)
}

// Focus handles POST .../config-sessions/{token}/focus. Moving focus away
// from a field discards its pending edit; registered mapping editors
// survive the move.
func (h *sessionsHandler) Focus(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Field fieldcfg.FieldKey `json:"field"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if err := sess.Focus(req.Field); err != nil {
		if errors.Is(err, staging.ErrUnknownField) {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "unknown field key")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to change focus")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RegisterMappingEditor handles
// POST .../config-sessions/{token}/fields/{key}/mapping-editor. The staged
// mapping replacement is applied when the owning field is saved.
func (h *sessionsHandler) RegisterMappingEditor(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	key, ok := h.fieldKey(w, r)
	if !ok {
		return
	}

	t := TenantFromContext(r.Context())

	var req struct {
		Family   linkmap.Family    `json:"family"`
		Mappings []linkmap.Mapping `json:"mappings"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if !req.Family.Valid() {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "unknown mapping family")
		return
	}
	for _, m := range req.Mappings {
		if m.SourceValue == "" || m.TargetName == "" {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "sourceValue and targetName must be non-empty")
			return
		}
	}

	family := req.Family
	mappings := req.Mappings
	save := func(ctx context.Context) error {
		return h.mappings.ReplaceFamily(ctx, t.Slug, family, mappings)
	}

	if err := sess.RegisterMappingEditor(key, save); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UnregisterMappingEditor handles DELETE .../config-sessions/{token}/fields/{key}/mapping-editor.
func (h *sessionsHandler) UnregisterMappingEditor(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	key, ok := h.fieldKey(w, r)
	if !ok {
		return
	}

	sess.UnregisterMappingEditor(key)
	w.WriteHeader(http.StatusNoContent)
}

// session resolves the {token} URL parameter, writing a 404 when the
// session does not exist or has expired.
func (h *sessionsHandler) session(w http.ResponseWriter, r *http.Request) (*staging.Session, bool) {
	sess, ok := h.manager.Get(chi.URLParam(r, "token"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "configuration session not found or expired")
		return nil, false
	}
	return sess, true
}

// fieldKey resolves the {key} URL parameter.
func (h *sessionsHandler) fieldKey(w http.ResponseWriter, r *http.Request) (fieldcfg.FieldKey, bool) {
	key := fieldcfg.FieldKey(chi.URLParam(r, "key"))
	if !key.Valid() {
		writeError(w, http.StatusNotFound, "not_found", "unknown field key")
		return "", false
	}
	return key, true
}
