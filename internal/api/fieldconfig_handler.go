package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jmcnally/provisor/internal/fieldcfg"
	"github.com/jmcnally/provisor/internal/metrics"
)

// fieldConfigHandler groups field configuration HTTP handlers.
type fieldConfigHandler struct {
	store   *fieldcfg.Store
	audit   *auditor
	metrics *metrics.Metrics
}

func newFieldConfigHandler(store *fieldcfg.Store, audit *auditor, m *metrics.Metrics) *fieldConfigHandler {
	return &fieldConfigHandler{store: store, audit: audit, metrics: m}
}

// ListFieldConfigs handles GET /api/v1/tenants/{tenant}/field-configs.
// The response carries the effective config of every field: stored values
// merged over defaults, with malformed stored rows already replaced by
// their defaults at load time.
func (h *fieldConfigHandler) ListFieldConfigs(w http.ResponseWriter, r *http.Request) {
	t := TenantFromContext(r.Context())

	configs, err := h.store.Load(r.Context(), t.Slug)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load field configurations")
		return
	}
	h.metrics.IncConfigLoad(t.Slug)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"fields": encodeConfigMap(configs),
	})
}

// GetFieldConfig handles GET /api/v1/tenants/{tenant}/field-configs/{key}.
func (h *fieldConfigHandler) GetFieldConfig(w http.ResponseWriter, r *http.Request) {
	t := TenantFromContext(r.Context())
	key := fieldcfg.FieldKey(chi.URLParam(r, "key"))
	if !key.Valid() {
		writeError(w, http.StatusNotFound, "not_found", "unknown field key")
		return
	}

	configs, err := h.store.Load(r.Context(), t.Slug)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load field configurations")
		return
	}
	h.metrics.IncConfigLoad(t.Slug)

	raw, err := fieldcfg.Encode(key, configs[key])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to encode field configuration")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"key":    key,
		"config": json.RawMessage(raw),
	})
}

// PutFieldConfig handles PUT /api/v1/tenants/{tenant}/field-configs/{key}.
// This is the direct save path; staged edits go through config sessions.
func (h *fieldConfigHandler) PutFieldConfig(w http.ResponseWriter, r *http.Request) {
	t := TenantFromContext(r.Context())
	key := fieldcfg.FieldKey(chi.URLParam(r, "key"))
	if !key.Valid() {
		writeError(w, http.StatusNotFound, "not_found", "unknown field key")
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

	if err := h.store.Save(r.Context(), t.Slug, key, cfg); err != nil {
		h.audit.record(r, t.Slug, "save", "field_config", string(key), nil, false)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to save field configuration")
		return
	}

	h.metrics.IncConfigSave(t.Slug, string(key))
	h.audit.record(r, t.Slug, "save", "field_config", string(key), nil, true)

	raw, _ := fieldcfg.Encode(key, cfg)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"key":    key,
		"config": json.RawMessage(raw),
	})
}

// encodeConfigMap renders a config snapshot as raw JSON keyed by field.
func encodeConfigMap(configs map[fieldcfg.FieldKey]fieldcfg.Config) map[fieldcfg.FieldKey]json.RawMessage {
	out := make(map[fieldcfg.FieldKey]json.RawMessage, len(configs))
	for key, cfg := range configs {
		raw, err := fieldcfg.Encode(key, cfg)
		if err != nil {
			continue
		}
		out[key] = raw
	}
	return out
}
