package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jmcnally/provisor/internal/linkmap"
)

// mappingsHandler groups attribute link mapping HTTP handlers.
type mappingsHandler struct {
	store *linkmap.Store
	audit *auditor
}

func newMappingsHandler(store *linkmap.Store, audit *auditor) *mappingsHandler {
	return &mappingsHandler{store: store, audit: audit}
}

// GetMappings handles GET /api/v1/tenants/{tenant}/mappings/{family}.
func (h *mappingsHandler) GetMappings(w http.ResponseWriter, r *http.Request) {
	t := TenantFromContext(r.Context())
	family := linkmap.Family(chi.URLParam(r, "family"))
	if !family.Valid() {
		writeError(w, http.StatusNotFound, "not_found", "unknown mapping family")
		return
	}

	mappings, err := h.store.ListFamily(r.Context(), t.Slug, family)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list mappings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"family":   family,
		"mappings": mappings,
	})
}

// PutMappings handles PUT /api/v1/tenants/{tenant}/mappings/{family}.
// The body replaces the family's mapping table wholesale.
func (h *mappingsHandler) PutMappings(w http.ResponseWriter, r *http.Request) {
	t := TenantFromContext(r.Context())
	family := linkmap.Family(chi.URLParam(r, "family"))
	if !family.Valid() {
		writeError(w, http.StatusNotFound, "not_found", "unknown mapping family")
		return
	}

	var req struct {
		Mappings []linkmap.Mapping `json:"mappings"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	for _, m := range req.Mappings {
		if m.SourceValue == "" || m.TargetName == "" {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", "sourceValue and targetName must be non-empty")
			return
		}
	}

	if err := h.store.ReplaceFamily(r.Context(), t.Slug, family, req.Mappings); err != nil {
		h.audit.record(r, t.Slug, "replace", "link_mappings", string(family), nil, false)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to replace mappings")
		return
	}

	h.audit.record(r, t.Slug, "replace", "link_mappings", string(family),
		map[string]any{"count": len(req.Mappings)}, true)

	w.WriteHeader(http.StatusNoContent)
}
