package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jmcnally/provisor/internal/directory"
	"github.com/jmcnally/provisor/internal/tenant"
)

// tenantsHandler groups tenant management HTTP handlers (admin only).
type tenantsHandler struct {
	store     *tenant.Store
	directory *directory.Client
	audit     *auditor
}

func newTenantsHandler(store *tenant.Store, dir *directory.Client, audit *auditor) *tenantsHandler {
	return &tenantsHandler{store: store, directory: dir, audit: audit}
}

// CreateTenant handles POST /api/v1/admin/tenants.
func (h *tenantsHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var input tenant.CreateTenantInput
	if err := readJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	t, err := h.store.Create(r.Context(), input)
	if err != nil {
		if isTenantValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create tenant")
		return
	}

	h.audit.record(r, t.Slug, "create", "tenant", t.Slug, map[string]any{"name": t.Name}, true)

	writeJSON(w, http.StatusCreated, t)
}

// ListTenants handles GET /api/v1/admin/tenants.
func (h *tenantsHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list tenants")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tenants": tenants})
}

// GetTenant handles GET /api/v1/admin/tenants/{tenant}.
func (h *tenantsHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "tenant")
	t, err := h.store.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not_found", "tenant not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get tenant")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// UpdateTenant handles PUT /api/v1/admin/tenants/{tenant}.
func (h *tenantsHandler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "tenant")

	var input tenant.UpdateTenantInput
	if err := readJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	t, err := h.store.Update(r.Context(), slug, input)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not_found", "tenant not found")
			return
		}
		if isTenantValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to update tenant")
		return
	}

	h.audit.record(r, slug, "update", "tenant", slug, nil, true)

	writeJSON(w, http.StatusOK, t)
}

// DeleteTenant handles DELETE /api/v1/admin/tenants/{tenant}.
func (h *tenantsHandler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "tenant")

	if err := h.store.Delete(r.Context(), slug); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not_found", "tenant not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete tenant")
		return
	}

	h.audit.record(r, slug, "delete", "tenant", slug, nil, true)

	w.WriteHeader(http.StatusNoContent)
}

// PingDirectory handles GET /api/v1/admin/tenants/{tenant}/ping-directory.
// It checks connectivity and credentials against the tenant's directory
// service without mutating anything.
func (h *tenantsHandler) PingDirectory(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "tenant")
	t, err := h.store.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "not_found", "tenant not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get tenant")
		return
	}

	ep := directory.Endpoint{BaseURL: t.DirectoryURL, Token: t.DirectoryToken}
	if err := h.directory.Ping(r.Context(), ep); err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"reachable": false,
			"error":     "directory ping failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reachable": true,
	})
}

// isTenantValidationError checks whether the error is a known validation
// error from the tenant store.
func isTenantValidationError(err error) bool {
	return errors.Is(err, tenant.ErrSlugRequired) ||
		errors.Is(err, tenant.ErrNameRequired) ||
		errors.Is(err, tenant.ErrDirectoryURLInvalid)
}
