package api

import (
	"net/http"

	"github.com/jmcnally/provisor/internal/auth"
	"github.com/jmcnally/provisor/internal/metrics"
	"github.com/jmcnally/provisor/internal/operator"
)

// authHandler groups operator authentication HTTP handlers.
type authHandler struct {
	store   *operator.Store
	metrics *metrics.Metrics
}

func newAuthHandler(store *operator.Store, m *metrics.Metrics) *authHandler {
	return &authHandler{store: store, metrics: m}
}

// Login handles POST /api/v1/auth/login.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "email and password are required")
		return
	}

	op, err := h.store.GetByEmail(r.Context(), req.Email)
	if err != nil {
		h.metrics.IncAuthFailure("operator")
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	if !operator.CheckPassword(op, req.Password) {
		h.metrics.IncAuthFailure("operator")
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	token, sess, err := h.store.CreateSession(r.Context(), op.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		return
	}

	h.metrics.IncAuthSuccess("operator")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": sess.ExpiresAt,
		"operator": map[string]interface{}{
			"id":    op.ID,
			"email": op.Email,
			"name":  op.Name,
			"role":  op.Role,
		},
	})
}

// Me handles GET /api/v1/auth/me.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	op := auth.OperatorFromContext(r.Context())
	if op == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":    op.ID,
		"email": op.Email,
		"name":  op.Name,
		"role":  op.Role,
	})
}

// Logout handles POST /api/v1/auth/logout.
func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := extractBearerToken(r)
	if token == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	_ = h.store.DeleteSession(r.Context(), token)
	w.WriteHeader(http.StatusNoContent)
}

// extractBearerToken extracts the bearer token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && h[:7] == "Bearer " {
		return h[7:]
	}
	return ""
}
