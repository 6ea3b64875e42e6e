package api

import "net/http"

// wellKnownManifest is the static JSON manifest for /.well-known/provisor.json.
const wellKnownManifest = `{
  "name": "Provisor",
  "description": "Multi-tenant identity provisioning console",
  "version": "0.1.0",
  "api_base": "/api/v1",
  "auth": {
    "type": "bearer",
    "header": "Authorization"
  },
  "endpoints": {
    "field_configs": "/api/v1/tenants/{tenant}/field-configs",
    "mappings": "/api/v1/tenants/{tenant}/mappings/{family}",
    "config_sessions": "/api/v1/tenants/{tenant}/config-sessions",
    "reconcile": "/api/v1/tenants/{tenant}/selection/reconcile",
    "password": "/api/v1/tenants/{tenant}/password/generate",
    "validation_rules": "/api/v1/tenants/{tenant}/validation-rules",
    "users": "/api/v1/tenants/{tenant}/users"
  },
  "health": "/health"
}`

// WellKnownHandler returns the static Provisor well-known manifest.
func WellKnownHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(wellKnownManifest))
}
