package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey int

const (
	operatorContextKey contextKey = iota
	principalContextKey
)

// ContextWithOperator returns a new context carrying the given operator.
func ContextWithOperator(ctx context.Context, op *Operator) context.Context {
	ctx = context.WithValue(ctx, operatorContextKey, op)
	return context.WithValue(ctx, principalContextKey, "operator:"+op.ID)
}

// OperatorFromContext extracts the operator from the context, or nil.
func OperatorFromContext(ctx context.Context) *Operator {
	op, _ := ctx.Value(operatorContextKey).(*Operator)
	return op
}

// PrincipalFromContext returns the rate-limit key for the authenticated
// principal, or "" when the request is unauthenticated.
func PrincipalFromContext(ctx context.Context) string {
	p, _ := ctx.Value(principalContextKey).(string)
	return p
}

// AdminKeyMiddleware returns middleware that requires the deployment admin
// key as a bearer token. The comparison is constant time.
func AdminKeyMiddleware(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if adminKey == "" {
				writeUnauthorized(w, "admin API disabled: no admin key configured")
				return
			}

			token := extractBearerToken(r)
			if token == "" {
				writeUnauthorized(w, "missing or malformed authorization header")
				return
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(adminKey)) != 1 {
				writeUnauthorized(w, "invalid admin key")
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey, "admin")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OperatorAuthMiddleware returns middleware that validates the session
// token and injects the operator into the request context.
func OperatorAuthMiddleware(sessions SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				writeUnauthorized(w, "missing or malformed authorization header")
				return
			}

			op, err := sessions.LookupSession(r.Context(), token)
			if err != nil || op == nil {
				writeUnauthorized(w, "invalid or expired session")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithOperator(r.Context(), op)))
		})
	}
}

// RequireAdminRole returns middleware that rejects operators without the
// admin role. It must run after OperatorAuthMiddleware.
func RequireAdminRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op := OperatorFromContext(r.Context())
		if op == nil {
			writeUnauthorized(w, "missing operator session")
			return
		}
		if !op.IsAdmin() {
			writeForbidden(w, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorBody{Code: "unauthorized", Message: message},
	})
}

func writeForbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorBody{Code: "forbidden", Message: message},
	})
}
