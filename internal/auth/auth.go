// Package auth authenticates console requests. There are two principals:
// the deployment admin key (full tenant administration) and operator
// sessions issued by the login endpoint.
package auth

import "context"

// Operator represents an authenticated console operator.
type Operator struct {
	ID    string
	Email string
	Name  string
	Role  string // "admin" or "operator"
}

// IsAdmin reports whether the operator may edit tenant configuration.
func (o *Operator) IsAdmin() bool {
	return o.Role == "admin"
}

// SessionLookup resolves session tokens to operators.
type SessionLookup interface {
	LookupSession(ctx context.Context, token string) (*Operator, error)
}
