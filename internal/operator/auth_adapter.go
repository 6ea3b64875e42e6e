package operator

import (
	"context"

	"github.com/jmcnally/provisor/internal/auth"
)

// AuthAdapter adapts the operator Store to the auth.SessionLookup interface.
type AuthAdapter struct {
	store *Store
}

// NewAuthAdapter creates an adapter over the given store.
func NewAuthAdapter(store *Store) *AuthAdapter {
	return &AuthAdapter{store: store}
}

// LookupSession resolves a session token to an auth.Operator.
func (a *AuthAdapter) LookupSession(ctx context.Context, token string) (*auth.Operator, error) {
	o, err := a.store.GetSessionOperator(ctx, token)
	if err != nil {
		return nil, err
	}
	return &auth.Operator{
		ID:    o.ID,
		Email: o.Email,
		Name:  o.Name,
		Role:  o.Role,
	}, nil
}
