package operator

import "time"

// Operator represents a console administrator account.
type Operator struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"` // "admin" or "operator"
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the operator may edit tenant configuration.
func (o *Operator) IsAdmin() bool {
	return o.Role == "admin"
}

// CreateOperatorInput holds the fields required to create an operator.
type CreateOperatorInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Session represents an active console session.
type Session struct {
	TokenHash  string    `json:"-"`
	OperatorID string    `json:"operator_id"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
