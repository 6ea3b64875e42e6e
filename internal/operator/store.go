package operator

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const sessionDuration = 12 * time.Hour

// Store provides database operations for operators and their sessions.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new operator store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a new operator with a bcrypt-hashed password.
func (s *Store) Create(ctx context.Context, in CreateOperatorInput) (*Operator, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	role := in.Role
	if role == "" {
		role = "operator"
	}

	o := &Operator{}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO operators (email, password_hash, name, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, email, password_hash, name, role, created_at`,
		in.Email, string(hash), in.Name, role,
	).Scan(&o.ID, &o.Email, &o.PasswordHash, &o.Name, &o.Role, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating operator: %w", err)
	}
	return o, nil
}

// GetByEmail retrieves an operator by email address.
func (s *Store) GetByEmail(ctx context.Context, email string) (*Operator, error) {
	o := &Operator{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, name, role, created_at
		 FROM operators WHERE email = $1`, email,
	).Scan(&o.ID, &o.Email, &o.PasswordHash, &o.Name, &o.Role, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting operator by email: %w", err)
	}
	return o, nil
}

// List returns all operators ordered by created_at DESC.
func (s *Store) List(ctx context.Context) ([]*Operator, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, email, password_hash, name, role, created_at
		 FROM operators ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing operators: %w", err)
	}
	defer rows.Close()

	var operators []*Operator
	for rows.Next() {
		o := &Operator{}
		if err := rows.Scan(&o.ID, &o.Email, &o.PasswordHash, &o.Name, &o.Role, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning operator row: %w", err)
		}
		operators = append(operators, o)
	}
	return operators, rows.Err()
}

// CheckPassword verifies a plaintext password against the stored hash.
func CheckPassword(o *Operator, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(o.PasswordHash), []byte(password)) == nil
}

// CreateSession creates a new session for the given operator. It returns the
// opaque plaintext token (sent to the client) and the stored session.
func (s *Store) CreateSession(ctx context.Context, operatorID string) (string, *Session, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", nil, fmt.Errorf("generating session token: %w", err)
	}
	plaintext := hex.EncodeToString(b)
	tokenHash := hashToken(plaintext)

	now := time.Now()
	expiresAt := now.Add(sessionDuration)

	sess := &Session{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO operator_sessions (token_hash, operator_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING token_hash, operator_id, created_at, expires_at`,
		tokenHash, operatorID, now, expiresAt,
	).Scan(&sess.TokenHash, &sess.OperatorID, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		return "", nil, fmt.Errorf("creating session: %w", err)
	}

	return plaintext, sess, nil
}

// GetSessionOperator looks up a session by its plaintext token and returns
// the associated operator. Returns an error if the session is expired or
// not found.
func (s *Store) GetSessionOperator(ctx context.Context, plaintext string) (*Operator, error) {
	tokenHash := hashToken(plaintext)

	o := &Operator{}
	err := s.pool.QueryRow(ctx,
		`SELECT o.id, o.email, o.password_hash, o.name, o.role, o.created_at
		 FROM operator_sessions s JOIN operators o ON s.operator_id = o.id
		 WHERE s.token_hash = $1 AND s.expires_at > now()`,
		tokenHash,
	).Scan(&o.ID, &o.Email, &o.PasswordHash, &o.Name, &o.Role, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting session operator: %w", err)
	}
	return o, nil
}

// DeleteSession removes a session by its plaintext token.
func (s *Store) DeleteSession(ctx context.Context, plaintext string) error {
	tokenHash := hashToken(plaintext)
	_, err := s.pool.Exec(ctx, `DELETE FROM operator_sessions WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// CleanExpiredSessions deletes all sessions that have expired.
func (s *Store) CleanExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM operator_sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("cleaning expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func hashToken(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}
