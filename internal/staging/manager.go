package staging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Manager tracks open edit sessions by opaque token. Sessions that sit idle
// past the TTL are swept on the next access; closing the editor deletes the
// session outright.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	store    ConfigStore
	idleTTL  time.Duration
	now      func() time.Time // injectable clock for testing
}

type entry struct {
	session *Session
	touched time.Time
}

// NewManager creates a session manager over the given config store.
func NewManager(store ConfigStore, idleTTL time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*entry),
		store:    store,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Create opens a new edit session for a tenant and returns its token.
func (m *Manager) Create(ctx context.Context, tenant string) (string, *Session, error) {
	sess, err := NewSession(ctx, m.store, tenant)
	if err != nil {
		return "", nil, err
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", nil, fmt.Errorf("generating session token: %w", err)
	}
	token := hex.EncodeToString(b)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	m.sessions[token] = &entry{session: sess, touched: m.now()}
	return token, sess, nil
}

// Get returns the session for a token, refreshing its idle timer.
func (m *Manager) Get(token string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()

	e, ok := m.sessions[token]
	if !ok {
		return nil, false
	}
	e.touched = m.now()
	return e.session, true
}

// Delete closes and removes a session. Unknown tokens are a no-op.
func (m *Manager) Delete(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.sessions[token]; ok {
		e.session.Close()
		delete(m.sessions, token)
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	return len(m.sessions)
}

// sweepLocked drops sessions idle past the TTL. Must be called with m.mu held.
func (m *Manager) sweepLocked() {
	if m.idleTTL <= 0 {
		return
	}
	cutoff := m.now().Add(-m.idleTTL)
	for token, e := range m.sessions {
		if e.touched.Before(cutoff) {
			e.session.Close()
			delete(m.sessions, token)
		}
	}
}
