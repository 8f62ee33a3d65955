package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"EstateDesk/internal/workspace"
)

// Session is one user's page for a domain. ExpiresAt slides on every use.
type Session struct {
	ID        string
	UserID    string
	Domain    string
	CreatedAt time.Time
	ExpiresAt time.Time
	Page      *workspace.Page
}

type key struct{ user, domain string }

// Manager keeps page sessions alive while they are used.
type Manager struct {
	sessions map[key]*Session
	ttl      time.Duration
	now      func() time.Time
	mu       sync.Mutex
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[key]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// GetOrCreate returns the live session for (userID, domain), building the
// page with build when there is none.
func (m *Manager) GetOrCreate(userID, domain string, build func() (*workspace.Page, error)) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	k := key{userID, domain}
	if s, ok := m.sessions[k]; ok && now.Before(s.ExpiresAt) {
		s.ExpiresAt = now.Add(m.ttl)
		return s, nil
	}
	page, err := build()
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Domain:    domain,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
		Page:      page,
	}
	m.sessions[k] = s
	return s, nil
}

func (m *Manager) GetSession(userID, domain string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[key{userID, domain}]
	if !ok || !m.now().Before(s.ExpiresAt) {
		return nil, false
	}
	return s, true
}

// DeleteUser drops every page of a user, e.g. on logout.
func (m *Manager) DeleteUser(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for k := range m.sessions {
		if k.user == userID {
			delete(m.sessions, k)
			n++
		}
	}
	return n
}

// CleanupExpiredSessions removes idle sessions and returns how many went.
func (m *Manager) CleanupExpiredSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for k, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, k)
			n++
		}
	}
	return n
}

func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
