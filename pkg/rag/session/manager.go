package session

import (
	"context"
	"sync"
	"time"

	"marketplace-assistant-be/internal/repository/contract"
	"marketplace-assistant-be/pkg/store"

	"github.com/google/uuid"
)

// Manager handles session lookup and per-session serialization
type Manager struct {
	sessionRepo contract.SessionRepository
	now         func() time.Time

	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewManager creates a new session manager
func NewManager(sessionRepo contract.SessionRepository) *Manager {
	return &Manager{
		sessionRepo: sessionRepo,
		now:         time.Now,
		locks:       make(map[string]*entry),
	}
}

// LoadOrCreate retrieves a live session. An empty id or an unknown id
// starts a new session in Welcome; created reports which case happened.
func (m *Manager) LoadOrCreate(ctx context.Context, sessionID string, mode string) (s *store.Session, created bool, err error) {
	if sessionID != "" {
		s, err = m.sessionRepo.Get(ctx, sessionID)
		if err != nil {
			return nil, false, err
		}
		if s != nil {
			if mode != "" {
				s.Mode = mode
			}
			return s, false, nil
		}
	} else {
		sessionID = uuid.NewString()
	}

	s = store.NewSession(sessionID, m.now())
	if mode != "" {
		s.Mode = mode
	}
	return s, true, nil
}

// Get returns a live session or nil
func (m *Manager) Get(ctx context.Context, sessionID string) (*store.Session, error) {
	return m.sessionRepo.Get(ctx, sessionID)
}

// Save persists session state
func (m *Manager) Save(ctx context.Context, s *store.Session) error {
	return m.sessionRepo.Save(ctx, s)
}

// Delete drops a live session
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.sessionRepo.Delete(ctx, sessionID)
}

// Lock serializes turns on one session ID. Call the returned func to release.
func (m *Manager) Lock(sessionID string) func() {
	m.mu.Lock()
	e, ok := m.locks[sessionID]
	if !ok {
		e = &entry{}
		m.locks[sessionID] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.locks, sessionID)
		}
		m.mu.Unlock()
	}
}
