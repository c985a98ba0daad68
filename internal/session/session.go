// file: internal/session/session.go
// version: 1.0.0
// guid: 3d4e5f6a-7b8c-4d9e-8f0a-1b2c3d4e5f6a

package session

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/jdfalk/book-search/internal/metrics"
	"github.com/jdfalk/book-search/internal/search"
	ulid "github.com/oklog/ulid/v2"
)

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// DefaultIdleTTL is how long an idle session is kept.
const DefaultIdleTTL = 30 * time.Minute

// Publisher receives every coordinator event of every session.
type Publisher interface {
	PublishSearchEvent(sessionID string, ev search.Event)
	SendSessionStatus(sessionID, status string)
}

// Factory builds the coordinator of a new session. owner is the
// authenticated caller, if any.
type Factory func(sessionID, owner string) *search.Coordinator

// Session is one search context: a coordinator plus bookkeeping.
type Session struct {
	ID          string
	Owner       string
	CreatedAt   time.Time
	Coordinator *search.Coordinator

	mu       sync.Mutex
	lastUsed time.Time
}

// LastUsed returns when the session was last touched.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

// Manager owns the live sessions and expires idle ones.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	factory   Factory
	publisher Publisher
	ttl       time.Duration
	now       func() time.Time

	stop chan struct{}
	done chan struct{}
}

// NewManager creates a manager. A zero ttl uses DefaultIdleTTL; publisher
// may be nil.
func NewManager(factory Factory, publisher Publisher, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Manager{
		sessions:  make(map[string]*Session),
		factory:   factory,
		publisher: publisher,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Create starts a new session.
func (m *Manager) Create(owner string) *Session {
	id := ulid.Make().String()
	now := m.now()
	s := &Session{
		ID:          id,
		Owner:       owner,
		CreatedAt:   now,
		Coordinator: m.factory(id, owner),
		lastUsed:    now,
	}
	events := s.Coordinator.Subscribe()

	m.mu.Lock()
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()

	go m.pump(id, events)
	metrics.SetSessions(count)
	if m.publisher != nil {
		m.publisher.SendSessionStatus(id, "created")
	}
	log.Printf("[INFO] session %s created (owner %q)", id, owner)
	return s
}

// pump forwards coordinator events until the coordinator closes the channel.
func (m *Manager) pump(id string, events <-chan search.Event) {
	for ev := range events {
		if m.publisher != nil {
			m.publisher.PublishSearchEvent(id, ev)
		}
	}
}

// Get returns a live session and marks it used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	s.touch(m.now())
	return s, nil
}

// List returns the live sessions ordered by creation.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Delete cancels any running search and removes the session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	m.closeSession(s, "deleted")
	metrics.SetSessions(count)
	return nil
}

func (m *Manager) closeSession(s *Session, status string) {
	s.Coordinator.Close()
	if m.publisher != nil {
		m.publisher.SendSessionStatus(s.ID, status)
	}
	log.Printf("[INFO] session %s %s", s.ID, status)
}

// Expire removes sessions idle for longer than the ttl. Sessions with a
// running search are kept. It returns the number removed.
func (m *Manager) Expire() int {
	cutoff := m.now().Add(-m.ttl)
	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastUsed().Before(cutoff) && !s.Coordinator.IsSearchActive() {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		m.closeSession(s, "expired")
	}
	if len(expired) > 0 {
		metrics.SetSessions(count)
	}
	return len(expired)
}

// Start runs Expire periodically until Close.
func (m *Manager) Start(interval time.Duration) {
	if interval <= 0 {
		interval = m.ttl / 2
	}
	m.mu.Lock()
	if m.stop != nil {
		m.mu.Unlock()
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stop, m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := m.Expire(); n > 0 {
					log.Printf("[DEBUG] expired %d idle sessions", n)
				}
			case <-stop:
				return
			}
		}
	}()
}

// Close stops the janitor and closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	stop, done := m.stop, m.done
	m.stop = nil
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	for _, s := range sessions {
		m.closeSession(s, "closed")
	}
	metrics.SetSessions(0)
}
