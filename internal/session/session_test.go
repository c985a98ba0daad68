// file: internal/session/session_test.go
// version: 1.0.0
// guid: 7e8f9a0b-1c2d-4e3f-8a4b-5c6d7e8f9a0b

package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jdfalk/book-search/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type titleEngine struct{}

func (titleEngine) Config() *search.EngineConfig {
	return &search.EngineConfig{ID: "title", Name: "Title Site"}
}
func (titleEngine) IsAvailable() bool { return true }
func (titleEngine) Search(_ context.Context, q search.TextQuery, _ search.Covers) (search.BookData, error) {
	return search.BookData{search.KeyTitle: q.Title}, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	events   map[string][]search.Event
	statuses []string
}

func (p *recordingPublisher) PublishSearchEvent(id string, ev search.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = make(map[string][]search.Event)
	}
	p.events[id] = append(p.events[id], ev)
}

func (p *recordingPublisher) SendSessionStatus(id, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, status)
}

func (p *recordingPublisher) terminal(id string) (search.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ev := range p.events[id] {
		if ev.IsTerminal() {
			return ev, true
		}
	}
	return search.Event{}, false
}

func newTestManager(t *testing.T, pub Publisher, ttl time.Duration) *Manager {
	t.Helper()
	reg := search.NewRegistry()
	reg.Register(titleEngine{}, true)
	m := NewManager(func(id, owner string) *search.Coordinator {
		return search.NewCoordinator(search.Options{Registry: reg, CallerID: owner})
	}, pub, ttl)
	t.Cleanup(m.Close)
	return m
}

func TestCreateGetDelete(t *testing.T) {
	pub := &recordingPublisher{}
	m := newTestManager(t, pub, time.Minute)

	s := m.Create("alice")
	require.NotEmpty(t, s.ID)
	assert.Len(t, s.ID, 26, "ulid string")
	assert.Equal(t, 1, m.Count())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.Delete(s.ID))
	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Delete(s.ID), ErrNotFound)
	assert.Equal(t, []string{"created", "deleted"}, pub.statuses)
}

func TestEventsAreForwarded(t *testing.T) {
	pub := &recordingPublisher{}
	m := newTestManager(t, pub, time.Minute)
	s := m.Create("")

	s.Coordinator.SetTitle("Dune")
	require.NoError(t, s.Coordinator.TrySearch())

	require.Eventually(t, func() bool {
		_, ok := pub.terminal(s.ID)
		return ok
	}, 5*time.Second, 10*time.Millisecond)
	ev, _ := pub.terminal(s.ID)
	assert.Equal(t, search.EventFinished, ev.Kind)
	assert.Equal(t, "Dune", ev.Result.Data.String(search.KeyTitle))
}

func TestExpireIdleSessions(t *testing.T) {
	m := newTestManager(t, nil, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	old := m.Create("")
	now = now.Add(45 * time.Second)
	fresh := m.Create("")

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, m.Expire())

	_, err := m.Get(old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestGetRefreshesIdleTimer(t *testing.T) {
	m := newTestManager(t, nil, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	s := m.Create("")
	now = now.Add(50 * time.Second)
	_, err := m.Get(s.ID)
	require.NoError(t, err)
	now = now.Add(50 * time.Second)
	assert.Equal(t, 0, m.Expire())
}

func TestStartAndClose(t *testing.T) {
	m := newTestManager(t, nil, 20*time.Millisecond)
	m.Create("")
	m.Start(5 * time.Millisecond)
	// Get would refresh the idle timer, so only poll the count
	require.Eventually(t, func() bool {
		return m.Count() == 0
	}, 2*time.Second, 5*time.Millisecond)
	m.Close()
	assert.Equal(t, 0, m.Count())
}

func TestList(t *testing.T) {
	m := newTestManager(t, nil, time.Minute)
	a := m.Create("")
	b := m.Create("")
	list := m.List()
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{a.ID, b.ID}, ids)
}
