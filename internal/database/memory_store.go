// file: internal/database/memory_store.go
// version: 1.0.0
// guid: 4f5a6b7c-8d9e-4f0a-9b1c-2d3e4f5a6b7c

package database

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/jdfalk/book-search/internal/search"
)

// MemoryStore is a Store that keeps everything in process memory. It is
// used when no database path is configured, and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	raw      map[string][]byte
	sites    map[search.SiteType][]search.Site
	hidden   map[string]bool
	settings map[string]Setting
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{}
	m.init()
	return m
}

func (m *MemoryStore) init() {
	m.raw = make(map[string][]byte)
	m.sites = make(map[search.SiteType][]search.Site)
	m.hidden = make(map[string]bool)
	m.settings = make(map[string]Setting)
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	return nil
}

func (m *MemoryStore) getRaw(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.raw[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (m *MemoryStore) setRaw(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raw[key] = slices.Clone(value)
	return nil
}

func (m *MemoryStore) GetSiteList(t search.SiteType) ([]search.Site, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sites, ok := m.sites[t]
	return slices.Clone(sites), ok, nil
}

func (m *MemoryStore) SetSiteList(t search.SiteType, sites []search.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sites[t] = fromRecords(t, toRecords(sites))
	return nil
}

func (m *MemoryStore) DeleteSiteList(t search.SiteType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sites, t)
	return nil
}

func (m *MemoryStore) PromptHidden(engine search.EngineID, callerID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hidden[promptKey(callerID, engine)]
}

func (m *MemoryStore) HidePrompt(engine search.EngineID, callerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hidden[promptKey(callerID, engine)] = true
	return nil
}

func (m *MemoryStore) ShowPrompts(callerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := "prompt:hidden:" + callerID + ":"
	for k := range m.hidden {
		if strings.HasPrefix(k, prefix) {
			delete(m.hidden, k)
		}
	}
	return nil
}

func (m *MemoryStore) GetSetting(key string) (*Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.settings[key]
	if !ok {
		return nil, fmt.Errorf("setting not found: %s: %w", key, ErrNotFound)
	}
	return &s, nil
}

func (m *MemoryStore) SetSetting(key, value, typ string, isSecret bool) error {
	setting, err := newSetting(key, value, typ, isSecret)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = setting
	return nil
}

func (m *MemoryStore) GetAllSettings() ([]Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Setting, 0, len(m.settings))
	for _, s := range m.settings {
		out = append(out, masked(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryStore) DeleteSetting(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.settings, key)
	return nil
}
