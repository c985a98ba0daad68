// file: internal/database/sites_test.go
// version: 1.0.0
// guid: 5e6f7a8b-9c0d-4e1f-8a2b-3c4d5e6f7a8b

package database

import (
	"context"
	"testing"

	"github.com/jdfalk/book-search/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type isbnEngine struct{ id search.EngineID }

func (e isbnEngine) Config() *search.EngineConfig { return &search.EngineConfig{ID: e.id, Name: string(e.id)} }
func (e isbnEngine) IsAvailable() bool            { return true }
func (e isbnEngine) SearchByISBN(context.Context, string, search.Covers) (search.BookData, error) {
	return search.NewBookData(), nil
}

func newSiteSettings(t *testing.T) (*SiteSettings, Store) {
	t.Helper()
	reg := search.NewRegistry()
	reg.Register(isbnEngine{"a"}, true)
	reg.Register(isbnEngine{"b"}, true)
	reg.Register(isbnEngine{"c"}, false)
	store := NewMemoryStore()
	return NewSiteSettings(store, reg), store
}

func engines(sites []search.Site) []search.EngineID {
	out := make([]search.EngineID, len(sites))
	for i, s := range sites {
		out[i] = s.Engine
	}
	return out
}

func TestSiteSettingsDefaults(t *testing.T) {
	s, _ := newSiteSettings(t)
	sites, err := s.Sites(search.SiteTypeData)
	require.NoError(t, err)
	assert.Equal(t, []search.EngineID{"a", "b", "c"}, engines(sites))
	assert.False(t, sites[2].Enabled)
}

func TestSiteSettingsOrderPersists(t *testing.T) {
	s, store := newSiteSettings(t)
	require.NoError(t, s.SetOrder(search.SiteTypeData, []search.EngineID{"c", "a"}))
	require.NoError(t, s.SetEnabled(search.SiteTypeData, "c", true))

	// a fresh SiteSettings over the same store sees the saved list
	reg := search.NewRegistry()
	reg.Register(isbnEngine{"a"}, true)
	reg.Register(isbnEngine{"b"}, true)
	reg.Register(isbnEngine{"c"}, false)
	sites, err := NewSiteSettings(store, reg).Sites(search.SiteTypeData)
	require.NoError(t, err)
	assert.Equal(t, []search.EngineID{"c", "a", "b"}, engines(sites))
	assert.True(t, sites[0].Enabled)
}

func TestSiteSettingsNormalizesStoredList(t *testing.T) {
	s, store := newSiteSettings(t)
	require.NoError(t, store.SetSiteList(search.SiteTypeData, []search.Site{
		{Engine: "gone", Enabled: true},
		{Engine: "b", Enabled: true},
	}))
	sites, err := s.Sites(search.SiteTypeData)
	require.NoError(t, err)
	assert.Equal(t, []search.EngineID{"b", "a", "c"}, engines(sites))
	assert.False(t, sites[1].Enabled, "engines missing from the stored list are appended disabled")
}

func TestSiteSettingsUnknownEngine(t *testing.T) {
	s, _ := newSiteSettings(t)
	assert.ErrorIs(t, s.SetEnabled(search.SiteTypeData, "nope", true), search.ErrUnknownEngine)
	assert.ErrorIs(t, s.SetOrder(search.SiteTypeData, []search.EngineID{"nope"}), search.ErrUnknownEngine)
}

func TestSiteSettingsReset(t *testing.T) {
	s, _ := newSiteSettings(t)
	require.NoError(t, s.SetEnabled(search.SiteTypeData, "a", false))
	require.NoError(t, s.Reset(search.SiteTypeData))
	sites, err := s.Sites(search.SiteTypeData)
	require.NoError(t, err)
	assert.True(t, sites[0].Enabled)
}

func TestSiteSettingsAll(t *testing.T) {
	s, _ := newSiteSettings(t)
	all, err := s.All()
	require.NoError(t, err)
	assert.Len(t, all, len(search.SiteTypes))
	assert.Empty(t, all[search.SiteTypeViewOnSite], "isbn-only engines cannot build URLs")
}
