// file: internal/database/sites.go
// version: 1.0.0
// guid: 1c2d3e4f-5a6b-4c7d-8e9f-0a1b2c3d4e5f

package database

import (
	"fmt"
	"log"

	"github.com/jdfalk/book-search/internal/search"
)

// SiteSettings reads and writes the user's site lists, normalised against
// the engines actually registered.
type SiteSettings struct {
	store    Store
	registry *search.Registry
}

// NewSiteSettings binds a store to a registry.
func NewSiteSettings(store Store, registry *search.Registry) *SiteSettings {
	return &SiteSettings{store: store, registry: registry}
}

// Sites returns the stored list for t, or the registry defaults when
// nothing is stored. Unknown engines are dropped and new ones appended
// disabled.
func (s *SiteSettings) Sites(t search.SiteType) ([]search.Site, error) {
	stored, ok, err := s.store.GetSiteList(t)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s sites: %w", t, err)
	}
	if !ok {
		return s.registry.DefaultSites(t), nil
	}
	return s.registry.Normalize(t, stored), nil
}

// SetSites stores the list for t after normalising it.
func (s *SiteSettings) SetSites(t search.SiteType, sites []search.Site) error {
	return s.store.SetSiteList(t, s.registry.Normalize(t, sites))
}

// SetEnabled toggles one engine in the list for t.
func (s *SiteSettings) SetEnabled(t search.SiteType, engine search.EngineID, enabled bool) error {
	sites, err := s.Sites(t)
	if err != nil {
		return err
	}
	found := false
	for i := range sites {
		if sites[i].Engine == engine {
			sites[i].Enabled = enabled
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", search.ErrUnknownEngine, engine)
	}
	return s.store.SetSiteList(t, sites)
}

// SetOrder moves the listed engines to the front in the given order.
func (s *SiteSettings) SetOrder(t search.SiteType, order []search.EngineID) error {
	sites, err := s.Sites(t)
	if err != nil {
		return err
	}
	for _, id := range order {
		if _, ok := s.registry.Engine(id); !ok {
			return fmt.Errorf("%w: %s", search.ErrUnknownEngine, id)
		}
	}
	return s.store.SetSiteList(t, search.Reorder(sites, order))
}

// Reset forgets the stored list for t, restoring the defaults.
func (s *SiteSettings) Reset(t search.SiteType) error {
	log.Printf("[INFO] resetting %s sites to defaults", t)
	return s.store.DeleteSiteList(t)
}

// All returns every site type's list.
func (s *SiteSettings) All() (map[search.SiteType][]search.Site, error) {
	out := make(map[search.SiteType][]search.Site, len(search.SiteTypes))
	for _, t := range search.SiteTypes {
		sites, err := s.Sites(t)
		if err != nil {
			return nil, err
		}
		out[t] = sites
	}
	return out, nil
}
