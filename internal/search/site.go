// file: internal/search/site.go
// version: 1.0.0
// guid: 6c1f0b63-7a3e-4b4f-9d52-cd0a3a0a8d21

package search

import (
	"fmt"
	"slices"
	"sort"
	"sync"
)

// SiteType groups sites by what they are used for.
type SiteType string

const (
	// SiteTypeData sites provide book data.
	SiteTypeData SiteType = "data"
	// SiteTypeCovers sites are asked for covers by ISBN.
	SiteTypeCovers SiteType = "covers"
	// SiteTypeAltEditions sites list other editions of an ISBN.
	SiteTypeAltEditions SiteType = "alt-editions"
	// SiteTypeViewOnSite sites can build a "view this book" URL.
	SiteTypeViewOnSite SiteType = "view"
)

// SiteTypes lists every site type.
var SiteTypes = []SiteType{SiteTypeData, SiteTypeCovers, SiteTypeAltEditions, SiteTypeViewOnSite}

// ParseSiteType validates a site type name.
func ParseSiteType(s string) (SiteType, error) {
	switch SiteType(s) {
	case SiteTypeData, SiteTypeCovers, SiteTypeAltEditions, SiteTypeViewOnSite:
		return SiteType(s), nil
	}
	return "", fmt.Errorf("unknown site type %q", s)
}

// Site is one configured external source in a site list.
type Site struct {
	Engine  EngineID `json:"engine" yaml:"engine"`
	Type    SiteType `json:"type" yaml:"type"`
	Enabled bool     `json:"enabled" yaml:"enabled"`
}

// FilterEnabled returns the enabled sites, keeping their order.
func FilterEnabled(sites []Site) []Site {
	out := make([]Site, 0, len(sites))
	for _, s := range sites {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// Reorder sorts sites by the given engine order. Sites missing from order
// keep their relative position after the listed ones.
func Reorder(sites []Site, order []EngineID) []Site {
	rank := make(map[EngineID]int, len(order))
	for i, id := range order {
		if _, seen := rank[id]; !seen {
			rank[id] = i
		}
	}
	out := slices.Clone(sites)
	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := rank[out[i].Engine]
		rj, jok := rank[out[j].Engine]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		default:
			return false
		}
	})
	return out
}

// Registry maps engine ids to engine instances. Registration order is the
// default site order.
type Registry struct {
	mu      sync.RWMutex
	engines map[EngineID]Engine
	order   []EngineID
	enabled map[EngineID]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[EngineID]Engine),
		enabled: make(map[EngineID]bool),
	}
}

// Register adds an engine. enabledByDefault sets its state in default
// site lists. Registering the same id twice replaces the engine.
func (r *Registry) Register(e Engine, enabledByDefault bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := e.Config().ID
	if _, exists := r.engines[id]; !exists {
		r.order = append(r.order, id)
	}
	r.engines[id] = e
	r.enabled[id] = enabledByDefault
}

// Engine returns the engine for id.
func (r *Registry) Engine(id EngineID) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[id]
	return e, ok
}

// IDs returns the registered engine ids in registration order.
func (r *Registry) IDs() []EngineID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// DefaultSites builds the default site list for a type. Data sites are the
// engines with at least one search facet, cover and edition sites those
// searching by ISBN, view sites those that can create a URL.
func (r *Registry) DefaultSites(t SiteType) []Site {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sites := make([]Site, 0, len(r.order))
	for _, id := range r.order {
		e := r.engines[id]
		caps := Capabilities(e)
		switch t {
		case SiteTypeData:
			if caps&(CapExternalID|CapNativeID|CapISBN|CapText) == 0 {
				continue
			}
		case SiteTypeCovers, SiteTypeAltEditions:
			if caps&CapISBN == 0 {
				continue
			}
		case SiteTypeViewOnSite:
			if caps&CapExternalID == 0 {
				continue
			}
		}
		sites = append(sites, Site{Engine: id, Type: t, Enabled: r.enabled[id]})
	}
	return sites
}

// Normalize drops sites whose engine is not registered and appends
// registered engines missing from the list, disabled, at the end. This
// covers stored lists written before an engine was added.
func (r *Registry) Normalize(t SiteType, sites []Site) []Site {
	defaults := r.DefaultSites(t)
	known := make(map[EngineID]bool, len(defaults))
	for _, d := range defaults {
		known[d.Engine] = true
	}
	out := make([]Site, 0, len(defaults))
	seen := make(map[EngineID]bool, len(sites))
	for _, s := range sites {
		if !known[s.Engine] || seen[s.Engine] {
			continue
		}
		seen[s.Engine] = true
		s.Type = t
		out = append(out, s)
	}
	for _, d := range defaults {
		if !seen[d.Engine] {
			d.Enabled = false
			out = append(out, d)
		}
	}
	return out
}
