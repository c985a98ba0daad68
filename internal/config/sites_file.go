// file: internal/config/sites_file.go
// version: 1.0.0
// guid: 3f6a2c1e-8d4b-4e7a-9c05-b1d2e3f4a5c6

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/jdfalk/book-search/internal/database"
	"github.com/jdfalk/book-search/internal/search"
	"github.com/jdfalk/book-search/internal/watcher"
	"gopkg.in/yaml.v3"
)

// sitesFileEntry is one line of a site list in the sites file. The site
// type comes from the enclosing map key.
type sitesFileEntry struct {
	Engine  search.EngineID `yaml:"engine"`
	Enabled bool            `yaml:"enabled"`
}

// LoadSitesFile reads a YAML sites file mapping site type to an ordered
// list of engines. Unknown site types are an error.
func LoadSitesFile(path string) (map[search.SiteType][]search.Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sites file: %w", err)
	}

	var raw map[string][]sitesFileEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse sites file %s: %w", path, err)
	}

	out := make(map[search.SiteType][]search.Site, len(raw))
	for key, entries := range raw {
		t, err := search.ParseSiteType(key)
		if err != nil {
			return nil, fmt.Errorf("sites file %s: %w", path, err)
		}
		sites := make([]search.Site, 0, len(entries))
		for _, e := range entries {
			sites = append(sites, search.Site{Engine: e.Engine, Type: t, Enabled: e.Enabled})
		}
		out[t] = sites
	}
	return out, nil
}

// SaveSitesFile writes lists to path in the format LoadSitesFile reads.
func SaveSitesFile(path string, lists map[search.SiteType][]search.Site) error {
	raw := make(map[string][]sitesFileEntry, len(lists))
	for t, sites := range lists {
		entries := make([]sitesFileEntry, 0, len(sites))
		for _, s := range sites {
			entries = append(entries, sitesFileEntry{Engine: s.Engine, Enabled: s.Enabled})
		}
		raw[string(t)] = entries
	}

	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal sites: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create sites dir: %w", err)
	}

	// Write through a temp file so watchers never see a partial file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write sites file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace sites file: %w", err)
	}
	return nil
}

// ImportSitesFile loads path and stores every list it holds in settings.
func ImportSitesFile(path string, settings *database.SiteSettings) error {
	lists, err := LoadSitesFile(path)
	if err != nil {
		return err
	}

	types := make([]string, 0, len(lists))
	for t := range lists {
		types = append(types, string(t))
	}
	sort.Strings(types)

	for _, t := range types {
		st := search.SiteType(t)
		if err := settings.SetSites(st, lists[st]); err != nil {
			return fmt.Errorf("failed to store %s sites: %w", t, err)
		}
	}
	log.Printf("[INFO] Imported %d site lists from %s", len(types), path)
	return nil
}

// ExportSitesFile writes every stored list to path.
func ExportSitesFile(path string, settings *database.SiteSettings) error {
	lists, err := settings.All()
	if err != nil {
		return err
	}
	return SaveSitesFile(path, lists)
}

// WatchSitesFile imports path now and again whenever it changes. The
// caller stops the returned watcher.
func WatchSitesFile(path string, settings *database.SiteSettings) (*watcher.Watcher, error) {
	if _, err := os.Stat(path); err == nil {
		if err := ImportSitesFile(path, settings); err != nil {
			log.Printf("[WARN] %v", err)
		}
	}

	w := watcher.New(func(changed string) {
		if _, err := os.Stat(changed); err != nil {
			return
		}
		if err := ImportSitesFile(changed, settings); err != nil {
			log.Printf("[WARN] Sites file reload failed: %v", err)
		}
	}, 0)
	if err := w.Start(path); err != nil {
		return nil, fmt.Errorf("failed to watch sites file: %w", err)
	}
	return w, nil
}
