// file: internal/database/store.go
// version: 2.0.0
// guid: 6b7c8d9e-0f1a-2b3c-4d5e-6f7a8b9c0d1e

package database

import (
	"errors"
	"fmt"

	"github.com/jdfalk/book-search/internal/search"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("not found")

// Store persists user choices about search sites: site order and enabled
// flags per site type, hidden registration prompts, and settings such as
// API tokens.
type Store interface {
	// Lifecycle
	Close() error
	Reset() error

	// Site lists. ok is false when nothing was stored for t.
	GetSiteList(t search.SiteType) (sites []search.Site, ok bool, err error)
	SetSiteList(t search.SiteType, sites []search.Site) error
	DeleteSiteList(t search.SiteType) error

	// Registration prompts hidden with "never ask again".
	PromptHidden(engine search.EngineID, callerID string) bool
	HidePrompt(engine search.EngineID, callerID string) error
	ShowPrompts(callerID string) error

	// Settings
	GetSetting(key string) (*Setting, error)
	SetSetting(key, value, typ string, isSecret bool) error
	GetAllSettings() ([]Setting, error)
	DeleteSetting(key string) error

	// Schema version
	getRaw(key string) ([]byte, error)
	setRaw(key string, value []byte) error
}

// siteRecord is the stored form of one search.Site.
type siteRecord struct {
	Engine  search.EngineID `json:"engine"`
	Enabled bool            `json:"enabled"`
}

func toRecords(sites []search.Site) []siteRecord {
	out := make([]siteRecord, len(sites))
	for i, s := range sites {
		out[i] = siteRecord{Engine: s.Engine, Enabled: s.Enabled}
	}
	return out
}

func fromRecords(t search.SiteType, recs []siteRecord) []search.Site {
	out := make([]search.Site, len(recs))
	for i, r := range recs {
		out[i] = search.Site{Engine: r.Engine, Type: t, Enabled: r.Enabled}
	}
	return out
}

func siteKey(t search.SiteType) string {
	return "sites:" + string(t)
}

func promptKey(callerID string, engine search.EngineID) string {
	return "prompt:hidden:" + callerID + ":" + string(engine)
}

// Global store instance
var GlobalStore Store

// InitializeStore opens the store. An empty path keeps everything in
// memory for the life of the process.
func InitializeStore(path string) error {
	var err error
	if path == "" {
		GlobalStore = NewMemoryStore()
	} else {
		GlobalStore, err = NewPebbleStore(path)
		if err != nil {
			return fmt.Errorf("failed to initialize PebbleDB store: %w", err)
		}
	}

	// Run migrations to ensure schema is up to date
	if err := RunMigrations(GlobalStore); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// CloseStore closes the global store
func CloseStore() error {
	if GlobalStore != nil {
		return GlobalStore.Close()
	}
	return nil
}
