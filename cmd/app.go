// file: cmd/app.go
// version: 1.0.0
// guid: 4d5e6f7a-8b9c-4d0e-9f1a-2b3c4d5e6f7a

package cmd

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/jdfalk/book-search/internal/cache"
	"github.com/jdfalk/book-search/internal/catalog"
	"github.com/jdfalk/book-search/internal/config"
	"github.com/jdfalk/book-search/internal/database"
	"github.com/jdfalk/book-search/internal/metadata"
	"github.com/jdfalk/book-search/internal/search"
)

// app holds what every command needs: the settings store, the engines and
// the stored site lists.
type app struct {
	store    database.Store
	registry *search.Registry
	engines  *metadata.Engines
	sites    *database.SiteSettings
	cache    *cache.Cache[search.BookData]
	network  search.NetworkChecker
}

// openApp opens the settings store, merges persisted configuration and
// registers the engines.
func openApp() (*app, error) {
	if err := database.InitializeStore(config.AppConfig.DatabasePath); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize encryption for settings (generates key if needed)
	keyDir := config.AppConfig.DataDir
	if config.AppConfig.DatabasePath != "" {
		keyDir = filepath.Dir(config.AppConfig.DatabasePath)
	}
	if err := database.InitEncryption(keyDir); err != nil {
		_ = database.CloseStore()
		return nil, fmt.Errorf("failed to initialize encryption: %w", err)
	}

	// Load configuration from database (overrides defaults with persisted values)
	if err := config.LoadConfigFromDatabase(database.GlobalStore); err != nil {
		log.Printf("[WARN] Could not load config from database: %v", err)
	}
	// Apply env var overrides (command line takes precedence over DB)
	config.SyncConfigFromEnv()

	disabled := make([]search.EngineID, 0, len(config.AppConfig.DisabledEngines))
	for _, id := range config.AppConfig.DisabledEngines {
		if id = strings.TrimSpace(id); id != "" {
			disabled = append(disabled, search.EngineID(id))
		}
	}
	registry, engines := metadata.NewRegistry(metadata.Settings{
		HardcoverToken: config.AppConfig.HardcoverAPIToken,
		GoogleBooksKey: config.AppConfig.GoogleBooksAPIKey,
		CoverDir:       config.AppConfig.CoverDir,
		Disabled:       disabled,
	})

	a := &app{
		store:    database.GlobalStore,
		registry: registry,
		engines:  engines,
		sites:    database.NewSiteSettings(database.GlobalStore, registry),
		network:  search.AlwaysOnline,
	}
	if ttl := config.AppConfig.CacheTTL(); ttl > 0 {
		a.cache = cache.NewBounded[search.BookData](ttl, config.AppConfig.CacheSize)
	}
	if addr := config.AppConfig.NetworkCheckAddress; addr != "" {
		a.network = search.DialChecker(addr, 3*time.Second)
	}
	return a, nil
}

func (a *app) Close() {
	if err := database.CloseStore(); err != nil {
		log.Printf("[WARN] failed to close settings store: %v", err)
	}
}

// openCatalog opens the local catalog next to its full-text index.
func openCatalog() (*catalog.Catalog, error) {
	path := config.AppConfig.CatalogPath
	if path == "" {
		return catalog.Open("", "")
	}
	return catalog.Open(path, path+".bleve")
}
