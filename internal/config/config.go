// file: internal/config/config.go
// version: 2.0.0
// guid: 7b8c9d0e-1f2a-3b4c-5d6e-7f8a9b0c1d2e

package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	DataDir      string
	DatabasePath string
	CatalogPath  string
	CoverDir     string
	SitesFile    string

	// Server
	Listen                string
	SessionIdleMinutes    int
	APIRateLimitPerMinute int
	BasicAuthEnabled      bool
	BasicAuthUsername     string
	BasicAuthPassword     string // bcrypt hash

	// Search
	NetworkCheckAddress string
	FetchCovers         bool
	StrictISBN          bool
	DisabledEngines     []string
	CacheTTLMinutes     int
	CacheSize           int

	// Engine credentials
	HardcoverAPIToken string
	GoogleBooksAPIKey string

	LogLevel string
}

var AppConfig Config

// InitConfig initializes the application configuration
func InitConfig() {
	viper.SetEnvPrefix("BOOK_SEARCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("data_dir", defaultDataDir())
	viper.SetDefault("listen", ":8484")
	viper.SetDefault("session_idle_minutes", 30)
	viper.SetDefault("api_rate_limit_per_minute", 120)
	viper.SetDefault("basic_auth_enabled", false)
	viper.SetDefault("network_check_address", "openlibrary.org:443")
	viper.SetDefault("fetch_covers", false)
	viper.SetDefault("strict_isbn", true)
	viper.SetDefault("cache_ttl_minutes", 60)
	viper.SetDefault("cache_size", 500)
	viper.SetDefault("log_level", "info")

	dataDir := viper.GetString("data_dir")
	AppConfig = Config{
		DataDir:               dataDir,
		DatabasePath:          viper.GetString("database_path"),
		CatalogPath:           viper.GetString("catalog_path"),
		CoverDir:              viper.GetString("cover_dir"),
		SitesFile:             viper.GetString("sites_file"),
		Listen:                viper.GetString("listen"),
		SessionIdleMinutes:    viper.GetInt("session_idle_minutes"),
		APIRateLimitPerMinute: viper.GetInt("api_rate_limit_per_minute"),
		BasicAuthEnabled:      viper.GetBool("basic_auth_enabled"),
		BasicAuthUsername:     viper.GetString("basic_auth_username"),
		BasicAuthPassword:     viper.GetString("basic_auth_password"),
		NetworkCheckAddress:   viper.GetString("network_check_address"),
		FetchCovers:           viper.GetBool("fetch_covers"),
		StrictISBN:            viper.GetBool("strict_isbn"),
		DisabledEngines:       viper.GetStringSlice("disabled_engines"),
		CacheTTLMinutes:       viper.GetInt("cache_ttl_minutes"),
		CacheSize:             viper.GetInt("cache_size"),
		HardcoverAPIToken:     viper.GetString("hardcover_api_token"),
		GoogleBooksAPIKey:     viper.GetString("google_books_api_key"),
		LogLevel:              viper.GetString("log_level"),
	}

	// Paths that default to the data directory
	if dataDir != "" {
		if AppConfig.DatabasePath == "" {
			AppConfig.DatabasePath = filepath.Join(dataDir, "settings.pebble")
		}
		if AppConfig.CatalogPath == "" {
			AppConfig.CatalogPath = filepath.Join(dataDir, "catalog.db")
		}
		if AppConfig.CoverDir == "" {
			AppConfig.CoverDir = dataDir
		}
	}
}

// SessionIdleTTL returns the idle timeout for search sessions.
func (c Config) SessionIdleTTL() time.Duration {
	if c.SessionIdleMinutes <= 0 {
		return 0
	}
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// CacheTTL returns how long site responses are cached. Zero disables caching.
func (c Config) CacheTTL() time.Duration {
	if c.CacheTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".book-search")
}
