// file: internal/config/persistence.go
// version: 2.0.0
// guid: 9c8d7e6f-5a4b-3c2d-1e0f-9a8b7c6d5e4f

package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jdfalk/book-search/internal/database"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type persistedSetting struct {
	value    string
	typ      string
	isSecret bool
}

// ConfigFilePath returns the path to the YAML config file next to the database.
func ConfigFilePath() string {
	if AppConfig.DatabasePath != "" {
		return filepath.Join(filepath.Dir(AppConfig.DatabasePath), "config.yaml")
	}
	if AppConfig.DataDir != "" {
		return filepath.Join(AppConfig.DataDir, "config.yaml")
	}
	return ""
}

// LoadConfigFromFile fills settings still empty after LoadConfigFromDatabase
// from the YAML config file.
func LoadConfigFromFile() error {
	path := ConfigFilePath()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig map[string]any
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		log.Printf("[WARN] Failed to parse config file %s: %v", path, err)
		return nil
	}

	applied := 0
	stringFallbacks := map[string]*string{
		"hardcover_api_token":  &AppConfig.HardcoverAPIToken,
		"google_books_api_key": &AppConfig.GoogleBooksAPIKey,
		"sites_file":           &AppConfig.SitesFile,
		"cover_dir":            &AppConfig.CoverDir,
	}
	for key, ptr := range stringFallbacks {
		if *ptr == "" {
			if val, ok := fileConfig[key].(string); ok && val != "" {
				*ptr = val
				applied++
				log.Printf("[INFO] Loaded %s from config file", key)
			}
		}
	}

	if applied > 0 {
		log.Printf("[INFO] Applied %d settings from config file %s", applied, path)
	}
	return nil
}

// SaveConfigToFile writes key settings to a YAML config file next to the database.
// The file is written 0600 since it may hold engine credentials.
func SaveConfigToFile() error {
	path := ConfigFilePath()
	if path == "" {
		return fmt.Errorf("cannot determine config file path")
	}

	fileConfig := map[string]any{
		"data_dir":                  AppConfig.DataDir,
		"database_path":             AppConfig.DatabasePath,
		"catalog_path":              AppConfig.CatalogPath,
		"cover_dir":                 AppConfig.CoverDir,
		"sites_file":                AppConfig.SitesFile,
		"listen":                    AppConfig.Listen,
		"session_idle_minutes":      AppConfig.SessionIdleMinutes,
		"api_rate_limit_per_minute": AppConfig.APIRateLimitPerMinute,
		"fetch_covers":              AppConfig.FetchCovers,
		"strict_isbn":               AppConfig.StrictISBN,
		"disabled_engines":          AppConfig.DisabledEngines,
		"log_level":                 AppConfig.LogLevel,
	}
	if AppConfig.HardcoverAPIToken != "" {
		fileConfig["hardcover_api_token"] = AppConfig.HardcoverAPIToken
	}
	if AppConfig.GoogleBooksAPIKey != "" {
		fileConfig["google_books_api_key"] = AppConfig.GoogleBooksAPIKey
	}

	data, err := yaml.Marshal(fileConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Printf("[INFO] Configuration saved to file: %s", path)
	return nil
}

// LoadConfigFromDatabase loads settings from the store and applies them to
// AppConfig. Called after the store is initialized so persisted values
// override defaults.
func LoadConfigFromDatabase(store database.Store) error {
	if store == nil {
		return fmt.Errorf("store is nil")
	}

	settings, err := store.GetAllSettings()
	if err != nil {
		log.Printf("[WARN] Could not load settings from database: %v", err)
		return nil
	}

	applied := 0
	for _, setting := range settings {
		value := setting.Value
		if setting.IsSecret {
			// list views are masked, so read the secret back by key
			decrypted, err := database.GetDecryptedSetting(store, setting.Key)
			if err != nil {
				log.Printf("[WARN] Failed to decrypt setting %q, trying config file: %v", setting.Key, err)
				continue
			}
			value = decrypted
		}
		if err := applySetting(setting.Key, value); err != nil {
			log.Printf("[DEBUG] Skipping setting %s: %v", setting.Key, err)
			continue
		}
		applied++
	}
	log.Printf("[INFO] Applied %d settings from database", applied)

	if err := LoadConfigFromFile(); err != nil {
		log.Printf("[WARN] Config file fallback failed: %v", err)
	}
	return nil
}

// applySetting applies a single setting to AppConfig
func applySetting(key, value string) error {
	switch key {
	// Paths
	case "cover_dir":
		AppConfig.CoverDir = value
	case "sites_file":
		AppConfig.SitesFile = value

	// Server
	case "session_idle_minutes":
		if i, err := strconv.Atoi(value); err == nil {
			AppConfig.SessionIdleMinutes = i
		}
	case "api_rate_limit_per_minute":
		if i, err := strconv.Atoi(value); err == nil {
			AppConfig.APIRateLimitPerMinute = i
		}
	case "basic_auth_enabled":
		if b, err := strconv.ParseBool(value); err == nil {
			AppConfig.BasicAuthEnabled = b
		}
	case "basic_auth_username":
		AppConfig.BasicAuthUsername = value
	case "basic_auth_password":
		AppConfig.BasicAuthPassword = value

	// Search
	case "network_check_address":
		AppConfig.NetworkCheckAddress = value
	case "fetch_covers":
		if b, err := strconv.ParseBool(value); err == nil {
			AppConfig.FetchCovers = b
		}
	case "strict_isbn":
		if b, err := strconv.ParseBool(value); err == nil {
			AppConfig.StrictISBN = b
		}
	case "disabled_engines":
		var engines []string
		if err := json.Unmarshal([]byte(value), &engines); err == nil {
			AppConfig.DisabledEngines = engines
		}
	case "cache_ttl_minutes":
		if i, err := strconv.Atoi(value); err == nil {
			AppConfig.CacheTTLMinutes = i
		}
	case "cache_size":
		if i, err := strconv.Atoi(value); err == nil {
			AppConfig.CacheSize = i
		}

	// Engine credentials
	case database.SettingHardcoverToken:
		AppConfig.HardcoverAPIToken = value
	case "google_books_api_key":
		AppConfig.GoogleBooksAPIKey = value

	case "log_level":
		AppConfig.LogLevel = value

	default:
		return fmt.Errorf("unknown setting key: %s", key)
	}
	return nil
}

// SaveConfigToDatabase persists AppConfig to the store and the config file.
func SaveConfigToDatabase(store database.Store) error {
	if store == nil {
		return fmt.Errorf("store is nil")
	}

	disabledJSON, err := json.Marshal(AppConfig.DisabledEngines)
	if err != nil {
		return fmt.Errorf("failed to marshal disabled_engines: %w", err)
	}

	settings := map[string]persistedSetting{
		"cover_dir":  {AppConfig.CoverDir, "string", false},
		"sites_file": {AppConfig.SitesFile, "string", false},

		"session_idle_minutes":      {strconv.Itoa(AppConfig.SessionIdleMinutes), "int", false},
		"api_rate_limit_per_minute": {strconv.Itoa(AppConfig.APIRateLimitPerMinute), "int", false},
		"basic_auth_enabled":        {strconv.FormatBool(AppConfig.BasicAuthEnabled), "bool", false},
		"basic_auth_username":       {AppConfig.BasicAuthUsername, "string", false},
		"basic_auth_password":       {AppConfig.BasicAuthPassword, "string", true},

		"network_check_address": {AppConfig.NetworkCheckAddress, "string", false},
		"fetch_covers":          {strconv.FormatBool(AppConfig.FetchCovers), "bool", false},
		"strict_isbn":           {strconv.FormatBool(AppConfig.StrictISBN), "bool", false},
		"disabled_engines":      {string(disabledJSON), "json", false},
		"cache_ttl_minutes":     {strconv.Itoa(AppConfig.CacheTTLMinutes), "int", false},
		"cache_size":            {strconv.Itoa(AppConfig.CacheSize), "int", false},

		database.SettingHardcoverToken: {AppConfig.HardcoverAPIToken, "string", true},
		"google_books_api_key":         {AppConfig.GoogleBooksAPIKey, "string", true},

		"log_level": {AppConfig.LogLevel, "string", false},
	}

	saved := 0
	for key, s := range settings {
		// An empty secret never overwrites a stored one.
		if s.isSecret && s.value == "" {
			existing, err := store.GetSetting(key)
			if err == nil && existing != nil && existing.Value != "" {
				continue
			}
		}
		if err := store.SetSetting(key, s.value, s.typ, s.isSecret); err != nil {
			log.Printf("[WARN] Failed to save setting %s: %v", key, err)
			continue
		}
		saved++
	}
	log.Printf("[INFO] Saved %d settings to database", saved)

	if err := SaveConfigToFile(); err != nil {
		log.Printf("[WARN] Failed to save config file: %v", err)
	}
	return nil
}

// SyncConfigFromEnv re-applies non-empty viper values (env or flags) over
// what LoadConfigFromDatabase set, without saving them. Keys with viper
// defaults are left out since IsSet is always true for them.
func SyncConfigFromEnv() {
	overrides := map[string]*string{
		"hardcover_api_token":  &AppConfig.HardcoverAPIToken,
		"google_books_api_key": &AppConfig.GoogleBooksAPIKey,
		"sites_file":           &AppConfig.SitesFile,
		"cover_dir":            &AppConfig.CoverDir,
	}
	for key, ptr := range overrides {
		if viper.IsSet(key) {
			if val := viper.GetString(key); val != "" {
				*ptr = val
			}
		}
	}
	if viper.IsSet("disabled_engines") {
		if engines := viper.GetStringSlice("disabled_engines"); len(engines) > 0 {
			AppConfig.DisabledEngines = engines
		}
	}
}
