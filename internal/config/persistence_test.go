// file: internal/config/persistence_test.go
// version: 2.0.0
// guid: 0a1b2c3d-4e5f-6a7b-8c9d-0e1f2a3b4c5d

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jdfalk/book-search/internal/database"
	"github.com/spf13/viper"
)

func resetConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := database.InitEncryption(dir); err != nil {
		t.Fatalf("InitEncryption: %v", err)
	}
	viper.Reset()
	AppConfig = Config{DataDir: dir, DatabasePath: filepath.Join(dir, "settings.pebble")}
	t.Cleanup(func() { AppConfig = Config{} })
	return dir
}

func TestSaveAndLoadConfigRoundTrip(t *testing.T) {
	resetConfig(t)
	store := database.NewMemoryStore()

	AppConfig.HardcoverAPIToken = "hc-secret-token"
	AppConfig.GoogleBooksAPIKey = "gb-key"
	AppConfig.FetchCovers = true
	AppConfig.StrictISBN = false
	AppConfig.DisabledEngines = []string{"isfdb"}
	AppConfig.CacheTTLMinutes = 15

	if err := SaveConfigToDatabase(store); err != nil {
		t.Fatalf("SaveConfigToDatabase: %v", err)
	}

	// Secrets are encrypted at rest.
	s, err := store.GetSetting(database.SettingHardcoverToken)
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if !s.IsSecret || s.Value == "hc-secret-token" {
		t.Errorf("Expected hardcover token to be stored encrypted, got %+v", s)
	}

	saved := AppConfig
	AppConfig = Config{DataDir: saved.DataDir, DatabasePath: saved.DatabasePath, StrictISBN: true}
	if err := LoadConfigFromDatabase(store); err != nil {
		t.Fatalf("LoadConfigFromDatabase: %v", err)
	}

	if AppConfig.HardcoverAPIToken != "hc-secret-token" {
		t.Errorf("Expected decrypted hardcover token, got %q", AppConfig.HardcoverAPIToken)
	}
	if AppConfig.GoogleBooksAPIKey != "gb-key" {
		t.Errorf("Expected google books key, got %q", AppConfig.GoogleBooksAPIKey)
	}
	if !AppConfig.FetchCovers || AppConfig.StrictISBN {
		t.Errorf("Expected bools to round trip, got fetch=%v strict=%v", AppConfig.FetchCovers, AppConfig.StrictISBN)
	}
	if len(AppConfig.DisabledEngines) != 1 || AppConfig.DisabledEngines[0] != "isfdb" {
		t.Errorf("Expected disabled engines [isfdb], got %v", AppConfig.DisabledEngines)
	}
	if AppConfig.CacheTTLMinutes != 15 {
		t.Errorf("Expected cache ttl 15, got %d", AppConfig.CacheTTLMinutes)
	}
}

func TestSaveConfigPreservesExistingSecret(t *testing.T) {
	resetConfig(t)
	store := database.NewMemoryStore()
	if err := store.SetSetting("google_books_api_key", "keep-me", "string", true); err != nil {
		t.Fatal(err)
	}

	AppConfig.GoogleBooksAPIKey = ""
	if err := SaveConfigToDatabase(store); err != nil {
		t.Fatal(err)
	}

	got, err := database.GetDecryptedSetting(store, "google_books_api_key")
	if err != nil {
		t.Fatal(err)
	}
	if got != "keep-me" {
		t.Errorf("Expected existing secret to be preserved, got %q", got)
	}
}

func TestLoadConfigFromDatabaseNilStore(t *testing.T) {
	if err := LoadConfigFromDatabase(nil); err == nil {
		t.Error("Expected error for nil store")
	}
	if err := SaveConfigToDatabase(nil); err == nil {
		t.Error("Expected error for nil store")
	}
}

func TestConfigFileFallback(t *testing.T) {
	dir := resetConfig(t)
	AppConfig.HardcoverAPIToken = "from-file"
	AppConfig.SitesFile = filepath.Join(dir, "sites.yaml")
	if err := SaveConfigToFile(); err != nil {
		t.Fatalf("SaveConfigToFile: %v", err)
	}

	info, err := os.Stat(ConfigFilePath())
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("Expected 0600 config file, got %v", info.Mode().Perm())
	}

	AppConfig.HardcoverAPIToken = ""
	AppConfig.SitesFile = ""
	if err := LoadConfigFromFile(); err != nil {
		t.Fatal(err)
	}
	if AppConfig.HardcoverAPIToken != "from-file" {
		t.Errorf("Expected token from config file, got %q", AppConfig.HardcoverAPIToken)
	}
	if AppConfig.SitesFile != filepath.Join(dir, "sites.yaml") {
		t.Errorf("Expected sites file from config file, got %q", AppConfig.SitesFile)
	}
}

func TestConfigFileDoesNotOverrideDatabase(t *testing.T) {
	resetConfig(t)
	AppConfig.GoogleBooksAPIKey = "file-key"
	if err := SaveConfigToFile(); err != nil {
		t.Fatal(err)
	}

	AppConfig.GoogleBooksAPIKey = "db-key"
	if err := LoadConfigFromFile(); err != nil {
		t.Fatal(err)
	}
	if AppConfig.GoogleBooksAPIKey != "db-key" {
		t.Errorf("Expected db value to win, got %q", AppConfig.GoogleBooksAPIKey)
	}
}

func TestSyncConfigFromEnv(t *testing.T) {
	resetConfig(t)
	AppConfig.HardcoverAPIToken = "from-db"
	AppConfig.GoogleBooksAPIKey = "from-db"

	viper.Set("hardcover_api_token", "from-env")
	viper.Set("google_books_api_key", "")
	viper.Set("disabled_engines", []string{"audnexus"})

	SyncConfigFromEnv()

	if AppConfig.HardcoverAPIToken != "from-env" {
		t.Errorf("Expected env token, got %q", AppConfig.HardcoverAPIToken)
	}
	if AppConfig.GoogleBooksAPIKey != "from-db" {
		t.Errorf("Expected empty env value to be ignored, got %q", AppConfig.GoogleBooksAPIKey)
	}
	if len(AppConfig.DisabledEngines) != 1 || AppConfig.DisabledEngines[0] != "audnexus" {
		t.Errorf("Expected disabled engines from env, got %v", AppConfig.DisabledEngines)
	}
}

func TestApplySettingUnknownKey(t *testing.T) {
	if err := applySetting("root_dir", "/x"); err == nil {
		t.Error("Expected unknown key error")
	}
}
