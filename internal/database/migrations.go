// file: internal/database/migrations.go
// version: 2.0.0
// guid: 9a8b7c6d-5e4f-3d2c-1b0a-9f8e7d6c5b4a

package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"
)

// MigrationFunc represents a migration operation
type MigrationFunc func(store Store) error

// Migration represents a single database migration
type Migration struct {
	Version     int
	Description string
	Up          MigrationFunc
}

// MigrationRecord tracks applied migrations
type MigrationRecord struct {
	Version     int       `json:"version"`
	Description string    `json:"description"`
	AppliedAt   time.Time `json:"applied_at"`
}

// DatabaseVersion stores the current schema version
type DatabaseVersion struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingHardcoverToken is the setting holding the Hardcover API token.
const SettingHardcoverToken = "hardcover_token"

// migrations is the ordered list of all migrations
var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial keyspace with site lists, prompt flags and settings",
		Up:          func(Store) error { return nil },
	},
	{
		Version:     2,
		Description: "Store the Hardcover token as an encrypted secret",
		Up:          migration002Up,
	},
}

// RunMigrations applies all pending migrations
func RunMigrations(store Store) error {
	currentVersion, err := getCurrentVersion(store)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	pendingMigrations := []Migration{}
	for _, m := range migrations {
		if m.Version > currentVersion {
			pendingMigrations = append(pendingMigrations, m)
		}
	}
	if len(pendingMigrations) == 0 {
		log.Printf("[DEBUG] Database is up to date (version %d)", currentVersion)
		return nil
	}

	log.Printf("[INFO] Applying %d migrations...", len(pendingMigrations))
	for _, m := range pendingMigrations {
		log.Printf("[INFO] Applying migration %d: %s", m.Version, m.Description)
		if err := m.Up(store); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.Version, err)
		}
		if err := recordMigration(store, m); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		if err := setVersion(store, m.Version); err != nil {
			return fmt.Errorf("failed to update version to %d: %w", m.Version, err)
		}
	}
	log.Printf("[INFO] All migrations completed. Current version: %d", pendingMigrations[len(pendingMigrations)-1].Version)
	return nil
}

// getCurrentVersion retrieves the current schema version
func getCurrentVersion(store Store) (int, error) {
	data, err := store.getRaw("meta:version")
	if errors.Is(err, ErrNotFound) {
		// fresh database
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var v DatabaseVersion
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("corrupt version record: %w", err)
	}
	return v.Version, nil
}

func setVersion(store Store, version int) error {
	data, err := json.Marshal(DatabaseVersion{Version: version, UpdatedAt: time.Now()})
	if err != nil {
		return err
	}
	return store.setRaw("meta:version", data)
}

func recordMigration(store Store, m Migration) error {
	data, err := json.Marshal(MigrationRecord{Version: m.Version, Description: m.Description, AppliedAt: time.Now()})
	if err != nil {
		return err
	}
	return store.setRaw("meta:migration:"+strconv.Itoa(m.Version), data)
}

// migration002Up re-saves a plain-text Hardcover token as a secret.
// Without an encryption key the token is left as is.
func migration002Up(store Store) error {
	setting, err := store.GetSetting(SettingHardcoverToken)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if setting.IsSecret || setting.Value == "" {
		return nil
	}
	if encryptionKey == nil {
		log.Printf("[WARN] encryption not initialized, leaving %s unencrypted", SettingHardcoverToken)
		return nil
	}
	return store.SetSetting(SettingHardcoverToken, setting.Value, "string", true)
}
