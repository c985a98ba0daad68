// file: internal/database/pebble_store.go
// version: 2.0.0
// guid: 0c1d2e3f-4a5b-6c7d-8e9f-0a1b2c3d4e5f

package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/cockroachdb/pebble/v2"
	"github.com/jdfalk/book-search/internal/search"
)

// PebbleStore implements the Store interface using PebbleDB (LSM key-value store)
//
// Key Schema:
// - sites:<site_type>                       -> []siteRecord JSON
// - prompt:hidden:<caller_id>:<engine_id>   -> "1"
// - setting:<key>                           -> Setting JSON
// - meta:version                            -> DatabaseVersion JSON
// - meta:migration:<version>                -> MigrationRecord JSON
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore creates a new PebbleDB store
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open PebbleDB: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

// Close closes the database
func (p *PebbleStore) Close() error {
	return p.db.Close()
}

// Reset removes every key.
func (p *PebbleStore) Reset() error {
	return p.db.DeleteRange([]byte{0x00}, []byte{0xff}, pebble.Sync)
}

func (p *PebbleStore) getRaw(key string) ([]byte, error) {
	value, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	// value is only valid until closer.Close
	return append([]byte(nil), value...), nil
}

func (p *PebbleStore) setRaw(key string, value []byte) error {
	return p.db.Set([]byte(key), value, pebble.Sync)
}

// Site list operations

func (p *PebbleStore) GetSiteList(t search.SiteType) ([]search.Site, bool, error) {
	data, err := p.getRaw(siteKey(t))
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var recs []siteRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, false, fmt.Errorf("corrupt site list %s: %w", t, err)
	}
	return fromRecords(t, recs), true, nil
}

func (p *PebbleStore) SetSiteList(t search.SiteType, sites []search.Site) error {
	data, err := json.Marshal(toRecords(sites))
	if err != nil {
		return err
	}
	return p.setRaw(siteKey(t), data)
}

func (p *PebbleStore) DeleteSiteList(t search.SiteType) error {
	return p.db.Delete([]byte(siteKey(t)), pebble.Sync)
}

// Registration prompt operations

func (p *PebbleStore) PromptHidden(engine search.EngineID, callerID string) bool {
	_, err := p.getRaw(promptKey(callerID, engine))
	if err != nil && !errors.Is(err, ErrNotFound) {
		log.Printf("[WARN] failed to read prompt flag for %s: %v", engine, err)
	}
	return err == nil
}

func (p *PebbleStore) HidePrompt(engine search.EngineID, callerID string) error {
	return p.setRaw(promptKey(callerID, engine), []byte("1"))
}

// ShowPrompts clears every hidden prompt of callerID.
func (p *PebbleStore) ShowPrompts(callerID string) error {
	prefix := "prompt:hidden:" + callerID + ":"
	return p.db.DeleteRange([]byte(prefix), []byte(prefix+"\xff"), pebble.Sync)
}
