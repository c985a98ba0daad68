// file: internal/metadata/engines.go
// version: 1.1.0
// guid: 9a4c7e2b-1f3d-4e8a-b5c6-0d7e8f9a1b2c

package metadata

import (
	"log"

	"github.com/jdfalk/book-search/internal/search"
)

// Settings configures the built-in engines.
type Settings struct {
	HardcoverToken string
	// GoogleBooksKey overrides GOOGLE_BOOKS_API_KEY when set.
	GoogleBooksKey string
	// CoverDir is where downloaded covers are written.
	CoverDir string
	// Disabled lists engines registered but off in default site lists.
	Disabled []search.EngineID
}

// Engines holds the concrete clients so callers can reach engine-specific
// setters (such as the Hardcover token) after registration.
type Engines struct {
	OpenLibrary *OpenLibraryClient
	GoogleBooks *GoogleBooksClient
	Hardcover   *HardcoverClient
	Audnexus    *AudnexusClient
	ISFDB       *ISFDBClient
}

// NewEngines builds every engine from the environment and settings.
func NewEngines(s Settings) *Engines {
	e := &Engines{
		OpenLibrary: NewOpenLibraryClient(),
		GoogleBooks: NewGoogleBooksClient(),
		Hardcover:   NewHardcoverClient(s.HardcoverToken),
		Audnexus:    NewAudnexusClient(),
		ISFDB:       NewISFDBClient(),
	}
	if s.GoogleBooksKey != "" {
		e.GoogleBooks.apiKey = s.GoogleBooksKey
	}
	for _, b := range e.bases() {
		b.SetCoverDir(s.CoverDir)
	}
	return e
}

func (e *Engines) bases() []*baseClient {
	return []*baseClient{
		&e.OpenLibrary.baseClient,
		&e.GoogleBooks.baseClient,
		&e.Hardcover.baseClient,
		&e.Audnexus.baseClient,
		&e.ISFDB.baseClient,
	}
}

// All returns the engines in default site order.
func (e *Engines) All() []search.Engine {
	return []search.Engine{e.OpenLibrary, e.GoogleBooks, e.ISFDB, e.Hardcover, e.Audnexus}
}

// Register adds every engine to reg. Engines listed in disabled are
// registered but off by default.
func (e *Engines) Register(reg *search.Registry, disabled ...search.EngineID) {
	off := make(map[search.EngineID]bool, len(disabled))
	for _, id := range disabled {
		off[id] = true
	}
	for _, eng := range e.All() {
		id := eng.Config().ID
		reg.Register(eng, !off[id])
		log.Printf("[DEBUG] registered engine %s (%s)", id, search.Capabilities(eng))
	}
}

// NewRegistry builds a registry holding every built-in engine.
func NewRegistry(s Settings) (*search.Registry, *Engines) {
	e := NewEngines(s)
	reg := search.NewRegistry()
	e.Register(reg, s.Disabled...)
	return reg, e
}

var (
	_ search.ByISBN       = (*OpenLibraryClient)(nil)
	_ search.ByExternalID = (*OpenLibraryClient)(nil)
	_ search.ByText       = (*OpenLibraryClient)(nil)
	_ search.ByISBN       = (*GoogleBooksClient)(nil)
	_ search.ByNativeID   = (*GoogleBooksClient)(nil)
	_ search.ByText       = (*GoogleBooksClient)(nil)
	_ search.ByText       = (*HardcoverClient)(nil)
	_ search.ByNativeID   = (*HardcoverClient)(nil)
	_ search.Registrant   = (*HardcoverClient)(nil)
	_ search.ByExternalID = (*AudnexusClient)(nil)
	_ search.ByNativeID   = (*AudnexusClient)(nil)
	_ search.ByISBN       = (*ISFDBClient)(nil)
	_ search.ByExternalID = (*ISFDBClient)(nil)
	_ search.ByText       = (*ISFDBClient)(nil)
)
