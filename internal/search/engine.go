// file: internal/search/engine.go
// version: 1.0.0
// guid: 3a0c6f0e-0d9e-4e55-a8a1-5c3c2f7e9b10

package search

import (
	"context"
	"time"

	"golang.org/x/text/language"
)

// EngineID is the stable identifier of a search engine, also used as its
// preference key (for example "openlibrary").
type EngineID string

// EngineConfig holds the static configuration of an engine.
type EngineConfig struct {
	ID      EngineID
	Name    string
	HostURL string
	Locale  language.Tag

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	// ThrottleInterval is the minimum delay between two requests to the site.
	ThrottleInterval time.Duration

	// PrefersISBN10 makes the coordinator send ISBN-10 codes when possible.
	PrefersISBN10 bool
	// DomainKey is the BookData key under which this engine stores its
	// external id, if it has one.
	DomainKey string
	// SupportsMultipleCoverSizes is informational for cover lookups.
	SupportsMultipleCoverSizes bool
}

// Timeout returns the total per-request timeout.
func (c *EngineConfig) Timeout() time.Duration {
	t := c.ConnectTimeout + c.ReadTimeout
	if t <= 0 {
		return 30 * time.Second
	}
	return t
}

// Covers selects which covers (front, back) an engine should download.
type Covers [2]bool

// TextQuery is the criteria handed to a free-text search.
type TextQuery struct {
	ISBN      string
	Author    string
	Title     string
	Publisher string
}

// Engine is the base capability shared by every search engine.
type Engine interface {
	Config() *EngineConfig
	// IsAvailable reports whether the engine can be used without further
	// user action, such as entering credentials.
	IsAvailable() bool
}

// ByExternalID is implemented by engines that can look up a book by the id
// the site uses in its public URLs.
type ByExternalID interface {
	Engine
	CreateURL(externalID string) string
	SearchByExternalID(ctx context.Context, externalID string, covers Covers) (BookData, error)
}

// ByNativeID is implemented by engines that can look up a book by a
// site-internal id.
type ByNativeID interface {
	Engine
	SearchByNativeID(ctx context.Context, nativeID string, covers Covers) (BookData, error)
}

// ByISBN is implemented by engines that can look up a valid ISBN.
type ByISBN interface {
	Engine
	SearchByISBN(ctx context.Context, validISBN string, covers Covers) (BookData, error)
}

// ByBarcode is implemented by engines that also understand generic
// EAN/UPC barcodes.
type ByBarcode interface {
	ByISBN
	SearchByBarcode(ctx context.Context, barcode string, covers Covers) (BookData, error)
}

// ByText is implemented by engines with a free-text search.
type ByText interface {
	Engine
	Search(ctx context.Context, query TextQuery, covers Covers) (BookData, error)
}

// Registrant is implemented by engines needing user registration. It returns
// whether a prompt was shown and, if so, what the user chose.
type Registrant interface {
	Engine
	PromptToRegister(ctx context.Context, p Prompter, required bool, callerID string) (bool, RegistrationAction)
}

// Capability is a bit set of engine facets.
type Capability uint8

const (
	CapExternalID Capability = 1 << iota
	CapNativeID
	CapISBN
	CapBarcode
	CapText
	CapRegistration
)

// Capabilities returns the facets implemented by e.
func Capabilities(e Engine) Capability {
	var c Capability
	if _, ok := e.(ByExternalID); ok {
		c |= CapExternalID
	}
	if _, ok := e.(ByNativeID); ok {
		c |= CapNativeID
	}
	if _, ok := e.(ByISBN); ok {
		c |= CapISBN
	}
	if _, ok := e.(ByBarcode); ok {
		c |= CapBarcode
	}
	if _, ok := e.(ByText); ok {
		c |= CapText
	}
	if _, ok := e.(Registrant); ok {
		c |= CapRegistration
	}
	return c
}

// Supports reports whether e implements every facet in want.
func Supports(e Engine, want Capability) bool {
	return e != nil && Capabilities(e)&want == want
}

// String lists the facet names, for logs and the CLI.
func (c Capability) String() string {
	names := []struct {
		c    Capability
		name string
	}{
		{CapExternalID, "external-id"},
		{CapNativeID, "native-id"},
		{CapISBN, "isbn"},
		{CapBarcode, "barcode"},
		{CapText, "text"},
		{CapRegistration, "registration"},
	}
	s := ""
	for _, n := range names {
		if c&n.c == 0 {
			continue
		}
		if s != "" {
			s += ","
		}
		s += n.name
	}
	return s
}

// Name is a convenience accessor for the display name.
func Name(e Engine) string {
	cfg := e.Config()
	if cfg.Name != "" {
		return cfg.Name
	}
	return string(cfg.ID)
}
