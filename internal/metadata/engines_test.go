// file: internal/metadata/engines_test.go
// version: 1.0.0
// guid: 0a1b2c3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d

package metadata

import (
	"testing"

	"github.com/jdfalk/book-search/internal/search"
)

func TestNewRegistry(t *testing.T) {
	reg, engines := NewRegistry(Settings{Disabled: []search.EngineID{"isfdb"}})

	want := []search.EngineID{"openlibrary", "googlebooks", "isfdb", "hardcover", "audnexus"}
	ids := reg.IDs()
	if len(ids) != len(want) {
		t.Fatalf("expected %d engines, got %v", len(want), ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("engine %d: got %s, want %s", i, ids[i], want[i])
		}
	}

	for _, s := range reg.DefaultSites(search.SiteTypeData) {
		if s.Engine == "isfdb" && s.Enabled {
			t.Error("isfdb should be disabled by default")
		}
		if s.Engine == "openlibrary" && !s.Enabled {
			t.Error("openlibrary should be enabled by default")
		}
	}

	if engines.Hardcover.IsAvailable() {
		t.Error("hardcover should be unavailable without a token")
	}
	if !search.Supports(engines.Hardcover, search.CapRegistration) {
		t.Error("hardcover should support registration")
	}
	if !search.Supports(engines.OpenLibrary, search.CapISBN|search.CapExternalID|search.CapText) {
		t.Errorf("unexpected openlibrary capabilities %s", search.Capabilities(engines.OpenLibrary))
	}
}

func TestViewOnSiteSites(t *testing.T) {
	reg, _ := NewRegistry(Settings{})
	var ids []search.EngineID
	for _, s := range reg.DefaultSites(search.SiteTypeViewOnSite) {
		ids = append(ids, s.Engine)
	}
	want := []search.EngineID{"openlibrary", "isfdb", "audnexus"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("got %v, want %v", ids, want)
		}
	}
}

func TestGoogleBooksKeySetting(t *testing.T) {
	_, engines := NewRegistry(Settings{GoogleBooksKey: "abc"})
	if engines.GoogleBooks.apiKey != "abc" {
		t.Errorf("expected api key from settings, got %q", engines.GoogleBooks.apiKey)
	}
}

func TestSetTitleSplitsSeries(t *testing.T) {
	data := search.NewBookData()
	setTitle(data, "Dune Messiah (Dune Chronicles, #2)")
	if got := data.String(search.KeyTitle); got != "Dune Messiah" {
		t.Errorf("title = %q", got)
	}
	if got := data.List(search.KeySeriesList); len(got) != 1 || got[0] != "Dune Chronicles #2" {
		t.Errorf("series = %v", got)
	}

	plain := search.NewBookData()
	setTitle(plain, "The Google Story")
	if got := plain.String(search.KeyTitle); got != "The Google Story" {
		t.Errorf("title = %q", got)
	}
	if plain.Has(search.KeySeriesList) {
		t.Error("unexpected series for plain title")
	}
}
