// file: internal/search/site_test.go
// version: 1.0.0
// guid: b74e2d19-5c03-4a8f-a6e1-2d9f0b3c7e86

package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilities(t *testing.T) {
	text := textSite{newFake("t")}
	full := fullSite{newFake("f")}

	assert.Equal(t, CapText, Capabilities(text))
	assert.True(t, Supports(full, CapExternalID|CapISBN|CapBarcode|CapRegistration))
	assert.False(t, Supports(text, CapISBN))
	assert.False(t, Supports(nil, CapText))
	assert.Equal(t, "isbn,text", Capabilities(isbnSite{newFake("i")}).String())
}

func TestRegistryDefaultsAndNormalize(t *testing.T) {
	reg := NewRegistry()
	reg.Register(fullSite{newFake("a")}, true)
	reg.Register(textSite{newFake("b")}, false)

	assert.Equal(t, []Site{
		{Engine: "a", Type: SiteTypeData, Enabled: true},
		{Engine: "b", Type: SiteTypeData, Enabled: false},
	}, reg.DefaultSites(SiteTypeData))
	assert.Equal(t, []Site{{Engine: "a", Type: SiteTypeViewOnSite, Enabled: true}}, reg.DefaultSites(SiteTypeViewOnSite))

	stored := []Site{
		{Engine: "gone", Enabled: true},
		{Engine: "b", Enabled: true},
	}
	assert.Equal(t, []Site{
		{Engine: "b", Type: SiteTypeData, Enabled: true},
		{Engine: "a", Type: SiteTypeData, Enabled: false},
	}, reg.Normalize(SiteTypeData, stored))
}

func TestReorderAndFilter(t *testing.T) {
	sites := []Site{{Engine: "a", Enabled: true}, {Engine: "b"}, {Engine: "c", Enabled: true}}
	got := Reorder(sites, []EngineID{"c", "b"})
	assert.Equal(t, []EngineID{"c", "b", "a"}, []EngineID{got[0].Engine, got[1].Engine, got[2].Engine})
	assert.Len(t, FilterEnabled(got), 2)
	assert.Equal(t, "a", string(sites[0].Engine), "input untouched")
}

func TestPromptToRegisterStopsOnRegister(t *testing.T) {
	a := newFake("a")
	a.available = false
	b := newFake("b")
	b.available = false
	reg := NewRegistry()
	reg.Register(fullSite{a}, true)
	reg.Register(fullSite{b}, true)
	reg.Register(textSite{newFake("c")}, true)

	p := &recordingPrompter{action: RegisterNotEver}
	action := PromptToRegister(context.Background(), reg, reg.DefaultSites(SiteTypeData), p, "menu")
	assert.Equal(t, RegisterNotEver, action)
	assert.Len(t, p.Requests(), 2)
	assert.True(t, p.PromptHidden("a", "menu"))

	// hidden prompts are skipped on the next walk
	p.action = RegisterNow
	action = PromptToRegister(context.Background(), reg, reg.DefaultSites(SiteTypeData), p, "menu")
	assert.Equal(t, RegisterNotNow, action)
	assert.Len(t, p.Requests(), 2)
}

func TestPromptToRegisterRegisterStops(t *testing.T) {
	a := newFake("a")
	a.available = false
	b := newFake("b")
	b.available = false
	reg := NewRegistry()
	reg.Register(fullSite{a}, true)
	reg.Register(fullSite{b}, true)
	reg.Register(fullSite{newFake("ok")}, true)
	p := &recordingPrompter{action: RegisterNow}
	assert.Equal(t, RegisterNow, PromptToRegister(context.Background(), reg, reg.DefaultSites(SiteTypeData), p, ""))
	assert.Len(t, p.Requests(), 1)
}
