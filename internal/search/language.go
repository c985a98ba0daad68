// file: internal/search/language.go
// version: 1.0.0
// guid: 4f0a9d31-6e2b-4c87-b5f4-91d3e8a27c05

package search

import (
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var (
	languageNamesOnce sync.Once
	languageNames     map[string]language.Base
)

// loadLanguageNames indexes the English and native display names of every
// language that has a display dictionary.
func loadLanguageNames() {
	languageNames = make(map[string]language.Base)
	english := display.English.Languages()
	for _, tag := range display.Supported.Tags() {
		base, conf := tag.Base()
		if conf == language.No {
			continue
		}
		if name := english.Name(tag); name != "" {
			languageNames[strings.ToLower(name)] = base
		}
		if name := display.Self.Name(tag); name != "" {
			languageNames[strings.ToLower(name)] = base
		}
	}
}

// toISO3 maps a language code or display name to its ISO 639-2 code. The
// site locale is tried first for display names. Unknown input is returned
// unchanged.
func toISO3(value string, locale language.Tag) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if len(value) <= 3 {
		if base, err := language.ParseBase(value); err == nil {
			return base.ISO3()
		}
		return value
	}
	lower := strings.ToLower(value)
	if namer := display.Languages(locale); namer != nil && locale != language.Und {
		for _, tag := range display.Supported.Tags() {
			if strings.ToLower(namer.Name(tag)) == lower {
				base, _ := tag.Base()
				return base.ISO3()
			}
		}
	}
	languageNamesOnce.Do(loadLanguageNames)
	if base, ok := languageNames[lower]; ok {
		return base.ISO3()
	}
	if tag, err := language.Parse(value); err == nil {
		base, _ := tag.Base()
		return base.ISO3()
	}
	return value
}
