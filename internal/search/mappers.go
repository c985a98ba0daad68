// file: internal/search/mappers.go
// version: 1.0.0
// guid: 2e6b8f40-9a1c-4d73-8b25-f0c7a3d91e48

package search

import (
	"strings"
)

// Mapper normalises a value in the merged bag after accumulation.
type Mapper interface {
	Key() string
	Map(data BookData)
}

// FormatMapper maps the many spellings of a binding/format to a small
// fixed vocabulary. Unknown formats are kept as returned by the site.
type FormatMapper struct {
	table map[string]string
}

// NewFormatMapper builds the default format table. Extra entries override
// the defaults.
func NewFormatMapper(extra map[string]string) *FormatMapper {
	table := map[string]string{
		"paperback":             "Paperback",
		"mass market paperback": "Paperback",
		"mass market":           "Paperback",
		"trade paperback":       "Trade paperback",
		"softcover":             "Paperback",
		"soft cover":            "Paperback",
		"pb":                    "Paperback",
		"tpb":                   "Trade paperback",
		"hardcover":             "Hardcover",
		"hardback":              "Hardcover",
		"hard cover":            "Hardcover",
		"hc":                    "Hardcover",
		"library binding":       "Hardcover",
		"ebook":                 "eBook",
		"e-book":                "eBook",
		"kindle edition":        "eBook",
		"kindle":                "eBook",
		"epub":                  "eBook",
		"digital":               "eBook",
		"audiobook":             "Audiobook",
		"audio cd":              "Audiobook",
		"audible audio":         "Audiobook",
		"audio":                 "Audiobook",
		"mp3 cd":                "Audiobook",
		"board book":            "Board book",
		"spiral-bound":          "Spiral bound",
	}
	for k, v := range extra {
		table[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return &FormatMapper{table: table}
}

func (m *FormatMapper) Key() string { return KeyFormat }

func (m *FormatMapper) Map(data BookData) {
	raw := strings.TrimSpace(data.String(KeyFormat))
	if raw == "" {
		return
	}
	if mapped, ok := m.table[strings.ToLower(raw)]; ok {
		data.Set(KeyFormat, mapped)
	}
}
