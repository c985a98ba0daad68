// file: internal/search/accumulator_test.go
// version: 1.0.0
// guid: 8e1d4b60-37a9-4c2f-9b85-d6f0a2c7e314

package search

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/jdfalk/book-search/internal/isbn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func results(bags map[EngineID]BookData) map[EngineID]SiteResult {
	out := make(map[EngineID]SiteResult, len(bags))
	for id, b := range bags {
		out[id] = SiteResult{Engine: id, Locale: language.English, Data: b}
	}
	return out
}

func TestBookDataIsMatch(t *testing.T) {
	tests := []struct {
		name string
		data BookData
		want bool
	}{
		{"empty", BookData{}, false},
		{"title only", BookData{KeyTitle: "Dune"}, true},
		{"blank title", BookData{KeyTitle: ""}, false},
		{"id and one field", BookData{KeyISBN: "9780306406157", KeyPages: "10"}, false},
		{"id, blank title and one field", BookData{KeyISBN: "1", KeyTitle: "", KeyPages: "10"}, true},
		{"three fields", BookData{KeyISBN: "1", KeyPages: "10", KeyFormat: "Paperback"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.data.IsMatch())
		})
	}
}

func TestAccumulatorOrder(t *testing.T) {
	acc := NewAccumulator([]EngineID{"c", "a"})
	res := results(map[EngineID]BookData{
		"a": {KeyTitle: "A"},
		"b": {KeyTitle: "B"},
		"c": {KeyTitle: "C"},
		"d": {KeyTitle: "D"},
	})
	got := acc.Order([]EngineID{"d", "b", "a", "c", "missing"}, res, isbn.ISBN{})
	assert.Equal(t, []EngineID{"c", "a", "d", "b"}, got)
}

func TestAccumulatorOrderFiltersISBN(t *testing.T) {
	acc := NewAccumulator([]EngineID{"a", "b", "c", "d"})
	res := results(map[EngineID]BookData{
		"a": {KeyTitle: "no isbn"},
		"b": {KeyISBN: "0306406152"},
		"c": {KeyISBN: "9780441013593"},
		"d": {KeyISBN: "978-0-306-40615-7"},
	})
	got := acc.Order([]EngineID{"a", "b", "c", "d"}, res, isbn.Parse("9780306406157"))
	assert.Equal(t, []EngineID{"b", "d", "a"}, got)
}

func TestAccumulatorMergePolicies(t *testing.T) {
	acc := NewAccumulator([]EngineID{"a", "b"}, NewFormatMapper(nil))
	res := results(map[EngineID]BookData{
		"a": {
			KeyTitle:         "First",
			KeyDatePublished: "1965",
			KeyLanguage:      "English",
			KeyRating:        "0",
			KeyPriceListed:   "",
			KeyFormat:        "mass market paperback",
			KeySeriesList:    []string{"Dune"},
		},
		"b": {
			KeyTitle:            "Second",
			KeyDescription:      "desc",
			KeyDatePublished:    "August 1, 1965",
			KeyFirstPublication: "not a date",
			KeyLanguage:         "fre",
			KeyRating:           4.5,
			KeyPriceListed:      "$7.99",
			KeySeriesList:       []string{"Dune Chronicles"},
		},
	})
	data := acc.Merge([]EngineID{"a", "b"}, res, isbn.ISBN{})

	assert.Equal(t, "First", data.String(KeyTitle))
	assert.Equal(t, "desc", data.String(KeyDescription))
	assert.Equal(t, "1965-08-01", data.String(KeyDatePublished), "full date replaces a partial one")
	assert.Equal(t, "not a date", data.String(KeyFirstPublication))
	assert.Equal(t, "eng", data.String(KeyLanguage))
	assert.Equal(t, 4.5, data[KeyRating])
	assert.Equal(t, 7.99, data[KeyPriceListed])
	assert.Equal(t, "USD", data.String(KeyPriceCurrency))
	assert.Equal(t, "Paperback", data.String(KeyFormat))
	assert.Equal(t, []string{"Dune", "Dune Chronicles"}, data.List(KeySeriesList))
}

func TestMergeDateKeepsFullDate(t *testing.T) {
	dst := BookData{KeyDatePublished: "1965-08-01"}
	mergeDate(dst, KeyDatePublished, BookData{KeyDatePublished: "2001-01-01"})
	assert.Equal(t, "1965-08-01", dst.String(KeyDatePublished))

	dst = BookData{KeyDatePublished: "garbage"}
	mergeDate(dst, KeyDatePublished, BookData{KeyDatePublished: "2001"})
	assert.Equal(t, "garbage", dst.String(KeyDatePublished), "partial date does not replace")
	mergeDate(dst, KeyDatePublished, BookData{KeyDatePublished: "Jan 2, 2001"})
	assert.Equal(t, "2001-01-02", dst.String(KeyDatePublished))
}

func TestMergeSearchedISBNWritesFirst(t *testing.T) {
	acc := NewAccumulator(nil)
	res := results(map[EngineID]BookData{"a": {KeyISBN: "0306406152", KeyTitle: "t"}})
	data := acc.Merge([]EngineID{"a"}, res, isbn.Parse("9780306406157"))
	assert.Equal(t, "9780306406157", data.String(KeyISBN))
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in       string
		amount   float64
		currency string
		ok       bool
	}{
		{"$12.99", 12.99, "USD", true},
		{"12,99 €", 12.99, "EUR", true},
		{"GBP 1,234.50", 1234.50, "GBP", true},
		{"1.234,50 EUR", 1234.50, "EUR", true},
		{"free", 0, "", false},
		{"", 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			amount, currency, ok := parseMoney(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.amount, amount, 0.001)
				assert.Equal(t, tt.currency, currency)
			}
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := map[string]string{
		"1965":                 "1965",
		"1965-08":              "1965-08",
		"August 1965":          "1965-08",
		"1965-08-01":           "1965-08-01",
		"1 August 1965":        "1965-08-01",
		"1965-08-01T10:00:00Z": "1965-08-01",
	}
	for in, want := range tests {
		got, ok := normalizeDate(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := normalizeDate("someday")
	assert.False(t, ok)
}

func TestToISO3(t *testing.T) {
	assert.Equal(t, "eng", toISO3("English", language.Und))
	assert.Equal(t, "deu", toISO3("Deutsch", language.Und))
	assert.Equal(t, "fra", toISO3("French", language.English))
	assert.Equal(t, "eng", toISO3("en", language.Und))
	assert.Equal(t, "Klingonese", toISO3("Klingonese", language.Und))
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
	return path
}

func TestSelectBestCovers(t *testing.T) {
	dir := t.TempDir()
	small := writePNG(t, dir, "small.png", 10, 10)
	large := writePNG(t, dir, "large.png", 40, 60)
	broken := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(broken, []byte("nope"), 0o644))

	data := BookData{KeyCoverFiles0: []string{small, broken, large}}
	selectBestCovers(data)

	assert.Equal(t, large, data.String(KeyCover0))
	assert.False(t, data.Has(KeyCoverFiles0))
	assert.False(t, data.Has(KeyCover1))
	assert.FileExists(t, large)
	assert.NoFileExists(t, small)
	assert.NoFileExists(t, broken)
}
