// file: internal/search/accumulator.go
// version: 1.0.0
// guid: 61f2d8a4-7b3e-4c95-a0d6-e48c1b5f2a97

package search

import (
	"log"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/jdfalk/book-search/internal/isbn"
	"golang.org/x/text/language"
)

// DefaultReliabilityOrder is the order in which site data is merged when
// no order is configured. Earlier sites win conflicts.
var DefaultReliabilityOrder = []EngineID{"isfdb", "openlibrary", "googlebooks", "audnexus", "hardcover"}

var listKeys = map[string]bool{
	KeyAuthorList:    true,
	KeySeriesList:    true,
	KeyPublisherList: true,
	KeyTOCList:       true,
	KeyCoverFiles0:   true,
	KeyCoverFiles1:   true,
}

var dateKeys = map[string]bool{
	KeyDatePublished:    true,
	KeyFirstPublication: true,
}

// SiteResult is the data one site returned.
type SiteResult struct {
	Engine EngineID
	Locale language.Tag
	Data   BookData
}

// Accumulator merges the bags of several sites into one.
type Accumulator struct {
	mappers     []Mapper
	reliability []EngineID
}

// NewAccumulator creates an accumulator merging in the given reliability
// order (DefaultReliabilityOrder when empty) and running the mappers on
// the merged bag.
func NewAccumulator(reliability []EngineID, mappers ...Mapper) *Accumulator {
	if len(reliability) == 0 {
		reliability = DefaultReliabilityOrder
	}
	return &Accumulator{
		mappers:     mappers,
		reliability: slices.Clone(reliability),
	}
}

// Order returns the merge order for the engines in siteOrder: listed
// engines first in reliability order, then the rest in site order. When
// searched is a valid code, sites returning another ISBN are dropped and
// sites returning none go last.
func (a *Accumulator) Order(siteOrder []EngineID, results map[EngineID]SiteResult, searched isbn.ISBN) []EngineID {
	rank := make(map[EngineID]int, len(a.reliability))
	for i, id := range a.reliability {
		rank[id] = i
	}
	ordered := make([]EngineID, 0, len(results))
	for _, id := range siteOrder {
		if _, ok := results[id]; ok {
			ordered = append(ordered, id)
		}
	}
	slices.SortStableFunc(ordered, func(x, y EngineID) int {
		rx, xok := rank[x]
		ry, yok := rank[y]
		switch {
		case xok && yok:
			return rx - ry
		case xok:
			return -1
		case yok:
			return 1
		default:
			return 0
		}
	})
	if !searched.IsValid(false) {
		return ordered
	}

	matching := make([]EngineID, 0, len(ordered))
	var withoutISBN []EngineID
	for _, id := range ordered {
		found := strings.TrimSpace(results[id].Data.String(KeyISBN))
		switch {
		case found == "":
			withoutISBN = append(withoutISBN, id)
		case searched.Equal(isbn.New(found, false)):
			matching = append(matching, id)
		default:
			log.Printf("[DEBUG] search: dropping %s, isbn %s does not match %s", id, found, searched)
		}
	}
	return append(matching, withoutISBN...)
}

// Merge accumulates the results in the given order into a new bag, runs
// the mappers and keeps only the best cover per list.
func (a *Accumulator) Merge(order []EngineID, results map[EngineID]SiteResult, searched isbn.ISBN) BookData {
	out := NewBookData()
	if searched.IsValid(false) {
		out.Set(KeyISBN, searched.String())
	}
	for _, id := range order {
		res, ok := results[id]
		if !ok || res.Data.IsEmpty() {
			continue
		}
		keys := make([]string, 0, len(res.Data))
		for k := range res.Data {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, key := range keys {
			switch {
			case dateKeys[key]:
				mergeDate(out, key, res.Data)
			case listKeys[key]:
				mergeList(out, key, res.Data)
			case key == KeyLanguage:
				mergeLanguage(out, res.Data, res.Locale)
			case key == KeyRating:
				mergeRating(out, res.Data)
			case key == KeyPriceListed:
				mergePrice(out, res.Data)
			case key == KeyPriceCurrency:
				// copied together with the price
			default:
				mergeGeneric(out, key, res.Data)
			}
		}
	}
	for _, m := range a.mappers {
		m.Map(out)
	}
	selectBestCovers(out)
	return out
}

// mergeGeneric copies the value when the merged bag holds nothing yet.
func mergeGeneric(dst BookData, key string, src BookData) {
	v := src[key]
	if isBlank(v) || !isBlank(dst[key]) {
		return
	}
	dst[key] = v
}

// mergeDate copies the first date as-is, even partial or unparseable. A
// later full date replaces a held value that is not a full date.
func mergeDate(dst BookData, key string, src BookData) {
	incoming := strings.TrimSpace(src.String(key))
	if incoming == "" {
		return
	}
	previous := strings.TrimSpace(dst.String(key))
	if previous == "" {
		if norm, ok := normalizeDate(incoming); ok {
			incoming = norm
		}
		dst.Set(key, incoming)
		return
	}
	full, ok := parseFullDate(incoming)
	if !ok {
		return
	}
	if _, prevOK := parseFullDate(previous); !prevOK {
		dst.Set(key, full)
	}
}

// mergeList appends incoming entries, skipping names already present.
func mergeList(dst BookData, key string, src BookData) {
	incoming := src.List(key)
	if len(incoming) == 0 {
		return
	}
	list := slices.Clone(dst.List(key))
	seen := make(map[string]bool, len(list)+len(incoming))
	for _, v := range list {
		seen[normalizeListEntry(v)] = true
	}
	for _, v := range incoming {
		n := normalizeListEntry(v)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		list = append(list, v)
	}
	dst.Set(key, list)
}

func normalizeListEntry(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}), " ")
}

func mergeLanguage(dst BookData, src BookData, locale language.Tag) {
	incoming := strings.TrimSpace(src.String(KeyLanguage))
	if incoming == "" || dst.String(KeyLanguage) != "" {
		return
	}
	if len(incoming) > 3 {
		incoming = toISO3(incoming, locale)
	}
	dst.Set(KeyLanguage, incoming)
}

func mergeRating(dst BookData, src BookData) {
	if _, ok := dst[KeyRating].(float64); ok {
		return
	}
	r, ok := toFloat(src[KeyRating])
	if !ok || r <= 0 {
		return
	}
	dst.Set(KeyRating, r)
}

func mergePrice(dst BookData, src BookData) {
	if dst.Has(KeyPriceListed) {
		return
	}
	currency := strings.TrimSpace(src.String(KeyPriceCurrency))
	var amount float64
	switch v := src[KeyPriceListed].(type) {
	case string:
		var cur string
		var ok bool
		amount, cur, ok = parseMoney(v)
		if !ok {
			return
		}
		if currency == "" {
			currency = cur
		}
	default:
		f, ok := toFloat(v)
		if !ok {
			return
		}
		amount = f
	}
	dst.Set(KeyPriceListed, amount)
	if currency != "" {
		dst.Set(KeyPriceCurrency, currency)
	}
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(t), ",", ".", 1), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

var currencySymbols = map[string]string{
	"$": "USD",
	"£": "GBP",
	"€": "EUR",
	"¥": "JPY",
}

// parseMoney reads amounts such as "$12.99", "12,99 €" or "USD 12.99".
func parseMoney(s string) (float64, string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, "", false
	}
	currency := ""
	for sym, code := range currencySymbols {
		if strings.Contains(s, sym) {
			currency = code
			s = strings.ReplaceAll(s, sym, "")
		}
	}
	var number strings.Builder
	for _, field := range strings.Fields(s) {
		if len(field) == 3 && strings.ToUpper(field) == field && !strings.ContainsAny(field, "0123456789") {
			currency = field
			continue
		}
		number.WriteString(field)
	}
	num := number.String()
	// "1.234,56" and "12,99" use a decimal comma
	if i := strings.LastIndex(num, ","); i >= 0 && i > strings.LastIndex(num, ".") && len(num)-i-1 != 3 {
		num = strings.ReplaceAll(num, ".", "")
		num = strings.Replace(num, ",", ".", 1)
	} else {
		num = strings.ReplaceAll(num, ",", "")
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, "", false
	}
	return f, currency, true
}
