// file: internal/search/bookdata.go
// version: 1.1.0
// guid: 95760879-ccf2-46db-a9be-6ecf9c802527

package search

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Well-known field keys. Engines may add their own keys (for example the
// domain key holding their external id); those are merged as plain values.
const (
	KeyTitle            = "title"
	KeyISBN             = "isbn"
	KeyDescription      = "description"
	KeyFormat           = "format"
	KeyPages            = "pages"
	KeyLanguage         = "language"
	KeyRating           = "rating"
	KeyPriceListed      = "price_listed"
	KeyPriceCurrency    = "price_listed_currency"
	KeyDatePublished    = "date_published"
	KeyFirstPublication = "first_publication"
	KeyAuthorList       = "author_list"
	KeySeriesList       = "series_list"
	KeyPublisherList    = "publisher_list"
	KeyTOCList          = "toc_list"
	KeyCoverURL         = "cover_url"

	// KeyCoverFiles0/1 hold downloaded front/back cover candidates. After a
	// merge they are replaced by KeyCover0/1 holding the single best file.
	KeyCoverFiles0 = "cover_files_0"
	KeyCoverFiles1 = "cover_files_1"
	KeyCover0      = "cover_0"
	KeyCover1      = "cover_1"
)

// BookData is the flat field bag describing one candidate book.
type BookData map[string]any

// NewBookData returns an empty bag.
func NewBookData() BookData {
	return BookData{}
}

// String returns the value for key as a string. Non-string scalars are
// formatted; lists and missing keys return "".
func (b BookData) String(key string) string {
	switch v := b[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return ""
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// List returns the value for key as a string list.
func (b BookData) List(key string) []string {
	switch v := b[key].(type) {
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// Has reports whether key is present, even with an empty value.
func (b BookData) Has(key string) bool {
	_, ok := b[key]
	return ok
}

// Set stores value under key.
func (b BookData) Set(key string, value any) {
	b[key] = value
}

// Len is the number of keys in the bag, empty values included.
func (b BookData) Len() int {
	return len(b)
}

// IsEmpty reports whether the bag holds no keys.
func (b BookData) IsEmpty() bool {
	return len(b) == 0
}

// IsMatch reports whether the bag describes a book. The isbn field is
// always present after an isbn search and the title field might be present
// but empty, so a bag only counts when it has a title or a third field.
func (b BookData) IsMatch() bool {
	return b.String(KeyTitle) != "" || len(b) > 2
}

// Clone returns a copy of the bag; list values are copied too.
func (b BookData) Clone() BookData {
	if b == nil {
		return nil
	}
	out := make(BookData, len(b))
	for k, v := range b {
		if list, ok := v.([]string); ok {
			v = slices.Clone(list)
		}
		out[k] = v
	}
	return out
}

// UnmarshalJSON decodes a bag, turning JSON arrays back into string lists.
func (b *BookData) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(BookData, len(raw))
	for k, v := range raw {
		if list, ok := v.([]any); ok {
			items := make([]string, 0, len(list))
			for _, item := range list {
				items = append(items, fmt.Sprint(item))
			}
			v = items
		}
		out[k] = v
	}
	*b = out
	return nil
}

// isBlank reports whether a value carries no information.
func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	default:
		return strings.TrimSpace(fmt.Sprint(t)) == ""
	}
}
