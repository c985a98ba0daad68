// file: internal/search/dates.go
// version: 1.0.0
// guid: 7c41e2d9-0b6a-4f15-9e3d-2a8c5b7f1e60

package search

import (
	"strings"
	"time"
)

// dateLayout pairs an input layout with the precision it carries.
type dateLayout struct {
	layout string
	out    string
}

const (
	fullDate  = "2006-01-02"
	yearMonth = "2006-01"
	yearOnly  = "2006"
)

var dateLayouts = []dateLayout{
	{"2006-01-02", fullDate},
	{"2006-01-02T15:04:05Z07:00", fullDate},
	{"2006-01-02T15:04:05", fullDate},
	{"2006-01-02 15:04:05", fullDate},
	{"2006/01/02", fullDate},
	{"2006.01.02", fullDate},
	{"January 2, 2006", fullDate},
	{"Jan 2, 2006", fullDate},
	{"2 January 2006", fullDate},
	{"2 Jan 2006", fullDate},
	{"January 2 2006", fullDate},
	{"2006-1-2", fullDate},
	{"2006-01", yearMonth},
	{"2006/01", yearMonth},
	{"January 2006", yearMonth},
	{"Jan 2006", yearMonth},
	{"2006", yearOnly},
}

// normalizeDate parses a date in any known layout and formats it as
// YYYY-MM-DD, YYYY-MM or YYYY depending on its precision.
func normalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, l := range dateLayouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		return t.Format(l.out), true
	}
	return "", false
}

// parseFullDate accepts only dates with day precision.
func parseFullDate(s string) (string, bool) {
	norm, ok := normalizeDate(s)
	if !ok || len(norm) != len(fullDate) {
		return "", false
	}
	return norm, true
}
