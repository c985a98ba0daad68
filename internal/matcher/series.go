// file: internal/matcher/series.go
// version: 1.0.0
// guid: 6d2f8a41-c37b-4e95-8a10-f4b9e2c5d073

package matcher

import (
	"regexp"
	"strings"
)

// Series markers in titles returned by book sites.
var seriesPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?P<title>.+?)\s*\((?P<series>[^()]+?),?\s*#\s*(?P<num>[\d.]+)\)$`),       // "Dune (Dune Chronicles, #1)"
	regexp.MustCompile(`(?i)^(?P<series>.+?)\s+Book\s+(?P<num>\d+)(?:\s*:|\s+-)\s+(?P<title>.+)$`),   // "Series Book 1: Title"
	regexp.MustCompile(`(?i)^(?P<series>.+?)\s+Vol(?:ume|\.)?\s+(?P<num>\d+)(?:\s*:|\s+-)\s+(?P<title>.+)$`), // "Series Vol. 1: Title"
	regexp.MustCompile(`^(?P<series>.+?)\s+#(?P<num>\d+)(?:\s*:|\s+-)\s+(?P<title>.+)$`),             // "Series #1: Title"
}

// SplitSeries extracts a series name and number embedded in a title. When
// no marker is found the title is returned unchanged with ok false.
func SplitSeries(full string) (title, series, number string, ok bool) {
	full = strings.TrimSpace(full)
	for _, p := range seriesPatterns {
		m := p.FindStringSubmatch(full)
		if m == nil {
			continue
		}
		get := func(name string) string {
			return strings.TrimSpace(m[p.SubexpIndex(name)])
		}
		return get("title"), get("series"), get("num"), true
	}
	return full, "", "", false
}

// SeriesEntry formats a series list entry as "Series #N".
func SeriesEntry(series, number string) string {
	series = strings.TrimSpace(series)
	if series == "" {
		return ""
	}
	if number == "" {
		return series
	}
	return series + " #" + number
}
