// file: internal/search/result.go
// version: 1.0.0
// guid: c5a81e37-2d94-4b6f-8e01-3f7b9d2a6c84

package search

import (
	"slices"
)

// Result is the outcome of one search invocation, carried by Finished and
// Cancelled events.
type Result struct {
	SearchID uint64   `json:"search_id"`
	Data     BookData `json:"data"`
	// Errors holds per-site failures. They never end up in Data so the
	// match heuristic only sees real fields.
	Errors    map[EngineID]*SiteError `json:"-"`
	ErrorText string                  `json:"error_text,omitempty"`
	// Registration lists engines that were skipped because they need the
	// user to register first.
	Registration []EngineID `json:"registration,omitempty"`
	Cancelled    bool       `json:"cancelled"`
}

// IsMatch reports whether the merged data describes a book.
func (r *Result) IsMatch() bool {
	return r != nil && r.Data != nil && r.Data.IsMatch()
}

// HasErrors reports whether at least one site failed.
func (r *Result) HasErrors() bool {
	return r != nil && len(r.Errors) > 0
}

// FailedEngines returns the ids of the sites that failed, sorted.
func (r *Result) FailedEngines() []EngineID {
	if r == nil {
		return nil
	}
	ids := make([]EngineID, 0, len(r.Errors))
	for id := range r.Errors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
