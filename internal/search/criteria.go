// file: internal/search/criteria.go
// version: 1.0.0
// guid: 2d5b8a07-1c55-4d6e-9a0a-2f7b1f4c6e33

package search

import (
	"maps"
	"slices"
	"strings"
)

// Criteria is the mutable input of one search.
type Criteria struct {
	ISBN       string
	StrictISBN bool
	Author     string
	Title      string
	Publisher  string
	// Keywords only feeds the local full-text search.
	Keywords string
	// ExternalIDs holds site specific ids keyed by engine.
	ExternalIDs map[EngineID]string
	// BookIDs is the result of a prior full-text search of the local
	// catalogue. It is not a search mode of the coordinator and survives
	// Clear.
	BookIDs []int64
}

// NewCriteria returns empty criteria with strict ISBN checking.
func NewCriteria() Criteria {
	return Criteria{StrictISBN: true}
}

// Clear resets the text, ISBN and external id criteria. BookIDs is kept.
func (c *Criteria) Clear() {
	c.ISBN = ""
	c.Author = ""
	c.Title = ""
	c.Publisher = ""
	c.Keywords = ""
	c.ExternalIDs = nil
}

// IsEmpty reports whether there is nothing to search on. Publisher and
// keywords alone are not enough.
func (c *Criteria) IsEmpty() bool {
	return strings.TrimSpace(c.Author) == "" &&
		strings.TrimSpace(c.Title) == "" &&
		strings.TrimSpace(c.ISBN) == "" &&
		len(c.ExternalIDs) == 0
}

// Clone returns a deep copy.
func (c Criteria) Clone() Criteria {
	out := c
	if c.ExternalIDs != nil {
		out.ExternalIDs = maps.Clone(c.ExternalIDs)
	}
	out.BookIDs = slices.Clone(c.BookIDs)
	return out
}
