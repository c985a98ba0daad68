// file: internal/server/response_types.go
// version: 2.1.0
// guid: 7f8a9b0c-1d2e-3f4a-5b6c-7d8e9f0a1b2c

package server

import (
	"time"

	"github.com/jdfalk/book-search/internal/catalog"
	"github.com/jdfalk/book-search/internal/search"
	"github.com/jdfalk/book-search/internal/session"
)

// CriteriaRequest replaces the criteria of a session. CatalogQuery, when
// set, runs a local full-text search whose ids are stored with the
// criteria.
type CriteriaRequest struct {
	ISBN         string            `json:"isbn"`
	StrictISBN   *bool             `json:"strict_isbn,omitempty"`
	Author       string            `json:"author"`
	Title        string            `json:"title"`
	Publisher    string            `json:"publisher"`
	Keywords     string            `json:"keywords"`
	ExternalIDs  map[string]string `json:"external_ids,omitempty"`
	CatalogQuery string            `json:"catalog_query,omitempty"`
}

// IDSearchRequest starts a single-site search by id.
type IDSearchRequest struct {
	Engine string `json:"engine" binding:"required"`
	ID     string `json:"id" binding:"required"`
}

// SitesRequest replaces a site list.
type SitesRequest struct {
	Sites []search.Site `json:"sites" binding:"required"`
}

// CatalogRequest saves a book bag in the local catalog.
type CatalogRequest struct {
	Data search.BookData `json:"data" binding:"required"`
}

// CriteriaResponse is the JSON form of search.Criteria.
type CriteriaResponse struct {
	ISBN        string            `json:"isbn,omitempty"`
	StrictISBN  bool              `json:"strict_isbn"`
	Author      string            `json:"author,omitempty"`
	Title       string            `json:"title,omitempty"`
	Publisher   string            `json:"publisher,omitempty"`
	Keywords    string            `json:"keywords,omitempty"`
	ExternalIDs map[string]string `json:"external_ids,omitempty"`
	BookIDs     []int64           `json:"book_ids,omitempty"`
}

// SessionResponse describes one search session.
type SessionResponse struct {
	ID        string           `json:"id"`
	Owner     string           `json:"owner,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	LastUsed  time.Time        `json:"last_used"`
	State     string           `json:"state"`
	Criteria  CriteriaResponse `json:"criteria"`
	Sites     []search.Site    `json:"sites"`
}

// ResultResponse is the delivered outcome of a search.
type ResultResponse struct {
	SearchID      uint64            `json:"search_id"`
	Matched       bool              `json:"matched"`
	Cancelled     bool              `json:"cancelled"`
	Data          search.BookData   `json:"data,omitempty"`
	Errors        string            `json:"errors,omitempty"`
	FailedEngines []search.EngineID `json:"failed_engines,omitempty"`
	Registration  []search.EngineID `json:"registration,omitempty"`
}

// EngineResponse describes a registered engine.
type EngineResponse struct {
	ID           search.EngineID `json:"id"`
	Name         string          `json:"name"`
	HostURL      string          `json:"host_url"`
	Capabilities string          `json:"capabilities"`
	Available    bool            `json:"available"`
}

// CatalogSearchResponse carries full-text matches.
type CatalogSearchResponse struct {
	Query   string         `json:"query"`
	BookIDs []int64        `json:"book_ids"`
	Books   []catalog.Book `json:"books"`
}

// StatusResponse provides a consistent format for status check responses
type StatusResponse struct {
	Status string `json:"status"` // "ok", "degraded", "error"
	Code   string `json:"code,omitempty"`
	Data   any    `json:"data,omitempty"`
}

func newCriteriaResponse(cr search.Criteria) CriteriaResponse {
	out := CriteriaResponse{
		ISBN:       cr.ISBN,
		StrictISBN: cr.StrictISBN,
		Author:     cr.Author,
		Title:      cr.Title,
		Publisher:  cr.Publisher,
		Keywords:   cr.Keywords,
		BookIDs:    cr.BookIDs,
	}
	if len(cr.ExternalIDs) > 0 {
		out.ExternalIDs = make(map[string]string, len(cr.ExternalIDs))
		for k, v := range cr.ExternalIDs {
			out.ExternalIDs[string(k)] = v
		}
	}
	return out
}

func newSessionResponse(s *session.Session) SessionResponse {
	coord := s.Coordinator
	return SessionResponse{
		ID:        s.ID,
		Owner:     s.Owner,
		CreatedAt: s.CreatedAt,
		LastUsed:  s.LastUsed(),
		State:     coord.State().String(),
		Criteria:  newCriteriaResponse(coord.Criteria()),
		Sites:     coord.SiteList(),
	}
}

func newResultResponse(r *search.Result) ResultResponse {
	if r == nil {
		return ResultResponse{}
	}
	return ResultResponse{
		SearchID:      r.SearchID,
		Matched:       r.IsMatch(),
		Cancelled:     r.Cancelled,
		Data:          r.Data,
		Errors:        r.ErrorText,
		FailedEngines: r.FailedEngines(),
		Registration:  r.Registration,
	}
}

func newEngineResponse(e search.Engine) EngineResponse {
	cfg := e.Config()
	return EngineResponse{
		ID:           cfg.ID,
		Name:         search.Name(e),
		HostURL:      cfg.HostURL,
		Capabilities: search.Capabilities(e).String(),
		Available:    e.IsAvailable(),
	}
}

// RegisterSitesResponse reports the outcome of a registration walk.
type RegisterSitesResponse struct {
	Action  string `json:"action"`
	Prompts int    `json:"prompts"`
}
