// file: internal/server/session_handlers.go
// version: 1.0.0
// guid: 2a3b4c5d-6e7f-4a8b-9c0d-1e2f3a4b5c6d

package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/book-search/internal/catalog"
	"github.com/jdfalk/book-search/internal/config"
	"github.com/jdfalk/book-search/internal/metrics"
	"github.com/jdfalk/book-search/internal/search"
	"github.com/jdfalk/book-search/internal/session"
)

// requestOwner is the authenticated user, or "" without basic auth.
func requestOwner(c *gin.Context) string {
	return c.GetString("auth_user")
}

// lookupSession resolves :id and hides sessions of other users. It writes
// the error response and returns nil when the session is not usable.
func (s *Server) lookupSession(c *gin.Context) *session.Session {
	id := c.Param("id")
	sess, err := s.sessions.Get(id)
	if err == nil && config.AppConfig.BasicAuthEnabled && sess.Owner != requestOwner(c) {
		err = session.ErrNotFound
	}
	if err != nil {
		RespondWithNotFound(c, "session", id)
		return nil
	}
	return sess
}

func (s *Server) createSession(c *gin.Context) {
	ol := operationLogger(c, "createSession")
	sess := s.sessions.Create(requestOwner(c))
	metrics.SetSessions(s.sessions.Count())
	ol.SetResourceID(sess.ID)
	ol.LogSuccess(http.StatusCreated)
	RespondWithCreated(c, newSessionResponse(sess))
}

func (s *Server) listSessions(c *gin.Context) {
	owner := requestOwner(c)
	out := make([]SessionResponse, 0)
	for _, sess := range s.sessions.List() {
		if config.AppConfig.BasicAuthEnabled && sess.Owner != owner {
			continue
		}
		out = append(out, newSessionResponse(sess))
	}
	RespondWithList(c, out, len(out))
}

func (s *Server) getSession(c *gin.Context) {
	sess := s.lookupSession(c)
	if sess == nil {
		return
	}
	RespondWithOK(c, newSessionResponse(sess))
}

func (s *Server) deleteSession(c *gin.Context) {
	sess := s.lookupSession(c)
	if sess == nil {
		return
	}
	if err := s.sessions.Delete(sess.ID); err != nil {
		RespondWithSearchError(c, err)
		return
	}
	metrics.SetSessions(s.sessions.Count())
	RespondWithNoContent(c)
}

// setCriteria replaces the text criteria of a session. Book ids from an
// earlier catalog query are kept unless a new query is given.
func (s *Server) setCriteria(c *gin.Context) {
	sess := s.lookupSession(c)
	if sess == nil {
		return
	}
	var req CriteriaRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	coord := sess.Coordinator

	current := coord.Criteria()
	cr := search.Criteria{
		ISBN:       strings.TrimSpace(req.ISBN),
		StrictISBN: current.StrictISBN,
		Author:     strings.TrimSpace(req.Author),
		Title:      strings.TrimSpace(req.Title),
		Publisher:  strings.TrimSpace(req.Publisher),
		Keywords:   strings.TrimSpace(req.Keywords),
		BookIDs:    current.BookIDs,
	}
	if req.StrictISBN != nil {
		cr.StrictISBN = *req.StrictISBN
	}
	for engine, id := range req.ExternalIDs {
		if _, ok := s.registry.Engine(search.EngineID(engine)); !ok {
			RespondWithValidationError(c, "external_ids", fmt.Sprintf("unknown engine %q", engine))
			return
		}
		if id = strings.TrimSpace(id); id != "" {
			if cr.ExternalIDs == nil {
				cr.ExternalIDs = make(map[search.EngineID]string)
			}
			cr.ExternalIDs[search.EngineID(engine)] = id
		}
	}

	if q := strings.TrimSpace(req.CatalogQuery); q != "" {
		if s.catalog == nil {
			RespondWithError(c, http.StatusServiceUnavailable, "catalog is not configured", "UNAVAILABLE")
			return
		}
		ids, err := s.catalog.Search(c.Request.Context(), q, catalog.DefaultSearchLimit)
		if err != nil {
			RespondWithInternalError(c, "catalog search failed: "+err.Error())
			return
		}
		cr.BookIDs = ids
	}

	coord.SetCriteria(cr)
	RespondWithOK(c, newCriteriaResponse(coord.Criteria()))
}

func (s *Server) startSearch(c *gin.Context) {
	sess := s.lookupSession(c)
	if sess == nil {
		return
	}
	ol := operationLogger(c, "startSearch")
	ol.SetResourceID(sess.ID)
	if err := sess.Coordinator.TrySearch(); err != nil {
		ol.LogDebug(err.Error())
		RespondWithSearchError(c, err)
		return
	}
	ol.LogSuccess(http.StatusAccepted)
	RespondWithAccepted(c, newSessionResponse(sess))
}

func (s *Server) startExternalSearch(c *gin.Context) {
	s.startIDSearch(c, false)
}

func (s *Server) startNativeSearch(c *gin.Context) {
	s.startIDSearch(c, true)
}

func (s *Server) startIDSearch(c *gin.Context, native bool) {
	sess := s.lookupSession(c)
	if sess == nil {
		return
	}
	var req IDSearchRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	ol := operationLogger(c, "startIDSearch")
	ol.SetResourceID(sess.ID)
	ol.AddDetail("engine", req.Engine)
	ol.AddDetail("native", native)

	engine := search.EngineID(req.Engine)
	var err error
	if native {
		err = sess.Coordinator.TrySearchByNativeID(engine, req.ID)
	} else {
		err = sess.Coordinator.TrySearchByExternalID(engine, req.ID)
	}
	if err != nil {
		ol.LogDebug(err.Error())
		RespondWithSearchError(c, err)
		return
	}
	ol.LogSuccess(http.StatusAccepted)
	RespondWithAccepted(c, newSessionResponse(sess))
}

func (s *Server) cancelSearch(c *gin.Context) {
	sess := s.lookupSession(c)
	if sess == nil {
		return
	}
	cancelled := sess.Coordinator.Cancel()
	RespondWithOK(c, gin.H{"cancelled": cancelled, "state": sess.Coordinator.State().String()})
}

// getResult delivers the last terminal event once. A second read answers
// 410 unless ?peek=true.
func (s *Server) getResult(c *gin.Context) {
	sess := s.lookupSession(c)
	if sess == nil {
		return
	}
	ev, ok := sess.Coordinator.Last()
	if !ok {
		if sess.Coordinator.IsSearchActive() {
			RespondWithError(c, http.StatusNotFound, "search still running", "PENDING")
			return
		}
		RespondWithNotFound(c, "result", sess.ID)
		return
	}
	if !ParseQueryBool(c, "peek", false) && !ev.Consume() {
		RespondWithGone(c, "result already delivered")
		return
	}
	RespondWithOK(c, newResultResponse(ev.Result))
}

func (s *Server) getSessionSites(c *gin.Context) {
	sess := s.lookupSession(c)
	if sess == nil {
		return
	}
	sites := sess.Coordinator.SiteList()
	RespondWithList(c, sites, len(sites))
}

// setSessionSites changes the data sites of one session only; the stored
// list is left alone.
func (s *Server) setSessionSites(c *gin.Context) {
	sess := s.lookupSession(c)
	if sess == nil {
		return
	}
	var req SitesRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	for _, site := range req.Sites {
		if _, ok := s.registry.Engine(site.Engine); !ok {
			RespondWithValidationError(c, "sites", fmt.Sprintf("unknown engine %q", site.Engine))
			return
		}
	}
	sites := s.registry.Normalize(search.SiteTypeData, req.Sites)
	sess.Coordinator.SetSiteList(sites)
	RespondWithList(c, sites, len(sites))
}
