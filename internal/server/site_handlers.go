// file: internal/server/site_handlers.go
// version: 1.1.0
// guid: 5b6c7d8e-9f0a-4b1c-8d2e-3f4a5b6c7d8e

package server

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/book-search/internal/search"
)

func (s *Server) listSites(c *gin.Context) {
	all, err := s.sites.All()
	if err != nil {
		RespondWithInternalError(c, err.Error())
		return
	}
	out := make(map[string][]search.Site, len(all))
	for t, sites := range all {
		out[string(t)] = sites
	}
	RespondWithOK(c, out)
}

func (s *Server) siteType(c *gin.Context) (search.SiteType, bool) {
	t, err := search.ParseSiteType(c.Param("type"))
	if err != nil {
		RespondWithValidationError(c, "type", err.Error())
		return "", false
	}
	return t, true
}

// setSites stores a site list. Sessions created afterwards use it.
func (s *Server) setSites(c *gin.Context) {
	t, ok := s.siteType(c)
	if !ok {
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
	ol := operationLogger(c, "setSites")
	ol.SetResourceID(string(t))
	if err := s.sites.SetSites(t, req.Sites); err != nil {
		ol.LogError(500, err)
		RespondWithInternalError(c, err.Error())
		return
	}
	sites, err := s.sites.Sites(t)
	if err != nil {
		RespondWithInternalError(c, err.Error())
		return
	}
	ol.LogSuccess(200)
	RespondWithList(c, sites, len(sites))
}

func (s *Server) resetSites(c *gin.Context) {
	t, ok := s.siteType(c)
	if !ok {
		return
	}
	if err := s.sites.Reset(t); err != nil {
		RespondWithInternalError(c, err.Error())
		return
	}
	sites, err := s.sites.Sites(t)
	if err != nil {
		RespondWithInternalError(c, err.Error())
		return
	}
	RespondWithList(c, sites, len(sites))
}

func (s *Server) listEngines(c *gin.Context) {
	ids := s.registry.IDs()
	out := make([]EngineResponse, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.registry.Engine(id); ok {
			out = append(out, newEngineResponse(e))
		}
	}
	RespondWithList(c, out, len(out))
}

// engineURL builds the "view on site" link for an external id.
func (s *Server) engineURL(c *gin.Context) {
	engine := search.EngineID(c.Param("engine"))
	e, ok := s.registry.Engine(engine)
	if !ok {
		RespondWithNotFound(c, "engine", string(engine))
		return
	}
	byID, ok := e.(search.ByExternalID)
	if !ok {
		RespondWithSearchError(c, search.ErrUnsupported)
		return
	}
	id, err := url.PathUnescape(c.Param("id"))
	if err != nil || id == "" {
		RespondWithValidationError(c, "id", "invalid id")
		return
	}
	RespondWithOK(c, gin.H{"engine": engine, "id": id, "url": byID.CreateURL(id)})
}

// showPrompts forgets every "never ask again" answer of the caller.
func (s *Server) showPrompts(c *gin.Context) {
	callerID := requestOwner(c)
	if callerID == "" {
		callerID = "api"
	}
	if err := s.store.ShowPrompts(callerID); err != nil {
		RespondWithInternalError(c, err.Error())
		return
	}
	RespondWithNoContent(c)
}

// registerSites walks the enabled data sites and broadcasts a registration
// prompt for every engine that still needs an account.
func (s *Server) registerSites(c *gin.Context) {
	callerID := requestOwner(c)
	if callerID == "" {
		callerID = "api"
	}
	sites, err := s.sites.Sites(search.SiteTypeData)
	if err != nil {
		RespondWithInternalError(c, err.Error())
		return
	}
	p := &sessionPrompter{hub: s.hub, filter: s.store}
	action := search.PromptToRegister(c.Request.Context(), s.registry, sites, p, callerID)
	RespondWithSuccess(c, http.StatusOK, RegisterSitesResponse{
		Action:  action.String(),
		Prompts: int(p.shown.Load()),
	})
}
