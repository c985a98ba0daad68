// file: internal/server/catalog_handlers.go
// version: 1.0.0
// guid: 8c9d0e1f-2a3b-4c4d-9e5f-6a7b8c9d0e1f

package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/book-search/internal/catalog"
	"github.com/jdfalk/book-search/internal/metrics"
)

func (s *Server) requireCatalog(c *gin.Context) bool {
	if s.catalog == nil {
		RespondWithError(c, http.StatusServiceUnavailable, "catalog is not configured", "UNAVAILABLE")
		return false
	}
	return true
}

// addToCatalog saves a merged result in the local catalog.
func (s *Server) addToCatalog(c *gin.Context) {
	if !s.requireCatalog(c) {
		return
	}
	var req CatalogRequest
	if HandleBindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	ol := operationLogger(c, "addToCatalog")
	id, err := s.catalog.AddData(c.Request.Context(), req.Data)
	if err != nil {
		ol.LogError(http.StatusBadRequest, err)
		RespondWithValidationError(c, "data", err.Error())
		return
	}
	book, err := s.catalog.Get(c.Request.Context(), id)
	if err != nil {
		RespondWithSearchError(c, err)
		return
	}
	if n, err := s.catalog.Count(c.Request.Context()); err == nil {
		metrics.SetCatalogBooks(n)
	}
	ol.SetResourceID(strconv.FormatInt(id, 10))
	ol.LogSuccess(http.StatusCreated)
	RespondWithCreated(c, book)
}

func (s *Server) searchCatalog(c *gin.Context) {
	if !s.requireCatalog(c) {
		return
	}
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		RespondWithValidationError(c, "q", "query is required")
		return
	}
	limit := ParseLimit(c, catalog.DefaultSearchLimit, 1000)
	ids, err := s.catalog.Search(c.Request.Context(), q, limit)
	if err != nil {
		RespondWithInternalError(c, "catalog search failed: "+err.Error())
		return
	}
	books, err := s.catalog.GetMany(c.Request.Context(), ids)
	if err != nil {
		RespondWithInternalError(c, err.Error())
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	if books == nil {
		books = []catalog.Book{}
	}
	RespondWithOK(c, CatalogSearchResponse{Query: q, BookIDs: ids, Books: books})
}

func (s *Server) getCatalogBook(c *gin.Context) {
	if !s.requireCatalog(c) {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondWithValidationError(c, "id", "must be a number")
		return
	}
	book, err := s.catalog.Get(c.Request.Context(), id)
	if err != nil {
		RespondWithSearchError(c, err)
		return
	}
	RespondWithOK(c, book)
}
