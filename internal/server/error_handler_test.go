// file: internal/server/error_handler_test.go
// version: 2.0.0
// guid: 6e7f8a9b-0c1d-2e3f-4a5b-6c7d8e9f0a1b

package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jdfalk/book-search/internal/search"
	"github.com/jdfalk/book-search/internal/session"
)

func newTestContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", target, nil)
	return c, w
}

func TestRespondWithBadRequest(t *testing.T) {
	c, w := newTestContext("/")

	RespondWithBadRequest(c, "test error")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "test error") {
		t.Errorf("expected error message in response, got %q", w.Body.String())
	}
}

func TestRespondWithNotFound(t *testing.T) {
	c, w := newTestContext("/")

	RespondWithNotFound(c, "session", "01H")

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "session not found: 01H") {
		t.Errorf("expected 'not found' in response, got %q", w.Body.String())
	}
}

func TestRespondWithCreated(t *testing.T) {
	c, w := newTestContext("/")

	RespondWithCreated(c, map[string]string{"id": "123"})

	if w.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", w.Code)
	}
}

func TestRespondWithSearchError(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code string
	}{
		{search.ErrSearchActive, http.StatusConflict, "CONFLICT"},
		{search.ErrNoNetwork, http.StatusServiceUnavailable, "UNAVAILABLE"},
		{fmt.Errorf("hardcover: %w", search.ErrNotAvailable), http.StatusServiceUnavailable, "UNAVAILABLE"},
		{search.ErrEmptyCriteria, http.StatusBadRequest, "VALIDATION_ERROR"},
		{search.ErrNothingToRun, http.StatusBadRequest, "VALIDATION_ERROR"},
		{search.ErrUnsupported, http.StatusUnprocessableEntity, "UNSUPPORTED"},
		{search.ErrUnknownEngine, http.StatusNotFound, "NOT_FOUND"},
		{session.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{search.ErrClosed, http.StatusGone, "GONE"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		c, w := newTestContext("/")
		RespondWithSearchError(c, tt.err)
		if w.Code != tt.want {
			t.Errorf("%v: expected status %d, got %d", tt.err, tt.want, w.Code)
		}
		if !strings.Contains(w.Body.String(), tt.code) {
			t.Errorf("%v: expected code %s in %q", tt.err, tt.code, w.Body.String())
		}
	}
}

func TestParseQueryInt(t *testing.T) {
	c, _ := newTestContext("/?limit=25&bad=x")

	if value := ParseQueryInt(c, "limit", 50); value != 25 {
		t.Errorf("expected 25, got %d", value)
	}
	if value := ParseQueryInt(c, "offset", 0); value != 0 {
		t.Errorf("expected 0, got %d", value)
	}
	if value := ParseQueryInt(c, "bad", 7); value != 7 {
		t.Errorf("expected default 7 for invalid value, got %d", value)
	}
}

func TestParseQueryBool(t *testing.T) {
	c, _ := newTestContext("/?flag=true&other=1")

	if !ParseQueryBool(c, "flag", false) {
		t.Errorf("expected true, got false")
	}
	if !ParseQueryBool(c, "other", false) {
		t.Errorf("expected true for '1', got false")
	}
	if !ParseQueryBool(c, "missing", true) {
		t.Errorf("expected default true, got false")
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"/", 20},
		{"/?limit=5", 5},
		{"/?limit=0", 20},
		{"/?limit=5000", 100},
	}
	for _, tt := range tests {
		c, _ := newTestContext(tt.query)
		if got := ParseLimit(c, 20, 100); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.query, tt.want, got)
		}
	}
}
