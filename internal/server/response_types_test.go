// file: internal/server/response_types_test.go
// version: 2.0.0
// guid: 8a9b0c1d-2e3f-4a5b-6c7d-8e9f0a1b2c3d

package server

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/jdfalk/book-search/internal/search"
)

func TestNewCriteriaResponse(t *testing.T) {
	cr := search.Criteria{
		ISBN:        "9780441013593",
		StrictISBN:  true,
		Author:      "Frank Herbert",
		ExternalIDs: map[search.EngineID]string{"openlibrary": "OL1M"},
		BookIDs:     []int64{3, 4},
	}
	resp := newCriteriaResponse(cr)

	if resp.ISBN != cr.ISBN || resp.Author != cr.Author || !resp.StrictISBN {
		t.Errorf("unexpected criteria response: %+v", resp)
	}
	if resp.ExternalIDs["openlibrary"] != "OL1M" {
		t.Errorf("expected external id OL1M, got %v", resp.ExternalIDs)
	}
	if len(resp.BookIDs) != 2 {
		t.Errorf("expected 2 book ids, got %v", resp.BookIDs)
	}
}

func TestNewCriteriaResponseOmitsEmptyIDs(t *testing.T) {
	resp := newCriteriaResponse(search.Criteria{Title: "Dune"})
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if _, ok := raw["external_ids"]; ok {
		t.Error("expected external_ids to be omitted")
	}
	if raw["title"] != "Dune" {
		t.Errorf("expected title Dune, got %v", raw["title"])
	}
}

func TestNewResultResponse(t *testing.T) {
	r := &search.Result{
		SearchID:  7,
		Data:      search.BookData{"title": "Dune", "isbn": "9780441013593"},
		Errors:    map[search.EngineID]*search.SiteError{"isfdb": {Engine: "isfdb", Name: "ISFDB", Err: errors.New("boom")}},
		ErrorText: "ISFDB: boom",
	}
	resp := newResultResponse(r)

	if resp.SearchID != 7 || !resp.Matched || resp.Cancelled {
		t.Errorf("unexpected result response: %+v", resp)
	}
	if resp.Errors != "ISFDB: boom" {
		t.Errorf("expected error text, got %q", resp.Errors)
	}
	if len(resp.FailedEngines) != 1 || resp.FailedEngines[0] != "isfdb" {
		t.Errorf("expected failed engine isfdb, got %v", resp.FailedEngines)
	}
}

func TestNewResultResponseNil(t *testing.T) {
	resp := newResultResponse(nil)
	if resp.Matched || resp.SearchID != 0 {
		t.Errorf("expected zero response, got %+v", resp)
	}
}

func TestStatusResponseJSON(t *testing.T) {
	data, err := json.Marshal(StatusResponse{Status: "ok"})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if string(data) != `{"status":"ok"}` {
		t.Errorf("unexpected JSON: %s", data)
	}
}
