// file: internal/search/errors.go
// version: 1.0.0
// guid: 8b4a6f1d-2e3c-4a5b-9c6d-7e8f9a0b1c2d

package search

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
)

var (
	ErrSearchActive  = errors.New("a search is already running")
	ErrNoNetwork     = errors.New("no network connection")
	ErrEmptyCriteria = errors.New("no search criteria")
	ErrEmptyID       = errors.New("empty identifier")
	ErrUnsupported   = errors.New("engine does not support this search")
	ErrNotAvailable  = errors.New("engine requires registration")
	ErrNothingToRun  = errors.New("no enabled site can handle the criteria")
	ErrUnknownEngine = errors.New("unknown engine")
	ErrClosed        = errors.New("coordinator closed")
)

// networkFailureMessage replaces the text of transport level errors.
const networkFailureMessage = "search failed: network error"

// SiteError is a failure of one site, kept for the error summary.
type SiteError struct {
	Engine EngineID
	Name   string
	Err    error
}

func (e *SiteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *SiteError) Unwrap() error {
	return e.Err
}

// summarizeErrors builds the user-facing error text, one line per site.
func summarizeErrors(errs map[EngineID]*SiteError) string {
	if len(errs) == 0 {
		return ""
	}
	ids := make([]string, 0, len(errs))
	for id := range errs {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		se := errs[EngineID(id)]
		lines = append(lines, se.Name+": "+userMessage(se.Err))
	}
	return strings.Join(lines, "\n")
}

func userMessage(err error) string {
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return networkFailureMessage
	}
	return err.Error()
}
