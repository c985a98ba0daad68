// file: internal/search/task.go
// version: 1.0.0
// guid: a3e97c15-4d2f-4b80-91c6-5f0d8e2b7a39

package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jdfalk/book-search/internal/isbn"
)

// dispatchMode is the query shape a site task runs.
type dispatchMode int

const (
	modeNone dispatchMode = iota
	modeExternalID
	modeNativeID
	modeISBN
	modeBarcode
	modeText
)

func (m dispatchMode) String() string {
	switch m {
	case modeExternalID:
		return "external_id"
	case modeNativeID:
		return "native_id"
	case modeISBN:
		return "isbn"
	case modeBarcode:
		return "barcode"
	case modeText:
		return "text"
	default:
		return "none"
	}
}

// request is the immutable input of one search invocation, shared by its
// site tasks.
type request struct {
	externalIDs map[EngineID]string
	// nativeID and nativeEngine are only set by SearchByNativeID.
	nativeID     string
	nativeEngine EngineID
	code         isbn.ISBN
	strict       bool
	text         TextQuery
	covers       Covers
}

func (r request) isbnValid() bool {
	return r.code.IsValid(true)
}

func (r request) barcodeValid() bool {
	return !r.strict && r.code.IsValid(false)
}

func (r request) hasText() bool {
	return strings.TrimSpace(r.text.Author) != "" ||
		strings.TrimSpace(r.text.Title) != "" ||
		strings.TrimSpace(r.text.ISBN) != ""
}

// pickMode selects the query shape for e: external id, then ISBN, then
// barcode, then free text.
func pickMode(e Engine, r request) dispatchMode {
	if r.nativeEngine != "" {
		if e.Config().ID == r.nativeEngine && Supports(e, CapNativeID) {
			return modeNativeID
		}
		return modeNone
	}
	if id := r.externalIDs[e.Config().ID]; id != "" && Supports(e, CapExternalID) {
		return modeExternalID
	}
	if r.isbnValid() && Supports(e, CapISBN) {
		return modeISBN
	}
	if r.barcodeValid() && Supports(e, CapBarcode) {
		return modeBarcode
	}
	if r.hasText() && Supports(e, CapText) {
		return modeText
	}
	return modeNone
}

// queryFor returns the identifier sent to e for mode, used for logs and
// cache keys.
func queryFor(e Engine, mode dispatchMode, r request) string {
	cfg := e.Config()
	switch mode {
	case modeExternalID:
		return r.externalIDs[cfg.ID]
	case modeNativeID:
		return r.nativeID
	case modeISBN:
		if cfg.PrefersISBN10 && r.code.IsISBN10Compat() {
			return r.code.AsText(isbn.ISBN10)
		}
		return r.code.String()
	case modeBarcode:
		return r.code.String()
	case modeText:
		return fmt.Sprintf("isbn=%s|author=%s|title=%s|publisher=%s",
			r.text.ISBN, r.text.Author, r.text.Title, r.text.Publisher)
	default:
		return ""
	}
}

// siteTask is one running fetch against one site.
type siteTask struct {
	engine  Engine
	mode    dispatchMode
	query   string
	cancel  context.CancelFunc
	started time.Time
}

// fetch runs the engine call for the task's mode.
func fetch(ctx context.Context, e Engine, mode dispatchMode, query string, r request) (BookData, error) {
	switch mode {
	case modeExternalID:
		return e.(ByExternalID).SearchByExternalID(ctx, query, r.covers)
	case modeNativeID:
		return e.(ByNativeID).SearchByNativeID(ctx, query, r.covers)
	case modeISBN:
		return e.(ByISBN).SearchByISBN(ctx, query, r.covers)
	case modeBarcode:
		return e.(ByBarcode).SearchByBarcode(ctx, query, r.covers)
	case modeText:
		return e.(ByText).Search(ctx, r.text, r.covers)
	default:
		return nil, ErrUnsupported
	}
}

func cacheKey(e Engine, mode dispatchMode, query string) string {
	return string(e.Config().ID) + "|" + mode.String() + "|" + query
}
