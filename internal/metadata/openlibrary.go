// file: internal/metadata/openlibrary.go
// version: 2.0.0
// guid: 1a2b3c4d-5e6f-7a8b-9c0d-1e2f3a4b5c6d

package metadata

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jdfalk/book-search/internal/matcher"
	"github.com/jdfalk/book-search/internal/search"
	"golang.org/x/text/language"
)

// KeyOpenLibraryID holds the Open Library edition id (OLID).
const KeyOpenLibraryID = "openlibrary_id"

// OpenLibraryClient searches the Open Library books API.
type OpenLibraryClient struct {
	baseClient
	coversURL string
}

// NewOpenLibraryClient creates a new Open Library API client
func NewOpenLibraryClient() *OpenLibraryClient {
	return NewOpenLibraryClientWithBaseURL(envOr("OPENLIBRARY_BASE_URL", "https://openlibrary.org"))
}

// NewOpenLibraryClientWithBaseURL creates a client with a custom base URL.
func NewOpenLibraryClientWithBaseURL(baseURL string) *OpenLibraryClient {
	return &OpenLibraryClient{
		baseClient: newBaseClient(search.EngineConfig{
			ID:                         "openlibrary",
			Name:                       "Open Library",
			HostURL:                    "https://openlibrary.org",
			Locale:                     language.English,
			ConnectTimeout:             10 * time.Second,
			ReadTimeout:                20 * time.Second,
			DomainKey:                  KeyOpenLibraryID,
			SupportsMultipleCoverSizes: true,
		}, baseURL),
		coversURL: "https://covers.openlibrary.org",
	}
}

// IsAvailable always returns true; the API is anonymous.
func (c *OpenLibraryClient) IsAvailable() bool { return true }

// CreateURL returns the edition page for an OLID.
func (c *OpenLibraryClient) CreateURL(olid string) string {
	return "https://openlibrary.org/books/" + url.PathEscape(olid)
}

// CoverURL returns the large cover image URL for an ISBN.
func (c *OpenLibraryClient) CoverURL(isbn string) string {
	return fmt.Sprintf("%s/b/isbn/%s-L.jpg?default=false", c.coversURL, url.PathEscape(isbn))
}

type olBook struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle"`
	PublishDate string   `json:"publish_date"`
	Pages       int      `json:"number_of_pages"`
	Authors     []olName `json:"authors"`
	Publishers  []olName `json:"publishers"`
	Identifiers struct {
		ISBN13      []string `json:"isbn_13"`
		ISBN10      []string `json:"isbn_10"`
		OpenLibrary []string `json:"openlibrary"`
	} `json:"identifiers"`
	Cover struct {
		Small  string `json:"small"`
		Medium string `json:"medium"`
		Large  string `json:"large"`
	} `json:"cover"`
	TOC []struct {
		Title string `json:"title"`
	} `json:"table_of_contents"`
	Notes any `json:"notes"`
}

type olName struct {
	Name string `json:"name"`
}

// SearchResult is one hit of the Open Library search endpoint.
type SearchResult struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	ISBN             []string `json:"isbn"`
	Publisher        []string `json:"publisher"`
	Language         []string `json:"language"`
	CoverI           int      `json:"cover_i"`
	EditionKey       []string `json:"edition_key"`
}

// SearchResponse represents the API response from Open Library search
type SearchResponse struct {
	NumFound int            `json:"numFound"`
	Start    int            `json:"start"`
	Docs     []SearchResult `json:"docs"`
}

// SearchByISBN looks up one edition by ISBN.
func (c *OpenLibraryClient) SearchByISBN(ctx context.Context, code string, covers search.Covers) (search.BookData, error) {
	return finish(c.bibkey(ctx, "ISBN:"+code, covers))
}

// SearchByExternalID looks up one edition by OLID.
func (c *OpenLibraryClient) SearchByExternalID(ctx context.Context, olid string, covers search.Covers) (search.BookData, error) {
	return finish(c.bibkey(ctx, "OLID:"+olid, covers))
}

// Search runs a title/author search and resolves the best hit's edition.
func (c *OpenLibraryClient) Search(ctx context.Context, q search.TextQuery, covers search.Covers) (search.BookData, error) {
	params := url.Values{}
	if q.Title != "" {
		params.Set("title", q.Title)
	}
	if q.Author != "" {
		params.Set("author", q.Author)
	}
	if q.Publisher != "" {
		params.Set("publisher", q.Publisher)
	}
	if q.ISBN != "" {
		params.Set("isbn", q.ISBN)
	}
	if len(params) == 0 {
		return search.NewBookData(), nil
	}
	params.Set("limit", "10")

	var resp SearchResponse
	if err := c.getJSON(ctx, c.baseURL+"/search.json?"+params.Encode(), &resp); err != nil {
		return finish(nil, err)
	}
	cands := make([]matcher.Candidate, len(resp.Docs))
	for i, doc := range resp.Docs {
		cands[i] = matcher.Candidate{Title: doc.Title, Authors: doc.AuthorName}
		if len(doc.ISBN) > 0 {
			cands[i].ISBN = doc.ISBN[0]
		}
	}
	idx, ok := bestMatch(q, cands)
	if !ok {
		return search.NewBookData(), nil
	}
	doc := resp.Docs[idx]
	if len(doc.EditionKey) > 0 {
		data, err := c.bibkey(ctx, "OLID:"+doc.EditionKey[0], covers)
		if err == nil && data.IsMatch() {
			return data, nil
		}
	}
	return c.fromSearchResult(ctx, doc, covers), nil
}

func (c *OpenLibraryClient) bibkey(ctx context.Context, key string, covers search.Covers) (search.BookData, error) {
	params := url.Values{"bibkeys": {key}, "jscmd": {"data"}, "format": {"json"}}
	var resp map[string]olBook
	if err := c.getJSON(ctx, c.baseURL+"/api/books?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	book, ok := resp[key]
	if !ok {
		return nil, ErrNotFound
	}
	return c.fromBook(ctx, book, covers), nil
}

func (c *OpenLibraryClient) fromBook(ctx context.Context, b olBook, covers search.Covers) search.BookData {
	data := search.NewBookData()
	title := b.Title
	if b.Subtitle != "" {
		title += ": " + b.Subtitle
	}
	setTitle(data, title)
	if isbn := first(b.Identifiers.ISBN13, b.Identifiers.ISBN10); isbn != "" {
		data.Set(search.KeyISBN, isbn)
	}
	authors := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		authors = append(authors, a.Name)
	}
	setList(data, search.KeyAuthorList, authors...)
	publishers := make([]string, 0, len(b.Publishers))
	for _, p := range b.Publishers {
		publishers = append(publishers, p.Name)
	}
	setList(data, search.KeyPublisherList, publishers...)
	setString(data, search.KeyDatePublished, b.PublishDate)
	if b.Pages > 0 {
		data.Set(search.KeyPages, b.Pages)
	}
	if len(b.TOC) > 0 {
		toc := make([]string, 0, len(b.TOC))
		for _, e := range b.TOC {
			toc = append(toc, e.Title)
		}
		setList(data, search.KeyTOCList, toc...)
	}
	switch n := b.Notes.(type) {
	case string:
		setString(data, search.KeyDescription, n)
	case map[string]any:
		if v, ok := n["value"].(string); ok {
			setString(data, search.KeyDescription, v)
		}
	}
	if len(b.Identifiers.OpenLibrary) > 0 {
		data.Set(KeyOpenLibraryID, b.Identifiers.OpenLibrary[0])
	}
	cover := b.Cover.Large
	if cover == "" {
		cover = b.Cover.Medium
	}
	c.addCover(ctx, data, cover, data.String(KeyOpenLibraryID), covers)
	return data
}

func (c *OpenLibraryClient) fromSearchResult(ctx context.Context, doc SearchResult, covers search.Covers) search.BookData {
	data := search.NewBookData()
	setTitle(data, doc.Title)
	setList(data, search.KeyAuthorList, doc.AuthorName...)
	if len(doc.Publisher) > 0 {
		setList(data, search.KeyPublisherList, doc.Publisher[0])
	}
	if len(doc.ISBN) > 0 {
		data.Set(search.KeyISBN, doc.ISBN[0])
	}
	if len(doc.Language) > 0 {
		data.Set(search.KeyLanguage, doc.Language[0])
	}
	if doc.FirstPublishYear > 0 {
		data.Set(search.KeyFirstPublication, fmt.Sprintf("%d", doc.FirstPublishYear))
	}
	if len(doc.EditionKey) > 0 {
		data.Set(KeyOpenLibraryID, doc.EditionKey[0])
	}
	if doc.CoverI > 0 {
		coverURL := fmt.Sprintf("%s/b/id/%d-L.jpg", c.coversURL, doc.CoverI)
		c.addCover(ctx, data, coverURL, strings.TrimPrefix(doc.Key, "/works/"), covers)
	}
	return data
}

func first(lists ...[]string) string {
	for _, l := range lists {
		for _, v := range l {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}
