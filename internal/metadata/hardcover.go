// file: internal/metadata/hardcover.go
// version: 2.0.0
// guid: e7e02554-8931-49ba-9528-d3d51279da1d

package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/jdfalk/book-search/internal/matcher"
	"github.com/jdfalk/book-search/internal/search"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"
)

// KeyHardcoverSlug holds the Hardcover book slug.
const KeyHardcoverSlug = "hardcover_slug"

// HardcoverClient fetches metadata from the Hardcover.app GraphQL API.
// Requires a Bearer token for authentication.
type HardcoverClient struct {
	baseClient

	mu       sync.RWMutex
	apiToken string
}

// NewHardcoverClient creates a new Hardcover API client with the given token.
func NewHardcoverClient(apiToken string) *HardcoverClient {
	return NewHardcoverClientWithBaseURL(envOr("HARDCOVER_BASE_URL", "https://api.hardcover.app/v1/graphql"), apiToken)
}

// NewHardcoverClientWithBaseURL creates a client with a custom base URL (for testing).
func NewHardcoverClientWithBaseURL(baseURL, apiToken string) *HardcoverClient {
	c := &HardcoverClient{
		baseClient: newBaseClient(search.EngineConfig{
			ID:             "hardcover",
			Name:           "Hardcover",
			HostURL:        "https://hardcover.app",
			Locale:         language.English,
			ConnectTimeout: 10 * time.Second,
			ReadTimeout:    20 * time.Second,
			DomainKey:      KeyHardcoverSlug,
		}, baseURL),
		apiToken: apiToken,
	}
	// 60 requests per minute
	c.limiter = rate.NewLimiter(rate.Every(time.Second), 5)
	return c
}

// SetToken replaces the API token, typically after the user registered.
func (c *HardcoverClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiToken = token
}

func (c *HardcoverClient) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiToken
}

// IsAvailable reports whether an API token is configured.
func (c *HardcoverClient) IsAvailable() bool {
	return c.token() != ""
}

// PromptToRegister asks the user to create an account and token.
func (c *HardcoverClient) PromptToRegister(ctx context.Context, p search.Prompter, required bool, callerID string) (bool, search.RegistrationAction) {
	return search.ShowRegistration(ctx, c, p, required, callerID)
}

type hardcoverGraphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type hardcoverGraphQLResponse struct {
	Data   *hardcoverData   `json:"data"`
	Errors []hardcoverError `json:"errors"`
}

type hardcoverError struct {
	Message string `json:"message"`
}

type hardcoverData struct {
	SearchBooks *hardcoverSearchBooks `json:"search_books"`
	Books       []hardcoverBook       `json:"books"`
}

type hardcoverSearchBooks struct {
	Results *hardcoverResults `json:"results"`
}

type hardcoverResults struct {
	Hits []hardcoverHit `json:"hits"`
}

type hardcoverHit struct {
	Document hardcoverDocument `json:"document"`
}

type hardcoverDocument struct {
	Title       string          `json:"title"`
	AuthorNames []string        `json:"author_names"`
	Image       *hardcoverImage `json:"image"`
	Description string          `json:"description"`
	ReleaseYear int             `json:"release_year"`
	Slug        string          `json:"slug"`
	Publisher   string          `json:"publisher"`
	ISBNs       []string        `json:"isbns"`
	Rating      float64         `json:"rating"`
	Pages       int             `json:"pages"`
	SeriesNames []string        `json:"series_names"`
}

type hardcoverBook struct {
	Title         string          `json:"title"`
	Subtitle      string          `json:"subtitle"`
	Slug          string          `json:"slug"`
	Description   string          `json:"description"`
	ReleaseDate   string          `json:"release_date"`
	Pages         int             `json:"pages"`
	Rating        float64         `json:"rating"`
	Image         *hardcoverImage `json:"image"`
	Contributions []struct {
		Author struct {
			Name string `json:"name"`
		} `json:"author"`
	} `json:"contributions"`
	BookSeries []struct {
		Position float64 `json:"position"`
		Series   struct {
			Name string `json:"name"`
		} `json:"series"`
	} `json:"book_series"`
}

type hardcoverImage struct {
	URL string `json:"url"`
}

const hardcoverSearchQuery = `query Search($q: String!) { search_books: search(query: $q, query_type: "Book", per_page: 10) { results } }`

const hardcoverSlugQuery = `query BySlug($slug: String!) { books(where: {slug: {_eq: $slug}}, limit: 1) { title subtitle slug description release_date pages rating image { url } contributions { author { name } } book_series { position series { name } } } }`

// Search runs a text search and keeps the best hit.
func (c *HardcoverClient) Search(ctx context.Context, q search.TextQuery, covers search.Covers) (search.BookData, error) {
	if !c.IsAvailable() {
		log.Printf("[DEBUG] Hardcover: no API token configured, skipping")
		return nil, search.ErrNotAvailable
	}
	text := q.Title
	if q.Author != "" {
		text += " " + q.Author
	}
	if text == "" {
		text = q.ISBN
	}
	if text == "" {
		return search.NewBookData(), nil
	}
	var resp hardcoverGraphQLResponse
	if err := c.query(ctx, hardcoverSearchQuery, map[string]any{"q": text}, &resp); err != nil {
		return finish(nil, err)
	}
	if resp.Data == nil || resp.Data.SearchBooks == nil || resp.Data.SearchBooks.Results == nil {
		return search.NewBookData(), nil
	}
	hits := resp.Data.SearchBooks.Results.Hits
	cands := make([]matcher.Candidate, len(hits))
	for i, h := range hits {
		cands[i] = matcher.Candidate{Title: h.Document.Title, Authors: h.Document.AuthorNames, ISBN: first(h.Document.ISBNs)}
	}
	idx, ok := bestMatch(q, cands)
	if !ok {
		return search.NewBookData(), nil
	}
	return c.fromDocument(ctx, hits[idx].Document, covers), nil
}

// SearchByNativeID looks up a book by slug.
func (c *HardcoverClient) SearchByNativeID(ctx context.Context, slug string, covers search.Covers) (search.BookData, error) {
	if !c.IsAvailable() {
		return nil, search.ErrNotAvailable
	}
	var resp hardcoverGraphQLResponse
	if err := c.query(ctx, hardcoverSlugQuery, map[string]any{"slug": slug}, &resp); err != nil {
		return finish(nil, err)
	}
	if resp.Data == nil || len(resp.Data.Books) == 0 {
		return search.NewBookData(), nil
	}
	return c.fromBook(ctx, resp.Data.Books[0], covers), nil
}

func (c *HardcoverClient) query(ctx context.Context, query string, vars map[string]any, out *hardcoverGraphQLResponse) error {
	bodyBytes, err := json.Marshal(hardcoverGraphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("failed to marshal Hardcover request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create Hardcover request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token())

	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode Hardcover response: %w", err)
	}
	if len(out.Errors) > 0 {
		return fmt.Errorf("Hardcover GraphQL error: %s", out.Errors[0].Message)
	}
	return nil
}

func (c *HardcoverClient) fromDocument(ctx context.Context, doc hardcoverDocument, covers search.Covers) search.BookData {
	data := search.NewBookData()
	setString(data, search.KeyTitle, doc.Title)
	setList(data, search.KeyAuthorList, doc.AuthorNames...)
	setList(data, search.KeyPublisherList, doc.Publisher)
	setList(data, search.KeySeriesList, doc.SeriesNames...)
	setString(data, search.KeyDescription, doc.Description)
	setString(data, search.KeyISBN, first(doc.ISBNs))
	setString(data, KeyHardcoverSlug, doc.Slug)
	if doc.ReleaseYear > 0 {
		data.Set(search.KeyFirstPublication, fmt.Sprintf("%d", doc.ReleaseYear))
	}
	if doc.Pages > 0 {
		data.Set(search.KeyPages, doc.Pages)
	}
	if doc.Rating > 0 {
		data.Set(search.KeyRating, doc.Rating)
	}
	if doc.Image != nil {
		c.addCover(ctx, data, doc.Image.URL, doc.Slug, covers)
	}
	return data
}

func (c *HardcoverClient) fromBook(ctx context.Context, b hardcoverBook, covers search.Covers) search.BookData {
	data := search.NewBookData()
	title := b.Title
	if b.Subtitle != "" {
		title += ": " + b.Subtitle
	}
	setString(data, search.KeyTitle, title)
	authors := make([]string, 0, len(b.Contributions))
	for _, con := range b.Contributions {
		authors = append(authors, con.Author.Name)
	}
	setList(data, search.KeyAuthorList, authors...)
	series := make([]string, 0, len(b.BookSeries))
	for _, s := range b.BookSeries {
		num := ""
		if s.Position > 0 {
			num = fmt.Sprintf("%g", s.Position)
		}
		series = append(series, matcher.SeriesEntry(s.Series.Name, num))
	}
	setList(data, search.KeySeriesList, series...)
	setString(data, search.KeyDescription, b.Description)
	setString(data, search.KeyFirstPublication, b.ReleaseDate)
	setString(data, KeyHardcoverSlug, b.Slug)
	if b.Pages > 0 {
		data.Set(search.KeyPages, b.Pages)
	}
	if b.Rating > 0 {
		data.Set(search.KeyRating, b.Rating)
	}
	if b.Image != nil {
		c.addCover(ctx, data, b.Image.URL, b.Slug, covers)
	}
	return data
}
