// file: internal/metadata/audnexus.go
// version: 3.0.0
// guid: c3d4e5f6-a7b8-9c0d-1e2f-a3b4c5d6e7f8

package metadata

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jdfalk/book-search/internal/matcher"
	"github.com/jdfalk/book-search/internal/search"
	"golang.org/x/text/language"
)

const (
	// KeyASIN holds the Audible ASIN.
	KeyASIN = "asin"
	// KeyNarratorList holds audiobook narrators.
	KeyNarratorList = "narrator_list"
)

// AudnexusClient fetches audiobook metadata from the Audnexus community API,
// which provides Audible-sourced data including narrator information.
// The API requires an ASIN for book lookups; there is no title search.
type AudnexusClient struct {
	baseClient
	region string
}

// NewAudnexusClient creates a new Audnexus API client.
func NewAudnexusClient() *AudnexusClient {
	c := NewAudnexusClientWithBaseURL(envOr("AUDNEXUS_BASE_URL", "https://api.audnex.us"))
	c.region = envOr("AUDNEXUS_REGION", "us")
	return c
}

// NewAudnexusClientWithBaseURL creates a client with a custom base URL (for testing).
func NewAudnexusClientWithBaseURL(baseURL string) *AudnexusClient {
	return &AudnexusClient{
		baseClient: newBaseClient(search.EngineConfig{
			ID:             "audnexus",
			Name:           "Audnexus (Audible)",
			HostURL:        "https://www.audible.com",
			Locale:         language.English,
			ConnectTimeout: 10 * time.Second,
			ReadTimeout:    20 * time.Second,
			DomainKey:      KeyASIN,
		}, baseURL),
		region: "us",
	}
}

// IsAvailable always returns true.
func (c *AudnexusClient) IsAvailable() bool { return true }

// CreateURL returns the Audible product page for an ASIN.
func (c *AudnexusClient) CreateURL(asin string) string {
	return "https://www.audible.com/pd/" + url.PathEscape(asin)
}

type audnexusPerson struct {
	ASIN string `json:"asin"`
	Name string `json:"name"`
}

type audnexusSeries struct {
	ASIN     string `json:"asin"`
	Name     string `json:"name"`
	Position string `json:"position"`
}

type audnexusBook struct {
	ASIN            string           `json:"asin"`
	Title           string           `json:"title"`
	Subtitle        string           `json:"subtitle"`
	Authors         []audnexusPerson `json:"authors"`
	Narrators       []audnexusPerson `json:"narrators"`
	PublisherName   string           `json:"publisherName"`
	ReleaseDate     string           `json:"releaseDate"`
	Language        string           `json:"language"`
	Image           string           `json:"image"`
	Description     string           `json:"description"`
	Summary         string           `json:"summary"`
	ISBN            string           `json:"isbn"`
	Copyright       int              `json:"copyright"`
	Runtime         int              `json:"runtimeLengthMin"`
	Rating          string           `json:"rating"`
	SeriesPrimary   *audnexusSeries  `json:"seriesPrimary"`
	SeriesSecondary *audnexusSeries  `json:"seriesSecondary"`
}

// SearchByExternalID fetches a book by its Audible ASIN.
func (c *AudnexusClient) SearchByExternalID(ctx context.Context, asin string, covers search.Covers) (search.BookData, error) {
	return c.lookup(ctx, asin, covers)
}

// SearchByNativeID is the same ASIN lookup; Audnexus has one id space.
func (c *AudnexusClient) SearchByNativeID(ctx context.Context, asin string, covers search.Covers) (search.BookData, error) {
	return c.lookup(ctx, asin, covers)
}

func (c *AudnexusClient) lookup(ctx context.Context, asin string, covers search.Covers) (search.BookData, error) {
	bookURL := fmt.Sprintf("%s/books/%s?region=%s", c.baseURL, url.PathEscape(asin), url.QueryEscape(c.region))
	var book audnexusBook
	if err := c.getJSON(ctx, bookURL, &book); err != nil {
		return finish(nil, err)
	}
	if book.ASIN == "" {
		book.ASIN = asin
	}
	return c.toBookData(ctx, &book, covers), nil
}

func (c *AudnexusClient) toBookData(ctx context.Context, book *audnexusBook, covers search.Covers) search.BookData {
	data := search.NewBookData()
	title := book.Title
	if book.Subtitle != "" {
		title += ": " + book.Subtitle
	}
	setString(data, search.KeyTitle, title)
	setString(data, search.KeyISBN, book.ISBN)
	setString(data, search.KeyLanguage, book.Language)
	setString(data, search.KeyDatePublished, book.ReleaseDate)
	setList(data, search.KeyPublisherList, book.PublisherName)
	data.Set(search.KeyFormat, "Audiobook")
	data.Set(KeyASIN, book.ASIN)

	// summary carries HTML markup, description is plain
	if book.Summary != "" {
		setString(data, search.KeyDescription, htmlText(book.Summary))
	} else {
		setString(data, search.KeyDescription, book.Description)
	}

	authors := make([]string, 0, len(book.Authors))
	for _, a := range book.Authors {
		authors = append(authors, a.Name)
	}
	setList(data, search.KeyAuthorList, authors...)
	narrators := make([]string, 0, len(book.Narrators))
	for _, n := range book.Narrators {
		narrators = append(narrators, n.Name)
	}
	setList(data, KeyNarratorList, narrators...)

	var series []string
	for _, s := range []*audnexusSeries{book.SeriesPrimary, book.SeriesSecondary} {
		if s != nil {
			series = append(series, matcher.SeriesEntry(s.Name, s.Position))
		}
	}
	setList(data, search.KeySeriesList, series...)

	if book.Copyright > 0 {
		data.Set(search.KeyFirstPublication, fmt.Sprintf("%d", book.Copyright))
	}
	if book.Rating != "" {
		data.Set(search.KeyRating, book.Rating)
	}
	c.addCover(ctx, data, book.Image, book.ASIN, covers)
	return data
}
