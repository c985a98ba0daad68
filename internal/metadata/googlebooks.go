// file: internal/metadata/googlebooks.go
// version: 2.0.0
// guid: b2c3d4e5-f6a7-8b9c-0d1e-f2a3b4c5d6e7

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

// KeyGoogleBooksID holds the Google Books volume id.
const KeyGoogleBooksID = "googlebooks_id"

// GoogleBooksClient fetches metadata from the Google Books Volume API.
// No API key is required for basic searches (free tier, ~1000 req/day).
type GoogleBooksClient struct {
	baseClient
	apiKey string
}

// NewGoogleBooksClient creates a new Google Books API client.
func NewGoogleBooksClient() *GoogleBooksClient {
	c := NewGoogleBooksClientWithBaseURL(envOr("GOOGLE_BOOKS_BASE_URL", "https://www.googleapis.com/books/v1"))
	c.apiKey = envOr("GOOGLE_BOOKS_API_KEY", "")
	return c
}

// NewGoogleBooksClientWithBaseURL creates a client with a custom base URL (for testing).
func NewGoogleBooksClientWithBaseURL(baseURL string) *GoogleBooksClient {
	return &GoogleBooksClient{
		baseClient: newBaseClient(search.EngineConfig{
			ID:             "googlebooks",
			Name:           "Google Books",
			HostURL:        "https://books.google.com",
			Locale:         language.English,
			ConnectTimeout: 10 * time.Second,
			ReadTimeout:    20 * time.Second,
			DomainKey:      KeyGoogleBooksID,
		}, baseURL),
	}
}

// IsAvailable always returns true; the key is optional.
func (c *GoogleBooksClient) IsAvailable() bool { return true }

type googleBooksResponse struct {
	TotalItems int              `json:"totalItems"`
	Items      []googleBooksVol `json:"items"`
}

type googleBooksVol struct {
	ID         string                `json:"id"`
	VolumeInfo googleBooksVolumeInfo `json:"volumeInfo"`
	SaleInfo   struct {
		ListPrice *struct {
			Amount       float64 `json:"amount"`
			CurrencyCode string  `json:"currencyCode"`
		} `json:"listPrice"`
		IsEbook bool `json:"isEbook"`
	} `json:"saleInfo"`
}

type googleBooksVolumeInfo struct {
	Title               string                  `json:"title"`
	Subtitle            string                  `json:"subtitle"`
	Authors             []string                `json:"authors"`
	Publisher           string                  `json:"publisher"`
	PublishedDate       string                  `json:"publishedDate"`
	Description         string                  `json:"description"`
	IndustryIdentifiers []googleBooksIndustryID `json:"industryIdentifiers"`
	ImageLinks          *googleBooksImageLinks  `json:"imageLinks"`
	Language            string                  `json:"language"`
	PageCount           int                     `json:"pageCount"`
	PrintType           string                  `json:"printType"`
	AverageRating       float64                 `json:"averageRating"`
}

type googleBooksIndustryID struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

type googleBooksImageLinks struct {
	Thumbnail      string `json:"thumbnail"`
	SmallThumbnail string `json:"smallThumbnail"`
	Large          string `json:"large"`
}

// SearchByISBN searches volumes by ISBN and takes the first hit.
func (c *GoogleBooksClient) SearchByISBN(ctx context.Context, code string, covers search.Covers) (search.BookData, error) {
	resp, err := c.volumes(ctx, "isbn:"+code)
	if err != nil {
		return finish(nil, err)
	}
	if len(resp.Items) == 0 {
		return search.NewBookData(), nil
	}
	return c.toBookData(ctx, resp.Items[0], covers), nil
}

// SearchByNativeID fetches one volume by its id.
func (c *GoogleBooksClient) SearchByNativeID(ctx context.Context, id string, covers search.Covers) (search.BookData, error) {
	var vol googleBooksVol
	if err := c.getJSON(ctx, c.withKey(fmt.Sprintf("%s/volumes/%s", c.baseURL, url.PathEscape(id))), &vol); err != nil {
		return finish(nil, err)
	}
	if vol.ID == "" {
		vol.ID = id
	}
	return c.toBookData(ctx, vol, covers), nil
}

// Search runs an intitle/inauthor query and keeps the best hit.
func (c *GoogleBooksClient) Search(ctx context.Context, q search.TextQuery, covers search.Covers) (search.BookData, error) {
	var terms []string
	if q.Title != "" {
		terms = append(terms, "intitle:"+q.Title)
	}
	if q.Author != "" {
		terms = append(terms, "inauthor:"+q.Author)
	}
	if q.Publisher != "" {
		terms = append(terms, "inpublisher:"+q.Publisher)
	}
	if q.ISBN != "" {
		terms = append(terms, "isbn:"+q.ISBN)
	}
	if len(terms) == 0 {
		return search.NewBookData(), nil
	}
	resp, err := c.volumes(ctx, strings.Join(terms, "+"))
	if err != nil {
		return finish(nil, err)
	}
	cands := make([]matcher.Candidate, len(resp.Items))
	for i, item := range resp.Items {
		cands[i] = matcher.Candidate{
			Title:   item.VolumeInfo.Title,
			Authors: item.VolumeInfo.Authors,
			ISBN:    volumeISBN(item.VolumeInfo),
		}
	}
	idx, ok := bestMatch(q, cands)
	if !ok {
		return search.NewBookData(), nil
	}
	return c.toBookData(ctx, resp.Items[idx], covers), nil
}

func (c *GoogleBooksClient) volumes(ctx context.Context, q string) (*googleBooksResponse, error) {
	searchURL := fmt.Sprintf("%s/volumes?q=%s&maxResults=10", c.baseURL, url.QueryEscape(q))
	var resp googleBooksResponse
	if err := c.getJSON(ctx, c.withKey(searchURL), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *GoogleBooksClient) withKey(u string) string {
	if c.apiKey == "" {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "key=" + url.QueryEscape(c.apiKey)
}

func volumeISBN(vi googleBooksVolumeInfo) string {
	var isbn string
	for _, id := range vi.IndustryIdentifiers {
		if id.Type == "ISBN_13" {
			return id.Identifier
		} else if id.Type == "ISBN_10" && isbn == "" {
			isbn = id.Identifier
		}
	}
	return isbn
}

func (c *GoogleBooksClient) toBookData(ctx context.Context, vol googleBooksVol, covers search.Covers) search.BookData {
	vi := vol.VolumeInfo
	data := search.NewBookData()
	title := vi.Title
	if vi.Subtitle != "" {
		title += ": " + vi.Subtitle
	}
	setTitle(data, title)
	setString(data, search.KeyISBN, volumeISBN(vi))
	setList(data, search.KeyAuthorList, vi.Authors...)
	setList(data, search.KeyPublisherList, vi.Publisher)
	setString(data, search.KeyDatePublished, vi.PublishedDate)
	setString(data, search.KeyDescription, vi.Description)
	setString(data, search.KeyLanguage, vi.Language)
	if vi.PageCount > 0 {
		data.Set(search.KeyPages, vi.PageCount)
	}
	if vi.AverageRating > 0 {
		data.Set(search.KeyRating, vi.AverageRating)
	}
	if vol.SaleInfo.IsEbook {
		data.Set(search.KeyFormat, "ebook")
	}
	if lp := vol.SaleInfo.ListPrice; lp != nil && lp.Amount > 0 {
		data.Set(search.KeyPriceListed, lp.Amount)
		setString(data, search.KeyPriceCurrency, lp.CurrencyCode)
	}
	setString(data, KeyGoogleBooksID, vol.ID)
	if vi.ImageLinks != nil {
		cover := vi.ImageLinks.Large
		if cover == "" {
			cover = vi.ImageLinks.Thumbnail
		}
		// thumbnails are served over http by default
		cover = strings.Replace(cover, "http://", "https://", 1)
		c.addCover(ctx, data, cover, vol.ID, covers)
	}
	return data
}
