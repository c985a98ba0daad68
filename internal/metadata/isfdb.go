// file: internal/metadata/isfdb.go
// version: 1.0.0
// guid: 2e8c4f6a-9b1d-4d3e-8a7f-5c6b0d1e2f34

package metadata

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jdfalk/book-search/internal/matcher"
	"github.com/jdfalk/book-search/internal/search"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/language"
)

// KeyISFDBID holds the ISFDB publication record number.
const KeyISFDBID = "isfdb_id"

// ISFDBClient scrapes the Internet Speculative Fiction Database. The
// site asks robots to stay at one request per second.
type ISFDBClient struct {
	baseClient
}

// NewISFDBClient creates a new ISFDB client.
func NewISFDBClient() *ISFDBClient {
	return NewISFDBClientWithBaseURL(envOr("ISFDB_BASE_URL", "https://www.isfdb.org/cgi-bin"))
}

// NewISFDBClientWithBaseURL creates a client with a custom base URL (for testing).
func NewISFDBClientWithBaseURL(baseURL string) *ISFDBClient {
	return &ISFDBClient{
		baseClient: newBaseClient(search.EngineConfig{
			ID:               "isfdb",
			Name:             "ISFDB",
			HostURL:          "https://www.isfdb.org",
			Locale:           language.English,
			ConnectTimeout:   10 * time.Second,
			ReadTimeout:      30 * time.Second,
			ThrottleInterval: time.Second,
			DomainKey:        KeyISFDBID,
		}, baseURL),
	}
}

// IsAvailable always returns true.
func (c *ISFDBClient) IsAvailable() bool { return true }

// CreateURL returns the publication page for a record number.
func (c *ISFDBClient) CreateURL(id string) string {
	return "https://www.isfdb.org/cgi-bin/pl.cgi?" + url.QueryEscape(id)
}

// SearchByISBN resolves an ISBN to its first publication record.
func (c *ISFDBClient) SearchByISBN(ctx context.Context, code string, covers search.Covers) (search.BookData, error) {
	page, final, err := c.fetch(ctx, fmt.Sprintf("%s/se.cgi?arg=%s&type=ISBN", c.baseURL, url.QueryEscape(code)))
	if err != nil {
		return finish(nil, err)
	}
	// a single hit redirects straight to the publication
	if strings.Contains(final, "pl.cgi") {
		return c.parsePublication(ctx, page, recordID(final), covers), nil
	}
	links := links(page, "pl.cgi?")
	if len(links) == 0 {
		return search.NewBookData(), nil
	}
	return c.SearchByExternalID(ctx, recordID(links[0].href), covers)
}

// SearchByExternalID loads one publication record.
func (c *ISFDBClient) SearchByExternalID(ctx context.Context, id string, covers search.Covers) (search.BookData, error) {
	page, _, err := c.fetch(ctx, fmt.Sprintf("%s/pl.cgi?%s", c.baseURL, url.QueryEscape(id)))
	if err != nil {
		return finish(nil, err)
	}
	return c.parsePublication(ctx, page, id, covers), nil
}

// Search looks a title up, picks the closest hit and loads its first
// publication. ISFDB only supports title searches here.
func (c *ISFDBClient) Search(ctx context.Context, q search.TextQuery, covers search.Covers) (search.BookData, error) {
	if q.Title == "" {
		return search.NewBookData(), nil
	}
	page, final, err := c.fetch(ctx, fmt.Sprintf("%s/se.cgi?arg=%s&type=Fiction+Titles", c.baseURL, url.QueryEscape(q.Title)))
	if err != nil {
		return finish(nil, err)
	}
	titlePage := page
	if !strings.Contains(final, "title.cgi") {
		hits := links(page, "title.cgi?")
		cands := make([]matcher.Candidate, len(hits))
		for i, h := range hits {
			cands[i] = matcher.Candidate{Title: h.text}
		}
		idx, ok := bestMatch(search.TextQuery{Title: q.Title}, cands)
		if !ok {
			return search.NewBookData(), nil
		}
		if titlePage, _, err = c.fetch(ctx, c.absolute(hits[idx].href)); err != nil {
			return finish(nil, err)
		}
	}
	pubs := links(titlePage, "pl.cgi?")
	if len(pubs) == 0 {
		return search.NewBookData(), nil
	}
	return c.SearchByExternalID(ctx, recordID(pubs[0].href), covers)
}

// fetch returns the parsed page and the final URL after redirects.
func (c *ISFDBClient) fetch(ctx context.Context, rawURL string) (*html.Node, string, error) {
	resp, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	// pages are served as ISO-8859-1
	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode ISFDB page: %w", err)
	}
	doc, err := html.Parse(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse ISFDB page: %w", err)
	}
	return doc, resp.Request.URL.String(), nil
}

func (c *ISFDBClient) absolute(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		// links are rewritten onto the configured base URL
		if i := strings.LastIndex(href, "/"); i >= 0 {
			return c.baseURL + href[i:]
		}
	}
	return c.baseURL + "/" + strings.TrimLeft(href, "/")
}

type link struct {
	href string
	text string
}

func links(doc *html.Node, contains string) []link {
	var out []link
	for _, a := range findAll(doc, isElement(atom.A)) {
		if href := attr(a, "href"); strings.Contains(href, contains) {
			out = append(out, link{href: href, text: textContent(a)})
		}
	}
	return out
}

// recordID extracts the record number from ".../pl.cgi?12345".
func recordID(href string) string {
	_, id, _ := strings.Cut(href, "?")
	id, _, _ = strings.Cut(id, "+")
	return id
}

var (
	isbnInBrackets = regexp.MustCompile(`\[([0-9Xx-]+)\]`)
	zeroDatePart   = regexp.MustCompile(`(-00)+$`)
)

var isfdbFormats = map[string]string{
	"hc":                     "Hardcover",
	"pb":                     "Paperback",
	"tp":                     "Trade Paperback",
	"ebook":                  "eBook",
	"audio cd":               "Audiobook",
	"digital audio download": "Audiobook",
}

func (c *ISFDBClient) parsePublication(ctx context.Context, doc *html.Node, id string, covers search.Covers) search.BookData {
	data := search.NewBookData()
	boxes := findAll(doc, func(n *html.Node) bool { return n.DataAtom == atom.Div && hasClass(n, "ContentBox") })
	if len(boxes) == 0 {
		return data
	}
	for _, li := range findAll(boxes[0], isElement(atom.Li)) {
		label, value, anchors := labelled(li)
		switch strings.ToLower(label) {
		case "publication":
			setString(data, search.KeyTitle, value)
		case "author", "authors", "editor", "editors":
			setList(data, search.KeyAuthorList, anchors...)
		case "date":
			if d := zeroDatePart.ReplaceAllString(value, ""); d != "0000" && d != "" {
				data.Set(search.KeyDatePublished, d)
			}
		case "isbn":
			isbn := value
			if m := isbnInBrackets.FindStringSubmatch(value); m != nil {
				isbn = m[1]
			} else if f := strings.Fields(value); len(f) > 0 {
				isbn = f[0]
			}
			setString(data, search.KeyISBN, strings.ReplaceAll(isbn, "-", ""))
		case "publisher":
			setList(data, search.KeyPublisherList, anchors...)
		case "pub. series":
			setList(data, search.KeySeriesList, anchors...)
		case "pages":
			setString(data, search.KeyPages, value)
		case "price":
			setString(data, search.KeyPriceListed, value)
		case "format":
			// the tooltip appends "?" and the long name
			f, _, _ := strings.Cut(value, "?")
			f = strings.TrimSpace(f)
			if mapped, ok := isfdbFormats[strings.ToLower(f)]; ok {
				f = mapped
			}
			setString(data, search.KeyFormat, f)
		case "notes":
			setString(data, search.KeyDescription, value)
		}
	}
	if data.IsEmpty() {
		return data
	}
	data.Set(KeyISFDBID, id)
	data.Set(search.KeyLanguage, "eng")

	if len(boxes) > 1 {
		var toc []string
		for _, l := range links(boxes[1], "title.cgi?") {
			toc = append(toc, l.text)
		}
		setList(data, search.KeyTOCList, toc...)
	}
	for _, img := range findAll(boxes[0], isElement(atom.Img)) {
		src := attr(img, "src")
		lower := strings.ToLower(src)
		if strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") || strings.HasSuffix(lower, ".png") || strings.HasSuffix(lower, ".gif") {
			c.addCover(ctx, data, src, id, covers)
			break
		}
	}
	return data
}

// labelled splits an "<li><b>Label:</b> value" line. anchors holds the
// text of every link in the value.
func labelled(li *html.Node) (label, value string, anchors []string) {
	var sb strings.Builder
	for n := li.FirstChild; n != nil; n = n.NextSibling {
		if label == "" && n.DataAtom == atom.B {
			label = strings.TrimSuffix(strings.TrimSpace(textContent(n)), ":")
			continue
		}
		// nested lists belong to their own li
		if n.DataAtom == atom.Ul {
			continue
		}
		writeText(&sb, n)
		for _, a := range findAll(n, isElement(atom.A)) {
			anchors = append(anchors, textContent(a))
		}
	}
	value = strings.Join(strings.Fields(sb.String()), " ")
	if len(anchors) == 0 && value != "" {
		anchors = []string{value}
	}
	return label, value, anchors
}
