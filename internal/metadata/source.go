// file: internal/metadata/source.go
// version: 2.0.0
// guid: a1b2c3d4-e5f6-7a8b-9c0d-e1f2a3b4c5d6

package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jdfalk/book-search/internal/matcher"
	"github.com/jdfalk/book-search/internal/search"
	"golang.org/x/time/rate"
)

// ErrNotFound means the site does not know the requested book. The
// coordinator treats it as an empty result, not a failure.
var ErrNotFound = errors.New("book not found")

const userAgent = "book-search/1.0 (+https://github.com/jdfalk/book-search)"

// baseClient holds what every site client shares: its engine config, an
// HTTP client and an optional request throttle.
type baseClient struct {
	cfg        search.EngineConfig
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	coverDir   string
}

func newBaseClient(cfg search.EngineConfig, baseURL string) baseClient {
	b := baseClient{
		cfg:        cfg,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}
	if cfg.ThrottleInterval > 0 {
		b.limiter = rate.NewLimiter(rate.Every(cfg.ThrottleInterval), 1)
	}
	return b
}

// Config returns the engine configuration.
func (b *baseClient) Config() *search.EngineConfig {
	return &b.cfg
}

// SetCoverDir sets where downloaded covers are stored. Defaults to the
// system temp dir.
func (b *baseClient) SetCoverDir(dir string) {
	b.coverDir = dir
}

// SetHTTPClient replaces the HTTP client (for testing).
func (b *baseClient) SetHTTPClient(c *http.Client) {
	b.httpClient = c
}

// do sends req after waiting for the throttle. A 404 maps to ErrNotFound
// and any other non-200 status to an error.
func (b *baseClient) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req = req.WithContext(ctx)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
	start := time.Now()
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", b.cfg.Name, err)
	}
	log.Printf("[DEBUG] %s: %s %s -> %d (%s)", b.cfg.ID, req.Method, req.URL.Redacted(), resp.StatusCode, time.Since(start).Round(time.Millisecond))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned status %d", b.cfg.Name, resp.StatusCode)
	}
	return resp, nil
}

func (b *baseClient) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", b.cfg.Name, err)
	}
	return b.do(ctx, req)
}

func (b *baseClient) getJSON(ctx context.Context, rawURL string, v any) error {
	resp, err := b.get(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", b.cfg.Name, err)
	}
	return nil
}

const maxBodySize = 8 << 20

// finish converts ErrNotFound into an empty bag so that "no such book" is
// not reported as a site failure.
func finish(data search.BookData, err error) (search.BookData, error) {
	if errors.Is(err, ErrNotFound) {
		return search.NewBookData(), nil
	}
	return data, err
}

// addCover downloads coverURL as the front cover when requested and
// records the file under the front cover list.
func (b *baseClient) addCover(ctx context.Context, data search.BookData, coverURL, name string, covers search.Covers) {
	if coverURL == "" {
		return
	}
	data.Set(search.KeyCoverURL, coverURL)
	if !covers[0] {
		return
	}
	dir := b.coverDir
	if dir == "" {
		dir = os.TempDir()
	}
	path, err := DownloadCover(ctx, b.httpClient, coverURL, dir, string(b.cfg.ID)+"-"+name)
	if err != nil {
		log.Printf("[WARN] %s: cover download failed for %s: %v", b.cfg.ID, coverURL, err)
		return
	}
	data.Set(search.KeyCoverFiles0, append(data.List(search.KeyCoverFiles0), path))
}

// envOr returns the environment variable or the fallback.
func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return strings.TrimRight(v, "/")
	}
	return fallback
}

// bestMatch picks the hit that best fits a text query, or reports false
// when none is trustworthy.
func bestMatch(q search.TextQuery, cands []matcher.Candidate) (int, bool) {
	idx, score, ok := matcher.Best(matcher.Query{Title: q.Title, Author: q.Author, ISBN: q.ISBN}, cands, matcher.DefaultMinScore)
	if ok {
		log.Printf("[DEBUG] best text hit %q scored %d", cands[idx].Title, score)
	}
	return idx, ok
}

// setList stores non-empty, trimmed values under key.
func setList(data search.BookData, key string, values ...string) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) > 0 {
		data.Set(key, out)
	}
}

// setString stores a trimmed value under key when non-empty.
func setString(data search.BookData, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		data.Set(key, value)
	}
}

// setTitle stores the title, moving a "Title (Series, #N)" marker into the
// series list.
func setTitle(data search.BookData, title string) {
	clean, series, number, ok := matcher.SplitSeries(title)
	if !ok || clean == "" {
		setString(data, search.KeyTitle, title)
		return
	}
	setString(data, search.KeyTitle, clean)
	setList(data, search.KeySeriesList, matcher.SeriesEntry(series, number))
}
