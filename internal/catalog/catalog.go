// file: internal/catalog/catalog.go
// version: 1.1.0
// guid: 4d2e8f1a-7b3c-4a6d-9e05-c8b7a6f5e4d3

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/jdfalk/book-search/internal/isbn"
	"github.com/jdfalk/book-search/internal/search"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a book id is not in the catalog.
var ErrNotFound = errors.New("book not found")

// DefaultSearchLimit caps full-text results when no limit is given.
const DefaultSearchLimit = 100

type rowScanner interface {
	Scan(dest ...interface{}) error
}

const bookSelectColumns = `
	id, title, authors, series, publisher, isbn,
	date_published, language, data, created_at
`

// Book is one saved catalog entry. Data holds the full field bag the
// entry was created from.
type Book struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	Authors       []string        `json:"authors"`
	Series        []string        `json:"series,omitempty"`
	Publisher     string          `json:"publisher,omitempty"`
	ISBN          string          `json:"isbn,omitempty"`
	DatePublished string          `json:"date_published,omitempty"`
	Language      string          `json:"language,omitempty"`
	Data          search.BookData `json:"data,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// document is what gets indexed for full-text search.
type document struct {
	Title       string `json:"title"`
	Authors     string `json:"authors"`
	Series      string `json:"series"`
	Publisher   string `json:"publisher"`
	ISBN        string `json:"isbn"`
	Description string `json:"description"`
}

// Catalog is the local book table plus its full-text index.
type Catalog struct {
	db    *sql.DB
	index bleve.Index
}

const listSep = "\x1f"

// Open opens the sqlite catalog at dbPath and the bleve index at
// indexPath. An empty dbPath uses an in-memory database and an empty
// indexPath an in-memory index. A missing on-disk index is rebuilt from
// the table.
func Open(dbPath, indexPath string) (*Catalog, error) {
	dsn := dbPath
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	if dbPath == "" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping catalog database: %w", err)
	}

	c := &Catalog{db: db}
	if err := c.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	rebuild := false
	switch {
	case indexPath == "":
		c.index, err = bleve.NewMemOnly(bleve.NewIndexMapping())
		rebuild = true
	default:
		if _, statErr := os.Stat(indexPath); os.IsNotExist(statErr) {
			c.index, err = bleve.New(indexPath, bleve.NewIndexMapping())
			rebuild = true
		} else {
			c.index, err = bleve.Open(indexPath)
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open catalog index: %w", err)
	}

	if rebuild {
		if err := c.Reindex(context.Background()); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS books (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		authors TEXT,
		series TEXT,
		publisher TEXT,
		isbn TEXT,
		date_published TEXT,
		language TEXT,
		data TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_books_isbn ON books(isbn);
	CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Close closes the index and the database.
func (c *Catalog) Close() error {
	var errs []error
	if c.index != nil {
		errs = append(errs, c.index.Close())
	}
	if c.db != nil {
		errs = append(errs, c.db.Close())
	}
	return errors.Join(errs...)
}

// BookFromData builds a catalog entry from a search result bag.
func BookFromData(data search.BookData) Book {
	return Book{
		Title:         strings.TrimSpace(data.String(search.KeyTitle)),
		Authors:       data.List(search.KeyAuthorList),
		Series:        data.List(search.KeySeriesList),
		Publisher:     strings.Join(data.List(search.KeyPublisherList), "; "),
		ISBN:          canonicalISBN(data.String(search.KeyISBN)),
		DatePublished: data.String(search.KeyDatePublished),
		Language:      data.String(search.KeyLanguage),
		Data:          data.Clone(),
	}
}

// Add saves book and indexes it, returning the new id.
func (c *Catalog) Add(ctx context.Context, book Book) (int64, error) {
	if strings.TrimSpace(book.Title) == "" {
		return 0, fmt.Errorf("book title is required")
	}
	raw, err := json.Marshal(book.Data)
	if err != nil {
		return 0, fmt.Errorf("failed to encode book data: %w", err)
	}

	// the row is committed only once the index holds the book
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO books (title, authors, series, publisher, isbn, date_published, language, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		book.Title, strings.Join(book.Authors, listSep), strings.Join(book.Series, listSep),
		book.Publisher, book.ISBN, book.DatePublished, book.Language, string(raw),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	book.ID = id

	if err := c.indexBook(book); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		if derr := c.index.Delete(strconv.FormatInt(id, 10)); derr != nil {
			log.Printf("[WARN] catalog: failed to drop index entry %d: %v", id, derr)
		}
		return 0, fmt.Errorf("failed to commit book: %w", err)
	}
	log.Printf("[INFO] catalog: added book %d %q", id, book.Title)
	return id, nil
}

// AddData saves a search result bag.
func (c *Catalog) AddData(ctx context.Context, data search.BookData) (int64, error) {
	return c.Add(ctx, BookFromData(data))
}

// Get returns the book with id.
func (c *Catalog) Get(ctx context.Context, id int64) (*Book, error) {
	row := c.db.QueryRowContext(ctx, "SELECT "+bookSelectColumns+" FROM books WHERE id = ?", id)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return book, nil
}

// GetMany returns the books for ids in the order given, skipping ids that
// are not in the catalog.
func (c *Catalog) GetMany(ctx context.Context, ids []int64) ([]Book, error) {
	out := make([]Book, 0, len(ids))
	for _, id := range ids {
		book, err := c.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *book)
	}
	return out, nil
}

// FindByISBN returns the ids of books with the given ISBN. ISBN-10 and
// ISBN-13 forms of the same code match each other.
func (c *Catalog) FindByISBN(ctx context.Context, code string) ([]int64, error) {
	code = canonicalISBN(code)
	if code == "" {
		return nil, nil
	}

	rows, err := c.db.QueryContext(ctx, "SELECT id FROM books WHERE isbn = ? ORDER BY id", code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the number of books in the catalog.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM books").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// List returns up to limit books, newest first.
func (c *Catalog) List(ctx context.Context, limit int) ([]Book, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	rows, err := c.db.QueryContext(ctx, "SELECT "+bookSelectColumns+" FROM books ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *book)
	}
	return books, rows.Err()
}

// Delete removes a book from the table and the index.
func (c *Catalog) Delete(ctx context.Context, id int64) error {
	res, err := c.db.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return c.index.Delete(strconv.FormatInt(id, 10))
}

// Search runs a full-text query over the catalog and returns matching
// book ids, best first. The ids are what a search coordinator keeps as
// its book id list.
func (c *Catalog) Search(ctx context.Context, text string, limit int) ([]int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	q := bleve.NewMatchQuery(text)
	q.SetOperator(query.MatchQueryOperatorAnd)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}

	ids := make([]int64, 0, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			log.Printf("[WARN] catalog: ignoring index entry %q", hit.ID)
			continue
		}
		ids = append(ids, id)
	}
	log.Printf("[DEBUG] catalog: %q matched %d books", text, len(ids))
	return ids, nil
}

// Reindex rebuilds the full-text index from the table.
func (c *Catalog) Reindex(ctx context.Context) error {
	rows, err := c.db.QueryContext(ctx, "SELECT "+bookSelectColumns+" FROM books")
	if err != nil {
		return fmt.Errorf("failed to read books for reindex: %w", err)
	}
	defer rows.Close()

	batch := c.index.NewBatch()
	count := 0
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return err
		}
		if err := batch.Index(strconv.FormatInt(book.ID, 10), toDocument(*book)); err != nil {
			return err
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if err := c.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to write catalog index: %w", err)
	}
	if count > 0 {
		log.Printf("[INFO] catalog: reindexed %d books", count)
	}
	return nil
}

func (c *Catalog) indexBook(book Book) error {
	if err := c.index.Index(strconv.FormatInt(book.ID, 10), toDocument(book)); err != nil {
		return fmt.Errorf("failed to index book %d: %w", book.ID, err)
	}
	return nil
}

func toDocument(book Book) document {
	return document{
		Title:       book.Title,
		Authors:     strings.Join(book.Authors, " "),
		Series:      strings.Join(book.Series, " "),
		Publisher:   book.Publisher,
		ISBN:        book.ISBN,
		Description: book.Data.String(search.KeyDescription),
	}
}

func scanBook(scanner rowScanner) (*Book, error) {
	var (
		book                             Book
		authors, series, publisher, code sql.NullString
		datePublished, language, data    sql.NullString
	)
	if err := scanner.Scan(
		&book.ID, &book.Title, &authors, &series, &publisher, &code,
		&datePublished, &language, &data, &book.CreatedAt,
	); err != nil {
		return nil, err
	}
	book.Authors = splitList(authors.String)
	book.Series = splitList(series.String)
	book.Publisher = publisher.String
	book.ISBN = code.String
	book.DatePublished = datePublished.String
	book.Language = language.String
	if data.String != "" {
		if err := json.Unmarshal([]byte(data.String), &book.Data); err != nil {
			return nil, fmt.Errorf("failed to decode book %d data: %w", book.ID, err)
		}
	}
	return &book, nil
}

// canonicalISBN stores valid codes as ISBN-13 so both forms match.
func canonicalISBN(text string) string {
	text = strings.TrimSpace(text)
	code := isbn.New(text, false)
	if !code.IsValid(false) {
		return text
	}
	return code.AsText(isbn.ISBN13)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSep)
}
