// file: internal/catalog/catalog_test.go
// version: 1.1.0
// guid: 8e1f2a3b-4c5d-4e6f-9a0b-1c2d3e4f5a6b

package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jdfalk/book-search/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open("", "")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func duneData() search.BookData {
	return search.BookData{
		search.KeyTitle:         "Dune",
		search.KeyAuthorList:    []string{"Frank Herbert"},
		search.KeySeriesList:    []string{"Dune #1"},
		search.KeyPublisherList: []string{"Ace"},
		search.KeyISBN:          "0-441-01359-7",
		search.KeyDescription:   "A desert planet and its spice.",
	}
}

func TestAddAndGet(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()

	id, err := c.AddData(ctx, duneData())
	require.NoError(t, err)
	assert.NotZero(t, id)

	book, err := c.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, []string{"Frank Herbert"}, book.Authors)
	assert.Equal(t, []string{"Dune #1"}, book.Series)
	assert.Equal(t, "Ace", book.Publisher)
	assert.Equal(t, "9780441013593", book.ISBN)
	assert.Equal(t, []string{"Frank Herbert"}, book.Data.List(search.KeyAuthorList))
	assert.False(t, book.CreatedAt.IsZero())
}

func TestAddRequiresTitle(t *testing.T) {
	c := openMemory(t)
	_, err := c.Add(context.Background(), Book{Authors: []string{"Nobody"}})
	assert.Error(t, err)
}

func TestAddRollsBackWhenIndexingFails(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()
	require.NoError(t, c.index.Close())

	_, err := c.AddData(ctx, duneData())
	require.Error(t, err)

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "row must not outlive a failed index")
}

func TestGetMissing(t *testing.T) {
	c := openMemory(t)
	_, err := c.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchReturnsBookIDs(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()

	dune, err := c.AddData(ctx, duneData())
	require.NoError(t, err)
	_, err = c.Add(ctx, Book{Title: "Neuromancer", Authors: []string{"William Gibson"}})
	require.NoError(t, err)
	messiah, err := c.Add(ctx, Book{Title: "Dune Messiah", Authors: []string{"Frank Herbert"}})
	require.NoError(t, err)

	ids, err := c.Search(ctx, "herbert", 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{dune, messiah}, ids)

	ids, err = c.Search(ctx, "dune messiah", 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{messiah}, ids)

	ids, err = c.Search(ctx, "spice", 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{dune}, ids)

	ids, err = c.Search(ctx, "  ", 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFindByISBNMatchesBothForms(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()
	id, err := c.AddData(ctx, duneData())
	require.NoError(t, err)

	ids, err := c.FindByISBN(ctx, "9780441013593")
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids)

	ids, err = c.FindByISBN(ctx, "0441013597")
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids)

	ids, err = c.FindByISBN(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDelete(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()
	id, err := c.AddData(ctx, duneData())
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, id))
	_, err = c.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	ids, err := c.Search(ctx, "dune", 0)
	require.NoError(t, err)
	assert.Empty(t, ids)

	assert.ErrorIs(t, c.Delete(ctx, id), ErrNotFound)
}

func TestListAndGetMany(t *testing.T) {
	c := openMemory(t)
	ctx := context.Background()
	a, err := c.Add(ctx, Book{Title: "A"})
	require.NoError(t, err)
	b, err := c.Add(ctx, Book{Title: "B"})
	require.NoError(t, err)

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	books, err := c.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "B", books[0].Title)

	many, err := c.GetMany(ctx, []int64{b, 999, a})
	require.NoError(t, err)
	require.Len(t, many, 2)
	assert.Equal(t, "B", many[0].Title)
	assert.Equal(t, "A", many[1].Title)
}

func TestIndexRebuiltWhenMissing(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "catalog.db")
	ctx := context.Background()

	c, err := Open(dbPath, filepath.Join(dir, "first.bleve"))
	require.NoError(t, err)
	id, err := c.AddData(ctx, duneData())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	// a fresh index path forces a rebuild from the table
	c, err = Open(dbPath, filepath.Join(dir, "second.bleve"))
	require.NoError(t, err)
	defer c.Close()

	ids, err := c.Search(ctx, "dune", 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids)
}

func TestIndexReopened(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "catalog.db")
	indexPath := filepath.Join(dir, "catalog.bleve")
	ctx := context.Background()

	c, err := Open(dbPath, indexPath)
	require.NoError(t, err)
	id, err := c.Add(ctx, Book{Title: "Hyperion", Authors: []string{"Dan Simmons"}})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = Open(dbPath, indexPath)
	require.NoError(t, err)
	defer c.Close()

	ids, err := c.Search(ctx, "simmons", 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids)
}
