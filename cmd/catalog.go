// file: cmd/catalog.go
// version: 1.0.0
// guid: 6e7f8a9b-0c1d-4e2f-9a3b-4c5d6e7f8a9b

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jdfalk/book-search/internal/catalog"
	"github.com/jdfalk/book-search/internal/search"
	"github.com/spf13/cobra"
)

var (
	catalogCmd = &cobra.Command{
		Use:   "catalog",
		Short: "Manage the local book catalog",
	}

	catalogAddCmd = &cobra.Command{
		Use:   "add <file|->",
		Short: "Save a book from a JSON search result",
		Long: `Save a book in the local catalog. The input is the JSON printed by
"book-search search --json" or a plain field object.`,
		Args: cobra.ExactArgs(1),
		RunE: withCatalog(func(cat *catalog.Catalog, cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			data, err := readBookData(in)
			if err != nil {
				return err
			}
			id, err := cat.AddData(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved #%d\n", id)
			return nil
		}),
	}

	catalogFindCmd = &cobra.Command{
		Use:   "find <query>",
		Short: "Full-text search the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: withCatalog(func(cat *catalog.Catalog, cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			ids, err := cat.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			books, err := cat.GetMany(cmd.Context(), ids)
			if err != nil {
				return err
			}
			printBooks(cmd.OutOrStdout(), books)
			return nil
		}),
	}

	catalogListCmd = &cobra.Command{
		Use:   "list",
		Short: "List the newest books",
		Args:  cobra.NoArgs,
		RunE: withCatalog(func(cat *catalog.Catalog, cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			books, err := cat.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printBooks(cmd.OutOrStdout(), books)
			return nil
		}),
	}

	catalogShowCmd = &cobra.Command{
		Use:   "show <id>",
		Short: "Print every field of a saved book",
		Args:  cobra.ExactArgs(1),
		RunE: withCatalog(func(cat *catalog.Catalog, cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			book, err := cat.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			printBookData(cmd.OutOrStdout(), book.Data)
			return nil
		}),
	}

	catalogDeleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a book from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: withCatalog(func(cat *catalog.Catalog, cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return cat.Delete(cmd.Context(), id)
		}),
	}

	catalogReindexCmd = &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the full-text index from the catalog table",
		Args:  cobra.NoArgs,
		RunE: withCatalog(func(cat *catalog.Catalog, cmd *cobra.Command, args []string) error {
			return cat.Reindex(cmd.Context())
		}),
	}
)

func init() {
	catalogFindCmd.Flags().Int("limit", catalog.DefaultSearchLimit, "maximum number of books")
	catalogListCmd.Flags().Int("limit", 20, "maximum number of books")
	catalogCmd.AddCommand(catalogAddCmd, catalogFindCmd, catalogListCmd, catalogShowCmd,
		catalogDeleteCmd, catalogReindexCmd)
}

func withCatalog(run func(cat *catalog.Catalog, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if cmd.Context() == nil {
			cmd.SetContext(context.Background())
		}
		cat, err := openCatalog()
		if err != nil {
			return err
		}
		defer cat.Close()
		return run(cat, cmd, args)
	}
}

// readBookData accepts a search result ({"data": {...}}) or a bare field
// object.
func readBookData(in io.Reader) (search.BookData, error) {
	raw, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}
	var wrapped struct {
		Data search.BookData `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Data) > 0 {
		return wrapped.Data, nil
	}
	var data search.BookData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("invalid book JSON: %w", err)
	}
	return data, nil
}

func printBooks(out io.Writer, books []catalog.Book) {
	if len(books) == 0 {
		fmt.Fprintln(out, "No books found.")
		return
	}
	for _, b := range books {
		line := fmt.Sprintf("#%d  %s", b.ID, b.Title)
		if len(b.Authors) > 0 {
			line += " by " + strings.Join(b.Authors, ", ")
		}
		if b.ISBN != "" {
			line += "  [" + b.ISBN + "]"
		}
		fmt.Fprintln(out, line)
	}
}
