// file: cmd/url.go
// version: 1.0.0
// guid: 3c4d5e6f-7a8b-4c9d-8e0f-1a2b3c4d5e6f

package cmd

import (
	"fmt"

	"github.com/jdfalk/book-search/internal/search"
	"github.com/spf13/cobra"
)

var urlCmd = &cobra.Command{
	Use:   "url <engine> <id>",
	Short: "Print the page of a book on a site",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(a *app, cmd *cobra.Command, args []string) error {
		u, err := bookURL(a.registry, search.EngineID(args[0]), args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), u)
		return nil
	}),
}

func bookURL(reg *search.Registry, engine search.EngineID, id string) (string, error) {
	e, ok := reg.Engine(engine)
	if !ok {
		return "", unknownEngine(reg, engine)
	}
	byID, ok := e.(search.ByExternalID)
	if !ok {
		return "", fmt.Errorf("%s: %w", engine, search.ErrUnsupported)
	}
	if id == "" {
		return "", search.ErrEmptyID
	}
	return byID.CreateURL(id), nil
}
