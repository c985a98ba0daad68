// file: cmd/sites.go
// version: 1.1.0
// guid: 0b1c2d3e-4f5a-4b6c-9d7e-8f9a0b1c2d3e

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jdfalk/book-search/internal/config"
	"github.com/jdfalk/book-search/internal/database"
	"github.com/jdfalk/book-search/internal/search"
	"github.com/spf13/cobra"
)

var (
	sitesCmd = &cobra.Command{
		Use:   "sites",
		Short: "Show and change the site lists",
		Long: `Each site type (data, covers, alt-editions, view) has an ordered list of
engines. Searches ask the enabled engines of the data list in order.`,
	}

	sitesListCmd = &cobra.Command{
		Use:   "list [type]",
		Short: "List sites and their capabilities",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(a *app, cmd *cobra.Command, args []string) error {
			types := search.SiteTypes
			if len(args) == 1 {
				t, err := search.ParseSiteType(args[0])
				if err != nil {
					return err
				}
				types = []search.SiteType{t}
			}
			return printSites(cmd.OutOrStdout(), a, types)
		}),
	}

	sitesEnableCmd = &cobra.Command{
		Use:   "enable <type> <engine>",
		Short: "Enable an engine in a site list",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(a *app, cmd *cobra.Command, args []string) error {
			return setSiteEnabled(a, args[0], args[1], true)
		}),
	}

	sitesDisableCmd = &cobra.Command{
		Use:   "disable <type> <engine>",
		Short: "Disable an engine in a site list",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(a *app, cmd *cobra.Command, args []string) error {
			return setSiteEnabled(a, args[0], args[1], false)
		}),
	}

	sitesOrderCmd = &cobra.Command{
		Use:   "order <type> <engine>...",
		Short: "Move engines to the front of a site list",
		Args:  cobra.MinimumNArgs(2),
		RunE: withApp(func(a *app, cmd *cobra.Command, args []string) error {
			t, err := search.ParseSiteType(args[0])
			if err != nil {
				return err
			}
			order := make([]search.EngineID, 0, len(args)-1)
			for _, id := range args[1:] {
				order = append(order, search.EngineID(id))
			}
			if err := a.sites.SetOrder(t, order); err != nil {
				return err
			}
			return printSites(cmd.OutOrStdout(), a, []search.SiteType{t})
		}),
	}

	sitesResetCmd = &cobra.Command{
		Use:   "reset <type>",
		Short: "Restore the default list for a site type",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(a *app, cmd *cobra.Command, args []string) error {
			t, err := search.ParseSiteType(args[0])
			if err != nil {
				return err
			}
			if err := a.sites.Reset(t); err != nil {
				return err
			}
			return printSites(cmd.OutOrStdout(), a, []search.SiteType{t})
		}),
	}

	sitesImportCmd = &cobra.Command{
		Use:   "import <file>",
		Short: "Store the site lists of a YAML sites file",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(a *app, cmd *cobra.Command, args []string) error {
			return config.ImportSitesFile(args[0], a.sites)
		}),
	}

	sitesExportCmd = &cobra.Command{
		Use:   "export <file>",
		Short: "Write every site list to a YAML sites file",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(a *app, cmd *cobra.Command, args []string) error {
			if err := config.ExportSitesFile(args[0], a.sites); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Site lists written to %s\n", args[0])
			return nil
		}),
	}

	sitesTokenCmd = &cobra.Command{
		Use:   "token <engine> <token>",
		Short: "Store the API token of an engine (hardcover, googlebooks)",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(a *app, cmd *cobra.Command, args []string) error {
			switch search.EngineID(args[0]) {
			case "hardcover":
				config.AppConfig.HardcoverAPIToken = strings.TrimSpace(args[1])
			case "googlebooks":
				config.AppConfig.GoogleBooksAPIKey = strings.TrimSpace(args[1])
			default:
				return fmt.Errorf("%s does not take a token", args[0])
			}
			if err := config.SaveConfigToDatabase(a.store); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token for %s saved (%s)\n", args[0], database.MaskSecret(args[1]))
			return nil
		}),
	}

	sitesRegisterCmd = &cobra.Command{
		Use:   "register",
		Short: "Offer registration for enabled sites that need an account",
		Args:  cobra.NoArgs,
		RunE: withApp(func(a *app, cmd *cobra.Command, args []string) error {
			return runRegister(cmd.Context(), a, cmd.InOrStdin(), cmd.OutOrStdout())
		}),
	}

	sitesPromptsCmd = &cobra.Command{
		Use:   "show-prompts",
		Short: "Ask again about registrations answered with \"never\"",
		Args:  cobra.NoArgs,
		RunE: withApp(func(a *app, cmd *cobra.Command, args []string) error {
			return a.store.ShowPrompts("cli")
		}),
	}
)

func init() {
	sitesCmd.AddCommand(sitesListCmd, sitesEnableCmd, sitesDisableCmd, sitesOrderCmd,
		sitesResetCmd, sitesImportCmd, sitesExportCmd, sitesTokenCmd, sitesRegisterCmd, sitesPromptsCmd)
}

// runRegister walks the enabled data sites and prompts for each one that
// still needs an account.
func runRegister(ctx context.Context, a *app, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sites, err := a.sites.Sites(search.SiteTypeData)
	if err != nil {
		return err
	}
	p := &terminalPrompter{in: bufio.NewReader(in), out: out, filter: a.store}
	action := search.PromptToRegister(ctx, a.registry, sites, p, "cli")
	if action == search.RegisterCancelled {
		fmt.Fprintln(out, "Registration cancelled.")
	}
	return nil
}

// withApp opens the app around a command body.
func withApp(run func(a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return run(a, cmd, args)
	}
}

func setSiteEnabled(a *app, typ, engine string, enabled bool) error {
	t, err := search.ParseSiteType(typ)
	if err != nil {
		return err
	}
	return a.sites.SetEnabled(t, search.EngineID(engine), enabled)
}

func printSites(out io.Writer, a *app, types []search.SiteType) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, t := range types {
		sites, err := a.sites.Sites(t)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "[%s]\n", t)
		for i, s := range sites {
			mark := " "
			if s.Enabled {
				mark = "x"
			}
			name, caps, status := string(s.Engine), "", ""
			if e, ok := a.registry.Engine(s.Engine); ok {
				name = search.Name(e)
				caps = search.Capabilities(e).String()
				if !e.IsAvailable() {
					status = "needs registration"
				}
			}
			fmt.Fprintf(w, "%2d. [%s]\t%s\t%s\t%s\t%s\n", i+1, mark, s.Engine, name, caps, status)
		}
	}
	return w.Flush()
}
