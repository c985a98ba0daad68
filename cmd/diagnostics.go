// file: cmd/diagnostics.go
// version: 2.0.0
// guid: c8f6a0d4-2a8b-48cf-9d08-02cc9915d9fc

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/pebble/v2"
	"github.com/jdfalk/book-search/internal/config"
	"github.com/jdfalk/book-search/internal/search"
	"github.com/spf13/cobra"
)

var (
	diagnosticsCmd = &cobra.Command{
		Use:   "diagnostics",
		Short: "Debugging and cleanup helpers",
		Long:  "Diagnostic utilities for inspecting the settings store and checking the engines.",
	}

	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Forget every stored setting, site list and hidden prompt",
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("yes")
			return runResetStore(force)
		},
	}

	queryCmd = &cobra.Command{
		Use:   "query",
		Short: "Inspect stored settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			prefix, _ := cmd.Flags().GetString("prefix")
			raw, _ := cmd.Flags().GetBool("raw")
			return runDiagnosticsQuery(cmd.OutOrStdout(), limit, prefix, raw)
		},
	}

	engineCheckCmd = &cobra.Command{
		Use:   "engines",
		Short: "Check network access and engine availability",
		RunE: withApp(func(a *app, cmd *cobra.Command, args []string) error {
			return runEngineCheck(cmd.OutOrStdout(), a)
		}),
	}
)

func init() {
	resetCmd.Flags().Bool("yes", false, "Skip confirmation prompt")

	queryCmd.Flags().Int("limit", 20, "Number of records to display")
	queryCmd.Flags().String("prefix", "", "Key prefix to inspect when --raw is set (sites:, prompt:hidden:, setting:)")
	queryCmd.Flags().Bool("raw", false, "Show raw Pebble key/value data")

	diagnosticsCmd.AddCommand(resetCmd)
	diagnosticsCmd.AddCommand(queryCmd)
	diagnosticsCmd.AddCommand(engineCheckCmd)
}

func runResetStore(force bool) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !force {
		confirmed, err := promptYesNo(fmt.Sprintf("Reset the settings in %s", config.AppConfig.DatabasePath))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Aborted. Nothing was changed.")
			return nil
		}
	}
	if err := a.store.Reset(); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}
	fmt.Println("Settings store reset. Site lists are back to their defaults.")
	return nil
}

func runDiagnosticsQuery(out io.Writer, limit int, prefix string, raw bool) error {
	if limit <= 0 {
		return errors.New("limit must be positive")
	}

	if raw {
		if config.AppConfig.DatabasePath == "" {
			return fmt.Errorf("raw inspection needs an on-disk database")
		}
		return runRawPebbleQuery(out, limit, prefix)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	settings, err := a.store.GetAllSettings()
	if err != nil {
		return fmt.Errorf("failed to fetch settings: %w", err)
	}
	if len(settings) == 0 {
		fmt.Fprintln(out, "No settings stored.")
	}
	for i, s := range settings {
		if i >= limit {
			break
		}
		fmt.Fprintf(out, "%-28s %-6s %s\n", s.Key, s.Type, truncateString(s.Value, 80))
	}
	fmt.Fprintln(out, "---")
	return printSites(out, a, search.SiteTypes)
}

func runRawPebbleQuery(out io.Writer, limit int, prefix string) error {
	db, err := pebble.Open(config.AppConfig.DatabasePath, &pebble.Options{
		FormatMajorVersion: pebble.FormatNewest,
		ReadOnly:           true,
	})
	if err != nil {
		return fmt.Errorf("failed to open Pebble database: %w", err)
	}
	defer db.Close()

	iterOpts := &pebble.IterOptions{}
	if prefix != "" {
		iterOpts.LowerBound = []byte(prefix)
		iterOpts.UpperBound = append([]byte(prefix), 0xFF)
	}

	iter, err := db.NewIter(iterOpts)
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	count := 0
	for ok := iter.First(); ok && iter.Valid(); ok = iter.Next() {
		fmt.Fprintf(out, "Key: %s\n", string(iter.Key()))
		val := iter.Value()
		fmt.Fprintf(out, "Value length: %d bytes\n", len(val))
		preview := string(val)
		if strings.HasPrefix(string(iter.Key()), "setting:") {
			preview = "(setting, use query without --raw)"
		}
		fmt.Fprintf(out, "Value preview: %s\n", truncateString(preview, 500))
		fmt.Fprintln(out, "---")

		count++
		if count >= limit {
			break
		}
	}

	if err := iter.Error(); err != nil {
		return fmt.Errorf("iterator error: %w", err)
	}

	if count == 0 {
		fmt.Fprintln(out, "No keys matched the requested prefix.")
	}

	return nil
}

// runEngineCheck reports whether the network is reachable and which
// engines can be searched right now.
func runEngineCheck(out io.Writer, a *app) error {
	online := a.network(context.Background())
	fmt.Fprintf(out, "Network (%s): %v\n", config.AppConfig.NetworkCheckAddress, online)
	for _, id := range a.registry.IDs() {
		e, _ := a.registry.Engine(id)
		status := "ok"
		if !e.IsAvailable() {
			status = "needs registration"
		}
		fmt.Fprintf(out, "%-12s %-28s %s\n", id, search.Capabilities(e), status)
	}
	return nil
}

func promptYesNo(action string) (bool, error) {
	fmt.Printf("%s? Type 'yes' to confirm: ", action)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes", nil
}

func truncateString(in string, max int) string {
	if len(in) <= max {
		return in
	}
	return in[:max] + "..."
}
