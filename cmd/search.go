// file: cmd/search.go
// version: 1.0.0
// guid: 7a8b9c0d-1e2f-4a3b-8c4d-5e6f7a8b9c0d

package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/jdfalk/book-search/internal/config"
	"github.com/jdfalk/book-search/internal/matcher"
	"github.com/jdfalk/book-search/internal/search"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// searchCmd runs one search and prints the merged result.
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the enabled sites for a book",
	Long: `Search the enabled data sites by ISBN, author, title and publisher, or
look up a site specific id with --external or --native.

Examples:
  book-search search --isbn 9780441013593
  book-search search --author "Frank Herbert" --title Dune
  book-search search --external openlibrary=OL7353617M`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := searchOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return runSearch(cmd.Context(), a, opts, os.Stdin, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	addSearchFlags(searchCmd.Flags())
}

func addSearchFlags(f *pflag.FlagSet) {
	f.String("isbn", "", "ISBN or barcode to search for")
	f.String("author", "", "author to search for")
	f.String("title", "", "title to search for")
	f.String("publisher", "", "publisher to narrow a text search")
	f.String("external", "", "search one site by its public id, as engine=id")
	f.String("native", "", "search one site by its internal id, as engine=id")
	f.StringSlice("sites", nil, "only search these engines, in this order")
	f.Bool("no-strict", false, "also accept EAN/UPC barcodes")
	f.Bool("fetch-covers", false, "download cover images")
	f.Bool("json", false, "print the result as JSON")
	f.Bool("save", false, "save a matching result in the local catalog")
}

type searchOptions struct {
	criteria    search.Criteria
	external    *idLookup
	native      *idLookup
	sites       []search.EngineID
	fetchCovers bool
	json        bool
	save        bool
}

type idLookup struct {
	engine search.EngineID
	id     string
}

func parseLookup(value string) (*idLookup, error) {
	if value == "" {
		return nil, nil
	}
	engine, id, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(engine) == "" || strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("expected engine=id, got %q", value)
	}
	return &idLookup{engine: search.EngineID(strings.TrimSpace(engine)), id: strings.TrimSpace(id)}, nil
}

func searchOptionsFromFlags(cmd *cobra.Command) (searchOptions, error) {
	f := cmd.Flags()
	var opts searchOptions
	isbnText, _ := f.GetString("isbn")
	author, _ := f.GetString("author")
	title, _ := f.GetString("title")
	publisher, _ := f.GetString("publisher")
	noStrict, _ := f.GetBool("no-strict")
	opts.criteria = search.Criteria{
		ISBN:       strings.TrimSpace(isbnText),
		StrictISBN: config.AppConfig.StrictISBN && !noStrict,
		Author:     strings.TrimSpace(author),
		Title:      strings.TrimSpace(title),
		Publisher:  strings.TrimSpace(publisher),
	}

	external, _ := f.GetString("external")
	native, _ := f.GetString("native")
	var err error
	if opts.external, err = parseLookup(external); err != nil {
		return opts, fmt.Errorf("--external: %w", err)
	}
	if opts.native, err = parseLookup(native); err != nil {
		return opts, fmt.Errorf("--native: %w", err)
	}
	if opts.external != nil && opts.native != nil {
		return opts, fmt.Errorf("--external and --native cannot be combined")
	}
	if opts.external == nil && opts.native == nil && opts.criteria.IsEmpty() {
		return opts, fmt.Errorf("nothing to search for: give --isbn, --author, --title, --external or --native")
	}

	sites, _ := f.GetStringSlice("sites")
	for _, s := range sites {
		opts.sites = append(opts.sites, search.EngineID(strings.TrimSpace(s)))
	}
	fetch, _ := f.GetBool("fetch-covers")
	opts.fetchCovers = fetch || config.AppConfig.FetchCovers
	opts.json, _ = f.GetBool("json")
	opts.save, _ = f.GetBool("save")
	return opts, nil
}

// siteList returns the stored data sites, or only the requested engines
// when --sites is given.
func (a *app) siteList(only []search.EngineID) ([]search.Site, error) {
	sites, err := a.sites.Sites(search.SiteTypeData)
	if err != nil {
		return nil, err
	}
	if len(only) == 0 {
		return sites, nil
	}
	want := make(map[search.EngineID]bool, len(only))
	for _, id := range only {
		if _, ok := a.registry.Engine(id); !ok {
			return nil, unknownEngine(a.registry, id)
		}
		want[id] = true
	}
	sites = search.Reorder(sites, only)
	for i := range sites {
		sites[i].Enabled = want[sites[i].Engine]
	}
	return sites, nil
}

func runSearch(ctx context.Context, a *app, opts searchOptions, in io.Reader, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sites, err := a.siteList(opts.sites)
	if err != nil {
		return err
	}
	var covers search.Covers
	covers[0] = opts.fetchCovers

	coord := search.NewCoordinator(search.Options{
		Registry:    a.registry,
		Sites:       sites,
		Network:     a.network,
		Prompter:    &terminalPrompter{in: bufio.NewReader(in), out: errOut, filter: a.store},
		CallerID:    "cli",
		Cache:       a.cache,
		FetchCovers: covers,
	})
	defer coord.Close()
	coord.SetCriteria(opts.criteria)

	events := coord.Subscribe()
	switch {
	case opts.external != nil:
		err = coord.TrySearchByExternalID(opts.external.engine, opts.external.id)
	case opts.native != nil:
		err = coord.TrySearchByNativeID(opts.native.engine, opts.native.id)
	default:
		err = coord.TrySearch()
	}
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(errOut),
		progressbar.OptionSetDescription("Searching"),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
	)

	var result *search.Result
	for result == nil {
		select {
		case ev, ok := <-events:
			if !ok {
				return search.ErrClosed
			}
			if !ev.IsTerminal() {
				if ev.Progress.Max > 0 {
					bar.ChangeMax(ev.Progress.Max)
				}
				bar.Describe(ev.Progress.Text)
				_ = bar.Set(ev.Progress.Position)
				continue
			}
			ev.Consume()
			result = ev.Result
			if result == nil {
				result = &search.Result{Cancelled: ev.Kind == search.EventCancelled}
			}
		case <-sigCh:
			coord.Cancel()
		case <-ctx.Done():
			coord.Cancel()
		}
	}
	_ = bar.Finish()

	if err := printResult(out, result, opts.json); err != nil {
		return err
	}
	if opts.save && result.IsMatch() {
		cat, err := openCatalog()
		if err != nil {
			return err
		}
		defer cat.Close()
		id, err := cat.AddData(context.Background(), result.Data)
		if err != nil {
			return fmt.Errorf("failed to save book: %w", err)
		}
		fmt.Fprintf(out, "Saved to catalog as #%d\n", id)
	}
	return nil
}

func printResult(out io.Writer, r *search.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	switch {
	case r.Cancelled:
		fmt.Fprintln(out, "Search cancelled.")
	case !r.IsMatch():
		fmt.Fprintln(out, "No book found.")
	}
	if r.IsMatch() {
		printBookData(out, r.Data)
	}
	if len(r.Registration) > 0 {
		fmt.Fprintf(out, "\nSkipped (registration needed): %s\n", joinIDs(r.Registration))
	}
	if r.ErrorText != "" {
		fmt.Fprintf(out, "\nErrors:\n%s\n", r.ErrorText)
	}
	return nil
}

func printBookData(out io.Writer, data search.BookData) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if list := data.List(k); len(list) > 1 {
			fmt.Fprintf(out, "%-22s %s\n", k+":", strings.Join(list, "; "))
			continue
		}
		fmt.Fprintf(out, "%-22s %s\n", k+":", formatValue(data[k]))
	}
}

func formatValue(v any) string {
	switch t := v.(type) {
	case []string:
		return strings.Join(t, "; ")
	case string:
		if strings.TrimSpace(t) == "" {
			return "(empty)"
		}
		return t
	default:
		return fmt.Sprint(t)
	}
}

func joinIDs(ids []search.EngineID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

// terminalPrompter asks on the terminal whether to register with a site.
// Registering itself happens outside the program, so a "yes" only prints
// where to go.
type terminalPrompter struct {
	in     *bufio.Reader
	out    io.Writer
	filter interface {
		PromptHidden(search.EngineID, string) bool
		HidePrompt(search.EngineID, string) error
	}
}

func (p *terminalPrompter) PromptRegistration(_ context.Context, req search.RegistrationRequest) search.RegistrationAction {
	fmt.Fprintf(p.out, "\n%s needs an account before it can be searched.\n", req.Name)
	choices := "[r]egister, [n]ot now"
	if !req.Required {
		choices += ", ne[v]er"
	}
	fmt.Fprintf(p.out, "%s, [c]ancel? ", choices)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return search.RegisterNotNow
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "r", "register", "y", "yes":
		fmt.Fprintf(p.out, "Register at %s and store the token with `book-search sites token %s <token>`.\n", req.SiteURL, req.Engine)
		return search.RegisterNow
	case "v", "never":
		return search.RegisterNotEver
	case "c", "cancel":
		return search.RegisterCancelled
	default:
		return search.RegisterNotNow
	}
}

func (p *terminalPrompter) PromptHidden(engine search.EngineID, callerID string) bool {
	return p.filter != nil && p.filter.PromptHidden(engine, callerID)
}

func (p *terminalPrompter) HidePrompt(engine search.EngineID, callerID string) error {
	if p.filter == nil {
		return nil
	}
	return p.filter.HidePrompt(engine, callerID)
}

// unknownEngine wraps ErrUnknownEngine with the closest registered id.
func unknownEngine(reg *search.Registry, id search.EngineID) error {
	ids := reg.IDs()
	names := make([]string, len(ids))
	for i, known := range ids {
		names[i] = string(known)
	}
	if best := matcher.RankResults(string(id), names, 60); len(best) > 0 {
		return fmt.Errorf("%w: %s (did you mean %s?)", search.ErrUnknownEngine, id, names[best[0].Index])
	}
	return fmt.Errorf("%w: %s", search.ErrUnknownEngine, id)
}
