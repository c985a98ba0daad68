// file: internal/search/coordinator.go
// version: 1.1.0
// guid: e8b25f71-3c0a-4d96-a7e4-0b9f6d1c3a28

package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jdfalk/book-search/internal/cache"
	"github.com/jdfalk/book-search/internal/isbn"
	"github.com/jdfalk/book-search/internal/metrics"
)

// State is the coordinator state.
type State int

const (
	StateIdle State = iota
	StateSearching
	StateFinished
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateFinished:
		return "finished"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Options configures a Coordinator.
type Options struct {
	Registry *Registry
	// Sites is the initial site list; the registry defaults when nil.
	Sites       []Site
	Network     NetworkChecker
	Prompter    Prompter
	CallerID    string
	Cache       *cache.Cache[BookData]
	Accumulator *Accumulator
	FetchCovers Covers
	BaseMessage string
}

// Coordinator runs at most one search at a time against the configured
// sites and merges their results.
type Coordinator struct {
	mu sync.Mutex

	registry    *Registry
	network     NetworkChecker
	prompter    Prompter
	callerID    string
	cache       *cache.Cache[BookData]
	accumulator *Accumulator

	sites       []Site
	criteria    Criteria
	fetchCovers Covers
	baseMessage string

	rootCtx    context.Context
	rootCancel context.CancelFunc
	closed     bool
	wg         sync.WaitGroup

	state    State
	searchID uint64
	events   eventChannel

	// per-search state, reset by begin
	searchCancel context.CancelFunc
	searchCtx    context.Context
	mode         string
	started      time.Time
	req          request
	siteOrder    []EngineID
	pending      []Site
	waitForISBN  bool
	active       map[EngineID]*siteTask
	total        int
	done         int
	results      map[EngineID]SiteResult
	siteErrors   map[EngineID]*SiteError
	registration []EngineID
}

// NewCoordinator creates an idle coordinator.
func NewCoordinator(opts Options) *Coordinator {
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Network == nil {
		opts.Network = AlwaysOnline
	}
	if opts.Accumulator == nil {
		opts.Accumulator = NewAccumulator(nil, NewFormatMapper(nil))
	}
	sites := opts.Sites
	if sites == nil {
		sites = opts.Registry.DefaultSites(SiteTypeData)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		registry:    opts.Registry,
		network:     opts.Network,
		prompter:    opts.Prompter,
		callerID:    opts.CallerID,
		cache:       opts.Cache,
		accumulator: opts.Accumulator,
		sites:       slices.Clone(sites),
		criteria:    NewCriteria(),
		fetchCovers: opts.FetchCovers,
		baseMessage: opts.BaseMessage,
		rootCtx:     ctx,
		rootCancel:  cancel,
	}
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsSearchActive reports whether a search is running.
func (c *Coordinator) IsSearchActive() bool {
	return c.State() == StateSearching
}

// SetSiteList replaces the site list used by the next search.
func (c *Coordinator) SetSiteList(sites []Site) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sites = slices.Clone(sites)
}

// SiteList returns a copy of the site list.
func (c *Coordinator) SiteList() []Site {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.sites)
}

// SetFetchCovers selects which covers engines should download.
func (c *Coordinator) SetFetchCovers(covers Covers) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetchCovers = covers
}

// SetBaseMessage sets the prefix of progress messages.
func (c *Coordinator) SetBaseMessage(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseMessage = msg
}

// Criteria returns a copy of the current criteria.
func (c *Coordinator) Criteria() Criteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.criteria.Clone()
}

// SetCriteria replaces the criteria.
func (c *Coordinator) SetCriteria(cr Criteria) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.criteria = cr.Clone()
}

// ClearSearchCriteria empties the text, ISBN and external id criteria.
// BookIDs from a prior full-text search are kept.
func (c *Coordinator) ClearSearchCriteria() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.criteria.Clear()
}

func (c *Coordinator) SetISBN(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.criteria.ISBN = strings.TrimSpace(text)
}

func (c *Coordinator) SetStrictISBN(strict bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.criteria.StrictISBN = strict
}

func (c *Coordinator) SetAuthor(author string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.criteria.Author = strings.TrimSpace(author)
}

func (c *Coordinator) SetTitle(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.criteria.Title = strings.TrimSpace(title)
}

func (c *Coordinator) SetPublisher(publisher string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.criteria.Publisher = strings.TrimSpace(publisher)
}

func (c *Coordinator) SetKeywords(keywords string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.criteria.Keywords = strings.TrimSpace(keywords)
}

// SetExternalID sets or, with an empty id, removes the external id for an
// engine.
func (c *Coordinator) SetExternalID(engine EngineID, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id = strings.TrimSpace(id)
	if id == "" {
		delete(c.criteria.ExternalIDs, engine)
		return
	}
	if c.criteria.ExternalIDs == nil {
		c.criteria.ExternalIDs = make(map[EngineID]string)
	}
	c.criteria.ExternalIDs[engine] = id
}

// SetBookIDs stores the result of a local full-text search.
func (c *Coordinator) SetBookIDs(ids []int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.criteria.BookIDs = slices.Clone(ids)
}

// Subscribe returns the event channel. Only one subscriber exists at a
// time: a new call closes the previous channel. An unconsumed terminal
// event is delivered again to the new subscriber.
func (c *Coordinator) Subscribe() <-chan Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events.subscribe()
}

// Last returns the last terminal event, consumed or not.
func (c *Coordinator) Last() (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events.lastTerminal()
}

// SearchByExternalID clears the criteria and looks up id on one engine.
func (c *Coordinator) SearchByExternalID(engine EngineID, id string) bool {
	return c.logStart("external id", c.TrySearchByExternalID(engine, id))
}

// SearchByNativeID clears the criteria and looks up a site-internal id on
// one engine.
func (c *Coordinator) SearchByNativeID(engine EngineID, id string) bool {
	return c.logStart("native id", c.TrySearchByNativeID(engine, id))
}

// Search runs the current criteria against all enabled sites.
func (c *Coordinator) Search() bool {
	return c.logStart("criteria", c.TrySearch())
}

func (c *Coordinator) logStart(kind string, err error) bool {
	if err != nil {
		log.Printf("[DEBUG] search: %s search not started: %v", kind, err)
		return false
	}
	return true
}

// TrySearchByExternalID is SearchByExternalID returning the reason a
// search was not started.
func (c *Coordinator) TrySearchByExternalID(engine EngineID, id string) error {
	return c.startSingle(engine, id, false)
}

// TrySearchByNativeID is SearchByNativeID returning the reason a search
// was not started.
func (c *Coordinator) TrySearchByNativeID(engine EngineID, id string) error {
	return c.startSingle(engine, id, true)
}

func (c *Coordinator) startSingle(engineID EngineID, id string, native bool) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyID
	}
	if err := c.preflight(); err != nil {
		return err
	}

	c.mu.Lock()
	if err := c.checkStartable(); err != nil {
		c.mu.Unlock()
		return err
	}
	e, ok := c.registry.Engine(engineID)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownEngine, engineID)
	}
	want, mode := CapExternalID, modeExternalID
	if native {
		want, mode = CapNativeID, modeNativeID
	}
	if !Supports(e, want) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s by %s", ErrUnsupported, engineID, mode)
	}
	if !e.IsAvailable() {
		c.mu.Unlock()
		c.prompt([]Engine{e}, true)
		return fmt.Errorf("%w: %s", ErrNotAvailable, engineID)
	}

	c.criteria.Clear()
	req := request{covers: c.fetchCovers}
	if native {
		req.nativeEngine = engineID
		req.nativeID = id
	} else {
		c.criteria.ExternalIDs = map[EngineID]string{engineID: id}
		req.externalIDs = maps.Clone(c.criteria.ExternalIDs)
	}
	c.begin(mode.String(), req, []EngineID{engineID})
	c.startTask(e, mode)
	c.emitProgress()
	c.mu.Unlock()
	return nil
}

// TrySearch is Search returning the reason a search was not started.
func (c *Coordinator) TrySearch() error {
	c.mu.Lock()
	if err := c.checkStartable(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.criteria.IsEmpty() {
		c.mu.Unlock()
		return ErrEmptyCriteria
	}
	c.mu.Unlock()

	if err := c.preflight(); err != nil {
		return err
	}

	c.mu.Lock()
	if err := c.checkStartable(); err != nil {
		c.mu.Unlock()
		return err
	}
	cr := c.criteria
	req := request{
		externalIDs: maps.Clone(cr.ExternalIDs),
		code:        isbn.New(cr.ISBN, false),
		strict:      cr.StrictISBN,
		text: TextQuery{
			ISBN:      cr.ISBN,
			Author:    cr.Author,
			Title:     cr.Title,
			Publisher: cr.Publisher,
		},
		covers: c.fetchCovers,
	}
	sites := FilterEnabled(c.sites)
	order := make([]EngineID, 0, len(sites))
	for _, s := range sites {
		order = append(order, s.Engine)
	}

	concurrent := len(req.externalIDs) > 0 || req.isbnValid() || req.barcodeValid()
	var unavailable []Engine
	var runnable []runnableSite
	for _, s := range sites {
		e, ok := c.registry.Engine(s.Engine)
		if !ok {
			continue
		}
		mode := pickMode(e, req)
		if mode == modeNone {
			continue
		}
		if !e.IsAvailable() {
			unavailable = append(unavailable, e)
			continue
		}
		runnable = append(runnable, runnableSite{site: s, engine: e, mode: mode})
	}
	if len(runnable) == 0 {
		c.mu.Unlock()
		if len(unavailable) > 0 {
			c.prompt(unavailable, false)
			return ErrNotAvailable
		}
		return ErrNothingToRun
	}

	label := "text"
	if concurrent {
		label = "identifier"
	}
	c.begin(label, req, order)
	for _, e := range unavailable {
		c.registration = append(c.registration, e.Config().ID)
	}
	if concurrent {
		for _, r := range runnable {
			c.startTask(r.engine, r.mode)
		}
	} else {
		c.waitForISBN = true
		for _, r := range runnable {
			c.pending = append(c.pending, r.site)
		}
		c.startNextSequential()
	}
	c.emitProgress()
	c.mu.Unlock()

	if len(unavailable) > 0 {
		c.prompt(unavailable, false)
	}
	return nil
}

type runnableSite struct {
	site   Site
	engine Engine
	mode   dispatchMode
}

// preflight runs the network check without holding the lock.
func (c *Coordinator) preflight() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateSearching {
		c.mu.Unlock()
		return ErrSearchActive
	}
	ctx, network := c.rootCtx, c.network
	c.mu.Unlock()
	if !network(ctx) {
		return ErrNoNetwork
	}
	return nil
}

// checkStartable must be called with the lock held.
func (c *Coordinator) checkStartable() error {
	if c.closed {
		return ErrClosed
	}
	if c.state == StateSearching {
		return ErrSearchActive
	}
	return nil
}

// prompt asks the user to register for each engine in turn until one
// prompt ends with Register or Cancelled. Must be called without the lock.
func (c *Coordinator) prompt(engines []Engine, required bool) {
	promptEngines(c.rootCtx, engines, c.prompter, required, c.callerID)
}

// begin resets the per-search state. Called with the lock held.
func (c *Coordinator) begin(mode string, req request, order []EngineID) {
	c.searchID++
	c.state = StateSearching
	c.events.reset()
	c.searchCtx, c.searchCancel = context.WithCancel(c.rootCtx)
	c.mode = mode
	c.started = time.Now()
	c.req = req
	c.siteOrder = order
	c.pending = nil
	c.waitForISBN = false
	c.active = make(map[EngineID]*siteTask)
	c.total = 0
	c.done = 0
	c.results = make(map[EngineID]SiteResult)
	c.siteErrors = make(map[EngineID]*SiteError)
	c.registration = nil
	metrics.IncSearchStarted(mode)
	log.Printf("[DEBUG] search: #%d started (%s) on %d site(s)", c.searchID, mode, len(order))
}

// startTask launches the fetch for one site. Called with the lock held.
func (c *Coordinator) startTask(e Engine, mode dispatchMode) {
	cfg := e.Config()
	query := queryFor(e, mode, c.req)
	ctx, cancel := context.WithTimeout(c.searchCtx, cfg.Timeout())
	task := &siteTask{engine: e, mode: mode, query: query, cancel: cancel, started: time.Now()}
	c.active[cfg.ID] = task
	c.total++

	searchID := c.searchID
	req := c.req
	useCache := c.cache != nil && req.covers == (Covers{})
	key := cacheKey(e, mode, query)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		if useCache {
			if data, ok := c.cache.Get(key); ok {
				metrics.IncSiteCacheHit(string(cfg.ID))
				c.taskDone(searchID, cfg.ID, data.Clone(), nil)
				return
			}
		}
		log.Printf("[DEBUG] search: %s by %s: %q", cfg.ID, mode, query)
		data, err := fetch(ctx, e, mode, query, req)
		metrics.ObserveSiteFetchDuration(string(cfg.ID), time.Since(task.started))
		if err == nil && useCache && !data.IsEmpty() {
			c.cache.Set(key, data.Clone())
		}
		c.taskDone(searchID, cfg.ID, data, err)
	}()
}

// taskDone records the outcome of one site task.
func (c *Coordinator) taskDone(searchID uint64, id EngineID, data BookData, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if searchID != c.searchID || c.state != StateSearching {
		log.Printf("[DEBUG] search: discarding late result of %s for search #%d", id, searchID)
		return
	}
	task, ok := c.active[id]
	if !ok {
		return
	}
	delete(c.active, id)
	c.done++

	outcome := "ok"
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		outcome = "cancelled"
	case err != nil:
		outcome = "error"
		c.siteErrors[id] = &SiteError{Engine: id, Name: Name(task.engine), Err: err}
		log.Printf("[WARN] search: %s failed: %v", id, err)
	case data.IsEmpty():
		outcome = "empty"
	default:
		c.results[id] = SiteResult{Engine: id, Locale: task.engine.Config().Locale, Data: data}
	}
	metrics.IncSiteFetch(string(id), outcome)

	if c.waitForISBN {
		if found := isbn.Parse(data.String(KeyISBN)); err == nil && found.IsValid(true) {
			c.switchToISBN(found)
		} else {
			c.startNextSequential()
		}
	}

	if len(c.active) == 0 {
		c.finish()
		return
	}
	c.emitProgress()
}

// startNextSequential starts the next pending site. Called with the lock
// held.
func (c *Coordinator) startNextSequential() {
	for len(c.pending) > 0 {
		s := c.pending[0]
		c.pending = c.pending[1:]
		e, ok := c.registry.Engine(s.Engine)
		if !ok {
			continue
		}
		mode := pickMode(e, c.req)
		if mode == modeNone {
			continue
		}
		c.startTask(e, mode)
		return
	}
	c.waitForISBN = false
}

// switchToISBN starts all remaining sites concurrently with the ISBN one
// of the sites found. Called with the lock held.
func (c *Coordinator) switchToISBN(found isbn.ISBN) {
	log.Printf("[DEBUG] search: found isbn %s, searching remaining %d site(s)", found, len(c.pending))
	c.waitForISBN = false
	c.req.code = found
	c.req.text.ISBN = found.String()
	pending := c.pending
	c.pending = nil
	for _, s := range pending {
		e, ok := c.registry.Engine(s.Engine)
		if !ok {
			continue
		}
		if mode := pickMode(e, c.req); mode != modeNone {
			c.startTask(e, mode)
		}
	}
}

func (c *Coordinator) emitProgress() {
	names := make([]string, 0, len(c.active))
	for _, id := range c.siteOrder {
		if t, ok := c.active[id]; ok {
			names = append(names, Name(t.engine))
		}
	}
	text := strings.Join(names, ", ")
	if c.baseMessage != "" {
		text = c.baseMessage + ": " + text
	}
	ev := newEvent(EventProgress, c.searchID)
	ev.Progress = Progress{Text: text, Position: c.done, Max: c.total + len(c.pending)}
	c.events.send(ev)
}

// buildResult merges the results gathered so far. Called with the lock
// held.
func (c *Coordinator) buildResult() *Result {
	searched := c.req.code
	if !searched.IsValid(c.req.strict) {
		searched = isbn.ISBN{}
	}
	order := c.accumulator.Order(c.siteOrder, c.results, searched)
	data := c.accumulator.Merge(order, c.results, searched)
	// criteria alone never make a match
	if len(c.results) > 0 {
		if data.String(KeyISBN) == "" && c.criteria.ISBN != "" {
			data.Set(KeyISBN, c.criteria.ISBN)
		}
		if data.String(KeyTitle) == "" && c.criteria.Title != "" {
			data.Set(KeyTitle, c.criteria.Title)
		}
	}
	return &Result{
		SearchID:     c.searchID,
		Data:         data,
		Errors:       maps.Clone(c.siteErrors),
		ErrorText:    summarizeErrors(c.siteErrors),
		Registration: slices.Clone(c.registration),
	}
}

// finish delivers the Finished event. Called with the lock held.
func (c *Coordinator) finish() {
	res := c.buildResult()
	c.state = StateFinished
	c.searchCancel()
	elapsed := time.Since(c.started)
	metrics.IncSearchFinished(c.mode, res.IsMatch())
	metrics.ObserveSearchDuration(c.mode, elapsed)
	log.Printf("[INFO] search: #%d finished in %s, match=%v, %d site error(s)",
		c.searchID, elapsed.Round(time.Millisecond), res.IsMatch(), len(res.Errors))
	ev := newEvent(EventFinished, c.searchID)
	ev.Progress = Progress{Position: c.done, Max: c.total}
	ev.Result = res
	c.events.send(ev)
}

// Cancel stops the running search. The Cancelled event carries whatever
// was merged so far; results arriving later are discarded. It reports
// whether a search was cancelled.
func (c *Coordinator) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateSearching {
		return false
	}
	for _, t := range c.active {
		t.cancel()
	}
	c.active = nil
	c.pending = nil
	c.waitForISBN = false
	c.searchCancel()
	res := c.buildResult()
	res.Cancelled = true
	c.state = StateCancelled
	metrics.IncSearchCancelled(c.mode)
	log.Printf("[INFO] search: #%d cancelled", c.searchID)
	ev := newEvent(EventCancelled, c.searchID)
	ev.Progress = Progress{Position: c.done, Max: c.total}
	ev.Result = res
	c.events.send(ev)
	return true
}

// Close cancels any running search, closes the event channel and waits
// for the site tasks to return.
func (c *Coordinator) Close() {
	c.Cancel()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.rootCancel()
	c.events.close()
	c.mu.Unlock()
	c.wg.Wait()
}
