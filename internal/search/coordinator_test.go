// file: internal/search/coordinator_test.go
// version: 1.1.0
// guid: 5b9f3d71-2a6c-4e08-b4d3-c1e7a90f6b25

package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchRejectedWhileActive(t *testing.T) {
	alpha := newFake("alpha")
	alpha.block = make(chan struct{})
	alpha.data = BookData{KeyTitle: "Dune"}
	c := newTestCoordinator(t, Options{}, fullSite{alpha})
	events := c.Subscribe()

	c.SetTitle("Dune")
	require.True(t, c.Search())
	assert.True(t, c.IsSearchActive())

	assert.False(t, c.Search())
	assert.False(t, c.SearchByExternalID("alpha", "42"))
	assert.False(t, c.SearchByNativeID("alpha", "42"))
	assert.ErrorIs(t, c.TrySearch(), ErrSearchActive)

	close(alpha.block)
	ev := waitTerminal(t, events)
	assert.Equal(t, EventFinished, ev.Kind)
	assert.Len(t, alpha.Calls(), 1)
	assert.False(t, c.IsSearchActive())
	assert.Equal(t, StateFinished, c.State())
}

func TestSearchEmptyCriteria(t *testing.T) {
	c := newTestCoordinator(t, Options{}, textSite{newFake("alpha")})
	c.SetPublisher("Ace")
	c.SetKeywords("sand")
	assert.ErrorIs(t, c.TrySearch(), ErrEmptyCriteria)
	assert.Equal(t, StateIdle, c.State())
}

func TestSearchNoNetwork(t *testing.T) {
	alpha := newFake("alpha")
	c := newTestCoordinator(t, Options{Network: func(context.Context) bool { return false }}, fullSite{alpha})
	c.SetTitle("Dune")
	assert.ErrorIs(t, c.TrySearch(), ErrNoNetwork)
	assert.ErrorIs(t, c.TrySearchByExternalID("alpha", "1"), ErrNoNetwork)
	assert.Empty(t, alpha.Calls())
	assert.Equal(t, StateIdle, c.State())
}

func TestSearchByExternalIDStartsOneTask(t *testing.T) {
	alpha := newFake("alpha")
	alpha.data = BookData{KeyTitle: "Dune", KeyISBN: "9780441013593"}
	beta := newFake("beta")
	c := newTestCoordinator(t, Options{}, fullSite{alpha}, fullSite{beta})
	c.SetTitle("ignored")
	events := c.Subscribe()

	require.True(t, c.SearchByExternalID("alpha", "OL123M"))
	ev := waitTerminal(t, events)

	require.Equal(t, EventFinished, ev.Kind)
	assert.Equal(t, []fakeCall{{mode: "external", query: "OL123M"}}, alpha.Calls())
	assert.Empty(t, beta.Calls())
	assert.True(t, ev.Result.IsMatch())
	assert.Equal(t, "Dune", ev.Result.Data.String(KeyTitle))

	cr := c.Criteria()
	assert.Empty(t, cr.Title, "criteria are cleared before an id search")
	assert.Equal(t, map[EngineID]string{"alpha": "OL123M"}, cr.ExternalIDs)
}

func TestSearchByIDValidation(t *testing.T) {
	text := textSite{newFake("text")}
	c := newTestCoordinator(t, Options{}, text)

	assert.ErrorIs(t, c.TrySearchByExternalID("text", "  "), ErrEmptyID)
	assert.ErrorIs(t, c.TrySearchByExternalID("missing", "1"), ErrUnknownEngine)
	assert.ErrorIs(t, c.TrySearchByExternalID("text", "1"), ErrUnsupported)
	assert.ErrorIs(t, c.TrySearchByNativeID("text", "1"), ErrUnsupported)
	assert.Equal(t, StateIdle, c.State())
}

func TestSearchByNativeID(t *testing.T) {
	alpha := newFake("alpha")
	alpha.data = BookData{KeyTitle: "Hyperion"}
	c := newTestCoordinator(t, Options{}, fullSite{alpha})
	events := c.Subscribe()

	require.NoError(t, c.TrySearchByNativeID("alpha", "vol-9"))
	ev := waitTerminal(t, events)
	assert.Equal(t, []fakeCall{{mode: "native", query: "vol-9"}}, alpha.Calls())
	assert.Equal(t, "Hyperion", ev.Result.Data.String(KeyTitle))
}

func TestCancelSuppressesFinished(t *testing.T) {
	alpha := newFake("alpha")
	alpha.block = make(chan struct{})
	alpha.ignoreCtx = true
	alpha.data = BookData{KeyTitle: "Late"}
	beta := newFake("beta")
	beta.data = BookData{KeyAuthorList: []string{"Frank Herbert"}}

	c := newTestCoordinator(t, Options{}, textSite{alpha}, isbnSite{beta})
	events := c.Subscribe()
	c.SetISBN("9780441013593")
	require.True(t, c.Search())

	// wait for beta so the cancelled result has partial data
	require.Eventually(t, func() bool { return len(beta.Calls()) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		_, ok := c.results["beta"]
		return ok
	}, time.Second, 5*time.Millisecond)

	assert.True(t, c.Cancel())
	assert.Equal(t, StateCancelled, c.State())
	assert.False(t, c.Cancel(), "second cancel is a no-op")

	ev := waitTerminal(t, events)
	require.Equal(t, EventCancelled, ev.Kind)
	assert.True(t, ev.Result.Cancelled)
	assert.Equal(t, []string{"Frank Herbert"}, ev.Result.Data.List(KeyAuthorList))

	close(alpha.block)
	select {
	case ev, ok := <-events:
		if ok {
			assert.NotEqual(t, EventFinished, ev.Kind, "no Finished event after cancel")
		}
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, StateCancelled, c.State())
	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, EventCancelled, last.Kind)
}

func TestCancelWhenIdle(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	assert.False(t, c.Cancel())
	assert.Equal(t, StateIdle, c.State())
}

func TestClearSearchCriteriaKeepsBookIDs(t *testing.T) {
	c := newTestCoordinator(t, Options{})
	c.SetISBN("0441013597")
	c.SetAuthor("Herbert")
	c.SetTitle("Dune")
	c.SetPublisher("Ace")
	c.SetKeywords("spice")
	c.SetExternalID("alpha", "OL1M")
	c.SetBookIDs([]int64{3, 5, 8})

	c.ClearSearchCriteria()

	cr := c.Criteria()
	assert.True(t, cr.IsEmpty())
	assert.Empty(t, cr.ISBN)
	assert.Empty(t, cr.Author)
	assert.Empty(t, cr.Title)
	assert.Empty(t, cr.Publisher)
	assert.Empty(t, cr.Keywords)
	assert.Empty(t, cr.ExternalIDs)
	assert.Equal(t, []int64{3, 5, 8}, cr.BookIDs)
}

func TestSearchMergesUnionInReliabilityOrder(t *testing.T) {
	alpha := newFake("alpha")
	alpha.data = BookData{KeyTitle: "Dune (alpha)", KeyPages: "412", KeyAuthorList: []string{"Frank Herbert"}}
	beta := newFake("beta")
	beta.data = BookData{KeyTitle: "Dune", KeyDescription: "Desert planet", KeyAuthorList: []string{"frank herbert", "Brian Herbert"}}

	acc := NewAccumulator([]EngineID{"beta", "alpha"})
	c := newTestCoordinator(t, Options{Accumulator: acc}, textSite{alpha}, textSite{beta})
	events := c.Subscribe()
	c.SetISBN("9780441013593")
	c.SetTitle("Dune")
	require.True(t, c.Search())

	ev := waitTerminal(t, events)
	data := ev.Result.Data
	assert.Equal(t, "Dune", data.String(KeyTitle), "more reliable site wins conflicts")
	assert.Equal(t, "412", data.String(KeyPages))
	assert.Equal(t, "Desert planet", data.String(KeyDescription))
	assert.Equal(t, []string{"frank herbert", "Brian Herbert"}, data.List(KeyAuthorList))
}

func TestUnavailableSiteIsPromptedNotQueried(t *testing.T) {
	locked := newFake("locked")
	locked.available = false
	open := newFake("open")
	open.data = BookData{KeyTitle: "Dune"}
	prompter := &recordingPrompter{action: RegisterNotNow}

	c := newTestCoordinator(t, Options{Prompter: prompter, CallerID: "search"}, fullSite{locked}, textSite{open})
	events := c.Subscribe()
	c.SetTitle("Dune")
	require.True(t, c.Search())
	ev := waitTerminal(t, events)

	assert.Empty(t, locked.Calls())
	assert.Len(t, open.Calls(), 1)
	assert.Equal(t, []EngineID{"locked"}, ev.Result.Registration)
	reqs := prompter.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, EngineID("locked"), reqs[0].Engine)
	assert.False(t, reqs[0].Required)
}

func TestSearchByExternalIDOnUnavailableEngine(t *testing.T) {
	locked := newFake("locked")
	locked.available = false
	prompter := &recordingPrompter{action: RegisterNotEver}
	c := newTestCoordinator(t, Options{Prompter: prompter, CallerID: "search"}, fullSite{locked})

	assert.False(t, c.SearchByExternalID("locked", "1"))
	assert.ErrorIs(t, c.TrySearchByExternalID("locked", "1"), ErrNotAvailable)
	assert.Empty(t, locked.Calls())
	assert.Equal(t, StateIdle, c.State())

	reqs := prompter.Requests()
	require.Len(t, reqs, 2, "required prompts are never hidden")
	assert.True(t, reqs[0].Required)
	assert.Empty(t, prompter.hidden)
}

func TestOnlyUnavailableSitesReturnsNotAvailable(t *testing.T) {
	locked := newFake("locked")
	locked.available = false
	c := newTestCoordinator(t, Options{}, fullSite{locked})
	c.SetTitle("Dune")
	assert.ErrorIs(t, c.TrySearch(), ErrNotAvailable)
	assert.Equal(t, StateIdle, c.State())
}

func TestTextSearchIsSequentialUntilISBN(t *testing.T) {
	first := newFake("first")
	first.data = BookData{KeyTitle: "Dune", KeyISBN: "978-0-306-40615-7"}
	second := newFake("second")
	second.respond = func(mode, query string) (BookData, error) {
		return BookData{KeyISBN: "9780306406157", KeyPages: "600"}, nil
	}
	third := newFake("third")
	third.data = BookData{KeyISBN: "9780000000002", KeyPages: "1"}
	fourth := newFake("fourth")
	fourth.data = BookData{KeyDescription: "text only"}

	c := newTestCoordinator(t, Options{}, textSite{first}, isbnSite{second}, isbnSite{third}, textSite{fourth})
	events := c.Subscribe()
	c.SetAuthor("Herbert")
	c.SetTitle("Dune")
	require.True(t, c.Search())
	ev := waitTerminal(t, events)

	assert.Equal(t, []fakeCall{{mode: "text", query: "Herbert/Dune"}}, first.Calls())
	assert.Equal(t, []fakeCall{{mode: "isbn", query: "9780306406157"}}, second.Calls())
	assert.Equal(t, []fakeCall{{mode: "isbn", query: "9780306406157"}}, third.Calls())
	assert.Equal(t, []fakeCall{{mode: "text", query: "Herbert/Dune"}}, fourth.Calls())

	data := ev.Result.Data
	assert.Equal(t, "9780306406157", data.String(KeyISBN))
	assert.Equal(t, "600", data.String(KeyPages), "site with another isbn is dropped")
	assert.Equal(t, "text only", data.String(KeyDescription))
}

func TestTextSearchWithoutISBNTriesEverySite(t *testing.T) {
	first := newFake("first")
	first.err = errors.New("boom")
	second := newFake("second")
	second.data = BookData{KeyTitle: "Dune"}

	c := newTestCoordinator(t, Options{}, textSite{first}, textSite{second})
	events := c.Subscribe()
	c.SetTitle("Dune")
	require.True(t, c.Search())
	ev := waitTerminal(t, events)

	assert.Len(t, first.Calls(), 1)
	assert.Len(t, second.Calls(), 1)
	assert.True(t, ev.Result.IsMatch())
	assert.Equal(t, "Site first: boom", ev.Result.ErrorText)
	assert.Equal(t, []EngineID{"first"}, ev.Result.FailedEngines())
	assert.False(t, ev.Result.Data.Has("error"))
}

func TestPrefersISBN10(t *testing.T) {
	alpha := newFake("alpha")
	alpha.cfg.PrefersISBN10 = true
	alpha.data = BookData{KeyTitle: "x"}
	c := newTestCoordinator(t, Options{}, isbnSite{alpha})
	events := c.Subscribe()
	c.SetISBN("9780306406157")
	require.True(t, c.Search())
	waitTerminal(t, events)
	assert.Equal(t, []fakeCall{{mode: "isbn", query: "0306406152"}}, alpha.Calls())
}

func TestBarcodeNeedsLooseISBN(t *testing.T) {
	alpha := newFake("alpha")
	alpha.data = BookData{KeyTitle: "x"}
	c := newTestCoordinator(t, Options{}, fullSite{alpha})
	events := c.Subscribe()

	// a UPC-A code is not an ISBN; strict checking turns it into a text search
	c.SetISBN("036000291452")
	require.True(t, c.Search())
	waitTerminal(t, events)
	assert.Equal(t, "text", alpha.Calls()[0].mode)

	c.SetStrictISBN(false)
	require.True(t, c.Search())
	waitTerminal(t, events)
	assert.Equal(t, fakeCall{mode: "barcode", query: "036000291452"}, alpha.Calls()[1])
}

func TestNoMatchResult(t *testing.T) {
	alpha := newFake("alpha")
	alpha.data = BookData{KeyPages: "10"}
	c := newTestCoordinator(t, Options{}, isbnSite{alpha})
	events := c.Subscribe()
	c.SetISBN("9780306406157")
	require.True(t, c.Search())
	ev := waitTerminal(t, events)
	assert.Equal(t, 2, ev.Result.Data.Len())
	assert.False(t, ev.Result.IsMatch())
}

func TestEmptySearchIsNotMatchedByCriteria(t *testing.T) {
	alpha := newFake("alpha")
	alpha.err = errors.New("boom")
	beta := newFake("beta")
	c := newTestCoordinator(t, Options{}, textSite{alpha}, textSite{beta})
	events := c.Subscribe()
	c.SetTitle("Dune")
	c.SetAuthor("Frank Herbert")
	require.True(t, c.Search())

	ev := waitTerminal(t, events)
	assert.False(t, ev.Result.Data.Has(KeyTitle), "criteria title is not copied into an empty result")
	assert.False(t, ev.Result.IsMatch())

	// Once any site answers, the title criterion fills the gap.
	beta.data = BookData{KeyPages: "412"}
	require.True(t, c.Search())
	ev = waitTerminal(t, events)
	assert.Equal(t, "Dune", ev.Result.Data.String(KeyTitle))
	assert.True(t, ev.Result.IsMatch())
}

func TestSiteListChangeAppliesToNextSearch(t *testing.T) {
	alpha := newFake("alpha")
	alpha.block = make(chan struct{})
	alpha.data = BookData{KeyTitle: "x"}
	beta := newFake("beta")
	beta.data = BookData{KeyTitle: "y"}
	c := newTestCoordinator(t, Options{}, textSite{alpha}, textSite{beta})
	c.SetSiteList([]Site{{Engine: "alpha", Type: SiteTypeData, Enabled: true}})
	events := c.Subscribe()

	c.SetTitle("x")
	require.True(t, c.Search())
	c.SetSiteList([]Site{{Engine: "beta", Type: SiteTypeData, Enabled: true}})
	close(alpha.block)
	ev := waitTerminal(t, events)
	assert.Equal(t, "x", ev.Result.Data.String(KeyTitle))
	assert.Empty(t, beta.Calls())

	require.True(t, c.Search())
	ev = waitTerminal(t, events)
	assert.Equal(t, "y", ev.Result.Data.String(KeyTitle))
	assert.Equal(t, []Site{{Engine: "beta", Type: SiteTypeData, Enabled: true}}, c.SiteList())
}

func TestSubscribeReplacesAndReplays(t *testing.T) {
	alpha := newFake("alpha")
	alpha.data = BookData{KeyTitle: "x"}
	c := newTestCoordinator(t, Options{}, textSite{alpha})

	first := c.Subscribe()
	c.SetTitle("x")
	require.True(t, c.Search())
	ev := waitTerminal(t, first)

	// recreated observer before handling: the terminal event is replayed
	second := c.Subscribe()
	_, open := <-first
	assert.False(t, open, "previous subscriber is closed")
	replayed := waitTerminal(t, second)
	assert.Equal(t, ev.SearchID, replayed.SearchID)
	assert.True(t, replayed.Consume())
	assert.False(t, ev.Consume(), "consumed once across copies")

	third := c.Subscribe()
	select {
	case e := <-third:
		t.Fatalf("consumed event replayed: %v", e.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseClosesEvents(t *testing.T) {
	c := NewCoordinator(Options{})
	events := c.Subscribe()
	c.Close()
	_, open := <-events
	assert.False(t, open)
	c.SetTitle("x")
	assert.ErrorIs(t, c.TrySearch(), ErrClosed)
	c.Close()
}

func TestProgressEvents(t *testing.T) {
	alpha := newFake("alpha")
	alpha.block = make(chan struct{})
	alpha.data = BookData{KeyTitle: "x"}
	c := newTestCoordinator(t, Options{BaseMessage: "Searching"}, isbnSite{alpha})
	events := c.Subscribe()
	c.SetISBN("9780306406157")
	require.True(t, c.Search())

	ev := <-events
	require.Equal(t, EventProgress, ev.Kind)
	assert.Equal(t, "Searching: Site alpha", ev.Progress.Text)
	assert.Equal(t, 0, ev.Progress.Position)
	assert.Equal(t, 1, ev.Progress.Max)
	close(alpha.block)
	assert.Equal(t, EventFinished, waitTerminal(t, events).Kind)
}
