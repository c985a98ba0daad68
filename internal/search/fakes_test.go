// file: internal/search/fakes_test.go
// version: 1.0.0
// guid: 0c6e4a2d-8f17-4b39-a5d0-7e3b91f2c648

package search

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeCall struct {
	mode  string
	query string
}

// fakeEngine is a scripted engine. Wrapper types below decide which
// facets it exposes.
type fakeEngine struct {
	cfg       EngineConfig
	available bool
	data      BookData
	err       error
	respond   func(mode, query string) (BookData, error)
	// block, when set, holds every call until closed.
	block     chan struct{}
	ignoreCtx bool

	mu    sync.Mutex
	calls []fakeCall
}

func newFake(id string) *fakeEngine {
	return &fakeEngine{
		cfg:       EngineConfig{ID: EngineID(id), Name: "Site " + id, HostURL: "https://" + id + ".example"},
		available: true,
	}
}

func (f *fakeEngine) Config() *EngineConfig { return &f.cfg }
func (f *fakeEngine) IsAvailable() bool     { return f.available }

func (f *fakeEngine) do(ctx context.Context, mode, query string) (BookData, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{mode: mode, query: query})
	f.mu.Unlock()
	if f.block != nil {
		if f.ignoreCtx {
			<-f.block
		} else {
			select {
			case <-f.block:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if f.respond != nil {
		return f.respond(mode, query)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.data.Clone(), nil
}

func (f *fakeEngine) Calls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// textSite only supports free-text search.
type textSite struct{ *fakeEngine }

func (s textSite) Search(ctx context.Context, q TextQuery, _ Covers) (BookData, error) {
	return s.do(ctx, "text", q.Author+"/"+q.Title)
}

// isbnSite supports ISBN and free-text search.
type isbnSite struct{ *fakeEngine }

func (s isbnSite) SearchByISBN(ctx context.Context, code string, _ Covers) (BookData, error) {
	return s.do(ctx, "isbn", code)
}

func (s isbnSite) Search(ctx context.Context, q TextQuery, _ Covers) (BookData, error) {
	return s.do(ctx, "text", q.Author+"/"+q.Title)
}

// fullSite supports every facet and needs registration when unavailable.
type fullSite struct{ *fakeEngine }

func (s fullSite) CreateURL(id string) string { return s.cfg.HostURL + "/book/" + id }

func (s fullSite) SearchByExternalID(ctx context.Context, id string, _ Covers) (BookData, error) {
	return s.do(ctx, "external", id)
}

func (s fullSite) SearchByNativeID(ctx context.Context, id string, _ Covers) (BookData, error) {
	return s.do(ctx, "native", id)
}

func (s fullSite) SearchByISBN(ctx context.Context, code string, _ Covers) (BookData, error) {
	return s.do(ctx, "isbn", code)
}

func (s fullSite) SearchByBarcode(ctx context.Context, code string, _ Covers) (BookData, error) {
	return s.do(ctx, "barcode", code)
}

func (s fullSite) Search(ctx context.Context, q TextQuery, _ Covers) (BookData, error) {
	return s.do(ctx, "text", q.Author+"/"+q.Title)
}

func (s fullSite) PromptToRegister(ctx context.Context, p Prompter, required bool, callerID string) (bool, RegistrationAction) {
	return ShowRegistration(ctx, s, p, required, callerID)
}

// recordingPrompter answers every prompt with action.
type recordingPrompter struct {
	mu       sync.Mutex
	action   RegistrationAction
	requests []RegistrationRequest
	hidden   map[EngineID]bool
}

func (p *recordingPrompter) PromptRegistration(_ context.Context, req RegistrationRequest) RegistrationAction {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	return p.action
}

func (p *recordingPrompter) PromptHidden(engine EngineID, _ string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hidden[engine]
}

func (p *recordingPrompter) HidePrompt(engine EngineID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hidden == nil {
		p.hidden = make(map[EngineID]bool)
	}
	p.hidden[engine] = true
	return nil
}

func (p *recordingPrompter) Requests() []RegistrationRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]RegistrationRequest(nil), p.requests...)
}

func newTestCoordinator(t *testing.T, opts Options, engines ...Engine) *Coordinator {
	t.Helper()
	reg := NewRegistry()
	for _, e := range engines {
		reg.Register(e, true)
	}
	opts.Registry = reg
	c := NewCoordinator(opts)
	t.Cleanup(c.Close)
	return c
}

// waitTerminal reads events until a Finished or Cancelled event arrives.
func waitTerminal(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatal("event channel closed before terminal event")
			}
			if ev.IsTerminal() {
				return ev
			}
		case <-timeout:
			t.Fatal("timed out waiting for terminal event")
		}
	}
}
