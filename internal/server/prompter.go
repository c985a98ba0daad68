// file: internal/server/prompter.go
// version: 1.1.0
// guid: 9e0f1a2b-3c4d-4e5f-8a6b-7c8d9e0f1a2b

package server

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/jdfalk/book-search/internal/realtime"
	"github.com/jdfalk/book-search/internal/search"
)

// sessionPrompter forwards registration prompts to the SSE clients of one
// session. HTTP clients cannot answer inline, so every prompt resolves to
// "not now" and the search continues without the engine.
type sessionPrompter struct {
	sessionID string
	hub       *realtime.EventHub
	filter    search.PromptFilter
	shown     atomic.Int32
}

func (p *sessionPrompter) PromptRegistration(_ context.Context, req search.RegistrationRequest) search.RegistrationAction {
	log.Printf("[INFO] session %s: %s needs registration (required=%v)", p.sessionID, req.Name, req.Required)
	p.shown.Add(1)
	if p.hub != nil {
		p.hub.SendRegistrationRequest(p.sessionID, req)
	}
	return search.RegisterNotNow
}

func (p *sessionPrompter) PromptHidden(engine search.EngineID, callerID string) bool {
	if p.filter == nil {
		return false
	}
	return p.filter.PromptHidden(engine, callerID)
}

func (p *sessionPrompter) HidePrompt(engine search.EngineID, callerID string) error {
	if p.filter == nil {
		return nil
	}
	return p.filter.HidePrompt(engine, callerID)
}
