// file: internal/search/registration.go
// version: 1.1.0
// guid: 5e2d1c0b-4a39-4f28-8e17-6d5c4b3a2f10

package search

import (
	"context"
	"log"
)

// RegistrationAction is the user's answer to a registration prompt.
type RegistrationAction int

const (
	RegisterNow RegistrationAction = iota
	RegisterNotNow
	RegisterNotEver
	RegisterCancelled
)

func (a RegistrationAction) String() string {
	switch a {
	case RegisterNow:
		return "register"
	case RegisterNotNow:
		return "not-now"
	case RegisterNotEver:
		return "not-ever"
	default:
		return "cancelled"
	}
}

// RegistrationRequest describes the prompt to show.
type RegistrationRequest struct {
	Engine   EngineID
	Name     string
	SiteURL  string
	Required bool
	CallerID string
}

// Prompter is the UI hand-off used when an engine needs credentials.
type Prompter interface {
	PromptRegistration(ctx context.Context, req RegistrationRequest) RegistrationAction
}

// PromptFilter is optionally implemented by prompters that remember
// "never ask again" answers.
type PromptFilter interface {
	PromptHidden(engine EngineID, callerID string) bool
	HidePrompt(engine EngineID, callerID string) error
}

// ShowRegistration is the default prompt flow for Registrant engines. An
// optional prompt hidden by the user for this caller is skipped. A
// NotEver answer is remembered when allowed.
func ShowRegistration(ctx context.Context, e Engine, p Prompter, required bool, callerID string) (bool, RegistrationAction) {
	if p == nil {
		return false, RegisterCancelled
	}
	cfg := e.Config()
	filter, _ := p.(PromptFilter)
	if !required && callerID != "" && filter != nil && filter.PromptHidden(cfg.ID, callerID) {
		return false, RegisterNotNow
	}
	action := p.PromptRegistration(ctx, RegistrationRequest{
		Engine:   cfg.ID,
		Name:     Name(e),
		SiteURL:  cfg.HostURL,
		Required: required,
		CallerID: callerID,
	})
	if action == RegisterNotEver {
		if required || callerID == "" || filter == nil {
			// "never" is only offered for optional prompts
			action = RegisterNotNow
		} else if err := filter.HidePrompt(cfg.ID, callerID); err != nil {
			log.Printf("[WARN] registration: failed to store hidden prompt for %s: %v", cfg.ID, err)
		}
	}
	return true, action
}

// PromptToRegister walks the enabled sites and lets each unavailable
// Registrant engine prompt in turn. It returns the last action taken, or
// NotNow when nothing was shown.
func PromptToRegister(ctx context.Context, registry *Registry, sites []Site, p Prompter, callerID string) RegistrationAction {
	var engines []Engine
	for _, site := range FilterEnabled(sites) {
		if e, ok := registry.Engine(site.Engine); ok && !e.IsAvailable() {
			engines = append(engines, e)
		}
	}
	return promptEngines(ctx, engines, p, false, callerID)
}

// promptEngines shows the registration prompt of each Registrant in turn.
// NotNow and NotEver continue with the next engine; Register and Cancelled
// stop.
func promptEngines(ctx context.Context, engines []Engine, p Prompter, required bool, callerID string) RegistrationAction {
	last := RegisterNotNow
	if p == nil {
		return last
	}
	for _, e := range engines {
		r, ok := e.(Registrant)
		if !ok {
			continue
		}
		shown, action := r.PromptToRegister(ctx, p, required, callerID)
		if !shown {
			continue
		}
		log.Printf("[INFO] registration: prompt for %s answered %s", e.Config().ID, action)
		last = action
		if action == RegisterNow || action == RegisterCancelled {
			return action
		}
	}
	return last
}
