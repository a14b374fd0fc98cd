// internal/persona/persona.go
// Package persona selects the audience the generated answers are written
// for. The set is closed: prompts are tuned per persona, so free-form
// values are rejected rather than silently passed through.
package persona

import (
	"fmt"
	"strings"
)

// Persona names an answer audience.
type Persona string

const (
	Visitor                Persona = "visitor"
	HiringManager          Persona = "hiring-manager"
	TechnicalHiringManager Persona = "technical-hiring-manager"
	Developer              Persona = "developer"
)

// Default is used whenever no persona is configured.
const Default = Visitor

// All returns the personas in display order.
func All() []Persona {
	return []Persona{Visitor, HiringManager, TechnicalHiringManager, Developer}
}

// Parse normalizes a user-supplied persona name. Empty input falls back to
// the default; anything outside the known set is an error.
func Parse(raw string) (Persona, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, " ", "-")
	normalized = strings.ReplaceAll(normalized, "_", "-")

	if normalized == "" {
		return Default, nil
	}
	for _, p := range All() {
		if normalized == string(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown persona %q (expected one of %s)", raw, strings.Join(Names(), ", "))
}

// Names returns the persona identifiers as plain strings, for help text.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = string(p)
	}
	return names
}

func (p Persona) String() string { return string(p) }

// Directive is the persona-specific instruction appended to the system
// prompt. It shapes tone and depth, never content.
func (p Persona) Directive() string {
	switch p {
	case HiringManager:
		return "You are speaking with a hiring manager. Emphasize impact, ownership, and outcomes. Keep technical detail light unless asked."
	case TechnicalHiringManager:
		return "You are speaking with a technical hiring manager. Balance outcomes with the key technical decisions behind them, and be ready to justify tradeoffs."
	case Developer:
		return "You are speaking with a fellow developer. Be precise and technical. Name the languages, tools, and tradeoffs directly."
	default:
		return "You are speaking with a casual visitor. Keep answers friendly, conversational, and free of jargon."
	}
}
