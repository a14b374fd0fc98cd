// internal/compose/compose.go
// Package compose assembles the final prompt from retrieved records and runs
// the single generation call. Records that do not fit the character budget
// are dropped whole, lowest score first; a record is never split.
package compose

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mwiater/dossier/internal/index"
	"github.com/mwiater/dossier/internal/logging"
	"github.com/mwiater/dossier/internal/persona"
	"github.com/mwiater/dossier/internal/providers"
)

// ErrGenerationFailed indicates the generation call did not produce a usable
// answer. Unlike retrieval, there is no degraded fallback past this point.
var ErrGenerationFailed = errors.New("generation failed")

const systemPrompt = "You are Dossier, a portfolio assistant answering on behalf of the portfolio's subject. " +
	"Speak in the first person, as the subject. Ground every claim in the CONTEXT records when any are present. " +
	"If the records do not cover the question, say so plainly instead of inventing detail. " +
	"Keep answers under two hundred words."

const noMatchNotice = "(no records matched this question)"

// Prompt is a fully assembled generation request. Sources lists the corpus
// record IDs that made it into the CONTEXT block, best match first.
type Prompt struct {
	System  string
	User    string
	Sources []int
}

// Composer builds prompts and runs generations against one provider.
type Composer struct {
	generator providers.Generator
	budget    int // prompt budget, counted in runes
}

// New builds a Composer. budgetChars <= 0 disables trimming.
func New(generator providers.Generator, budgetChars int) *Composer {
	return &Composer{generator: generator, budget: budgetChars}
}

// Build assembles the system and user prompts for a question. matches must
// arrive best score first; trimming keeps a prefix of that order so the
// weakest matches are the first to go.
func (c *Composer) Build(p persona.Persona, question string, matches []index.Result) Prompt {
	system := systemPrompt + "\n" + p.Directive()

	lines := make([]string, 0, len(matches))
	sources := make([]int, 0, len(matches))

	available := -1
	if c.budget > 0 {
		overhead := utf8.RuneCountInString(system) + utf8.RuneCountInString(userScaffold("", question))
		available = c.budget - overhead
	}

	for _, match := range matches {
		line := fmt.Sprintf("[source:%d] Q: %s A: %s",
			match.Record.ID,
			strings.TrimSpace(match.Record.Question),
			strings.TrimSpace(match.Record.Answer))

		if available >= 0 {
			cost := utf8.RuneCountInString(line) + 1
			if cost > available {
				break
			}
			available -= cost
		}
		lines = append(lines, line)
		sources = append(sources, match.Record.ID)
	}

	if dropped := len(matches) - len(lines); dropped > 0 {
		logging.LogEvent("[COMPOSE] Budget %d dropped %d of %d matched records", c.budget, dropped, len(matches))
	}

	contextBlock := noMatchNotice
	if len(lines) > 0 {
		contextBlock = strings.Join(lines, "\n")
	}

	return Prompt{
		System:  system,
		User:    userScaffold(contextBlock, question),
		Sources: sources,
	}
}

// Generate runs the single generation call for an assembled prompt. Provider
// failures and blank completions both surface as ErrGenerationFailed.
func (c *Composer) Generate(ctx context.Context, prompt Prompt) (string, error) {
	answer, err := c.generator.Generate(ctx, prompt.System, prompt.User)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: provider returned an empty completion", ErrGenerationFailed)
	}
	return answer, nil
}

func userScaffold(contextBlock, question string) string {
	var b strings.Builder
	b.WriteString("Answer the question using only the records in the CONTEXT block. ")
	b.WriteString("If the block is empty or off topic, say that plainly.\n\n")
	b.WriteString("CONTEXT\n")
	b.WriteString(contextBlock)
	b.WriteString("\n\nQUESTION\n")
	b.WriteString(question)
	return b.String()
}
