// internal/compose/compose_test.go
package compose

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mwiater/dossier/internal/corpus"
	"github.com/mwiater/dossier/internal/index"
	"github.com/mwiater/dossier/internal/persona"
	"github.com/mwiater/dossier/internal/providers"
)

type scriptedGenerator struct {
	reply  string
	err    error
	system string
	user   string
	calls  int
}

func (s *scriptedGenerator) Name() string { return "scripted" }

func (s *scriptedGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	s.calls++
	s.system = system
	s.user = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func match(id int, question, answer string, score float64) index.Result {
	return index.Result{
		Record: corpus.Record{ID: id, Question: question, Answer: answer},
		Score:  score,
	}
}

func TestBuildTagsAndOrdersSources(t *testing.T) {
	t.Parallel()

	composer := New(&scriptedGenerator{}, 0)
	matches := []index.Result{
		match(3, "best question", "best answer", 0.95),
		match(1, "second question", "second answer", 0.80),
	}

	prompt := composer.Build(persona.Developer, "what do you do?", matches)

	if !strings.Contains(prompt.System, persona.Developer.Directive()) {
		t.Error("system prompt is missing the persona directive")
	}
	first := strings.Index(prompt.User, "[source:3]")
	second := strings.Index(prompt.User, "[source:1]")
	if first < 0 || second < 0 {
		t.Fatalf("context block is missing source tags:\n%s", prompt.User)
	}
	if first > second {
		t.Error("best match should appear before the weaker one")
	}
	if len(prompt.Sources) != 2 || prompt.Sources[0] != 3 || prompt.Sources[1] != 1 {
		t.Errorf("unexpected sources %v", prompt.Sources)
	}
	if !strings.Contains(prompt.User, "what do you do?") {
		t.Error("user prompt is missing the question")
	}
}

func TestBuildTrimsWeakestMatchesFirst(t *testing.T) {
	t.Parallel()

	composer := New(&scriptedGenerator{}, 0)
	question := "the question"
	matches := []index.Result{
		match(1, "q1", strings.Repeat("a", 50), 0.9),
		match(2, "q2", strings.Repeat("b", 50), 0.8),
	}

	line1 := fmt.Sprintf("[source:%d] Q: %s A: %s", 1, "q1", strings.Repeat("a", 50))
	system := systemPrompt + "\n" + persona.Default.Directive()
	overhead := utf8.RuneCountInString(system) + utf8.RuneCountInString(userScaffold("", question))

	// Room for the first record line and its newline, and nothing more.
	composer = New(&scriptedGenerator{}, overhead+utf8.RuneCountInString(line1)+1)
	prompt := composer.Build(persona.Default, question, matches)

	if len(prompt.Sources) != 1 || prompt.Sources[0] != 1 {
		t.Fatalf("expected only record 1 to survive the budget, got %v", prompt.Sources)
	}
	if strings.Contains(prompt.User, "[source:2]") || strings.Contains(prompt.User, "bbb") {
		t.Error("record 2 should be dropped whole, not partially included")
	}
	if !strings.Contains(prompt.User, line1) {
		t.Error("record 1 should be present untouched")
	}
}

func TestBuildZeroBudgetDisablesTrimming(t *testing.T) {
	t.Parallel()

	composer := New(&scriptedGenerator{}, 0)
	matches := []index.Result{
		match(1, "q1", strings.Repeat("x", 10_000), 0.9),
		match(2, "q2", strings.Repeat("y", 10_000), 0.8),
	}

	prompt := composer.Build(persona.Default, "q", matches)
	if len(prompt.Sources) != 2 {
		t.Errorf("budget 0 should keep everything, got %v", prompt.Sources)
	}
}

func TestBuildWithNoMatches(t *testing.T) {
	t.Parallel()

	composer := New(&scriptedGenerator{}, 0)
	prompt := composer.Build(persona.Default, "anything at all?", nil)

	if len(prompt.Sources) != 0 {
		t.Errorf("expected no sources, got %v", prompt.Sources)
	}
	if !strings.Contains(prompt.User, noMatchNotice) {
		t.Errorf("empty context should carry the no-match notice:\n%s", prompt.User)
	}
}

func TestGeneratePassesPromptThrough(t *testing.T) {
	t.Parallel()

	generator := &scriptedGenerator{reply: "  a fine answer  "}
	composer := New(generator, 0)
	prompt := composer.Build(persona.Default, "q", []index.Result{match(1, "q1", "a1", 0.9)})

	answer, err := composer.Generate(context.Background(), prompt)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if answer != "a fine answer" {
		t.Errorf("answer should be trimmed, got %q", answer)
	}
	if generator.calls != 1 {
		t.Errorf("expected exactly one generation call, got %d", generator.calls)
	}
	if generator.system != prompt.System || generator.user != prompt.User {
		t.Error("generator did not receive the assembled prompt")
	}
}

func TestGenerateWrapsProviderFailure(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("boom: %w", providers.ErrProvider)
	composer := New(&scriptedGenerator{err: cause}, 0)

	_, err := composer.Generate(context.Background(), Prompt{System: "s", User: "u"})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if !errors.Is(err, providers.ErrProvider) {
		t.Errorf("the provider cause should stay on the chain, got %v", err)
	}
}

func TestGenerateRejectsBlankCompletion(t *testing.T) {
	t.Parallel()

	composer := New(&scriptedGenerator{reply: "   \n\t  "}, 0)

	_, err := composer.Generate(context.Background(), Prompt{System: "s", User: "u"})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed for a blank completion, got %v", err)
	}
}
