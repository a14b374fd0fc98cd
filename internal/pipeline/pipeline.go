// internal/pipeline/pipeline.go
// Package pipeline orchestrates one question through retrieval, prompt
// composition, and generation. It owns the index lifecycle: load or build
// once on first use, swap atomically on rebuild.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mwiater/dossier/internal/appconfig"
	"github.com/mwiater/dossier/internal/compose"
	"github.com/mwiater/dossier/internal/corpus"
	"github.com/mwiater/dossier/internal/history"
	"github.com/mwiater/dossier/internal/index"
	"github.com/mwiater/dossier/internal/logging"
	"github.com/mwiater/dossier/internal/persona"
	"github.com/mwiater/dossier/internal/providerfactory"
	"github.com/mwiater/dossier/internal/providers"
	"github.com/mwiater/dossier/internal/retrieve"
)

// ErrInvalidInput indicates a question that is rejected before any provider
// is contacted.
var ErrInvalidInput = errors.New("invalid input")

// AnswerRequest is one question. Persona overrides the configured default
// when set; SessionID groups chat turns in the history log.
type AnswerRequest struct {
	Question  string
	Persona   persona.Persona
	SessionID string
}

// AnswerResponse is the full result of one answered question. Sources lists
// the corpus record IDs that were actually present in the prompt.
type AnswerResponse struct {
	AnswerText string `json:"answer_text"`
	Sources    []int  `json:"sources"`
	Persona    string `json:"persona"`
	Degraded   bool   `json:"degraded"`
	ElapsedMS  int64  `json:"elapsed_ms"`
}

// Pipeline wires the retriever and composer over a shared index. Safe for
// concurrent use; Answer takes the index pointer under a read lock and
// Rebuild swaps it under the write lock.
type Pipeline struct {
	cfg       *appconfig.Config
	embedder  providers.Embedder
	retriever *retrieve.Retriever
	composer  *compose.Composer
	log       *history.Store

	mu sync.RWMutex
	ix *index.Index

	buildMu sync.Mutex
}

// New assembles a pipeline from configuration, building the providers
// through the factory so they carry the resilience decorators.
func New(cfg *appconfig.Config) (*Pipeline, error) {
	embedder, err := providerfactory.NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	generator, err := providerfactory.NewGenerator(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithProviders(cfg, embedder, generator), nil
}

// NewWithProviders assembles a pipeline around explicit provider
// implementations. Exposed for tests and health probes.
func NewWithProviders(cfg *appconfig.Config, embedder providers.Embedder, generator providers.Generator) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		embedder:  embedder,
		retriever: retrieve.New(embedder, cfg.TopK(), cfg.MinScore(), cfg.EmbedCacheSize()),
		composer:  compose.New(generator, cfg.PromptBudgetChars()),
	}
}

// SetHistory attaches an interaction log. A nil store disables recording.
func (p *Pipeline) SetHistory(store *history.Store) { p.log = store }

// Ready reports whether an index is loaded.
func (p *Pipeline) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ix != nil
}

// IndexStats returns the live index's entry count and dimension, or ok=false
// before the first load.
func (p *Pipeline) IndexStats() (entries, dimension int, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.ix == nil {
		return 0, 0, false
	}
	return p.ix.Len(), p.ix.Dimension(), true
}

// EnsureReady loads the index snapshot, building and saving one from the
// corpus when no snapshot exists. It runs the expensive path at most once
// per process; concurrent callers wait for the first to finish.
func (p *Pipeline) EnsureReady(ctx context.Context) error {
	if p.Ready() {
		return nil
	}

	p.buildMu.Lock()
	defer p.buildMu.Unlock()
	if p.Ready() {
		return nil
	}

	ix, err := p.loadOrBuild(ctx)
	if err != nil {
		return err
	}
	p.swap(ix)
	return nil
}

// Answer runs one question through the full pipeline. A degraded response
// (retrieval unavailable, answer generated without context) is a success;
// generation failure is not.
func (p *Pipeline) Answer(ctx context.Context, req AnswerRequest) (*AnswerResponse, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", ErrInvalidInput)
	}

	if err := p.EnsureReady(ctx); err != nil {
		return nil, err
	}

	who := req.Persona
	if who == "" {
		parsed, err := persona.Parse(p.cfg.PersonaTag())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		who = parsed
	}

	p.mu.RLock()
	ix := p.ix
	p.mu.RUnlock()

	start := time.Now()
	degraded := false

	matches, err := p.retriever.Retrieve(ctx, ix, question)
	if err != nil {
		if !errors.Is(err, retrieve.ErrUnavailable) {
			return nil, err
		}
		logging.LogEvent("[PIPELINE] Retrieval unavailable, answering without context: %v", err)
		degraded = true
		matches = nil
	}

	prompt := p.composer.Build(who, question, matches)
	answer, err := p.composer.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	response := &AnswerResponse{
		AnswerText: answer,
		Sources:    prompt.Sources,
		Persona:    who.String(),
		Degraded:   degraded,
		ElapsedMS:  time.Since(start).Milliseconds(),
	}
	p.record(ctx, req.SessionID, question, response)
	return response, nil
}

// Rebuild loads a fresh corpus, builds and saves a new index, and swaps it
// in. Readers keep the previous index until the swap. Returns the number of
// records indexed.
func (p *Pipeline) Rebuild(ctx context.Context) (int, error) {
	p.buildMu.Lock()
	defer p.buildMu.Unlock()

	ix, err := p.buildFromCorpus(ctx)
	if err != nil {
		return 0, err
	}
	p.swap(ix)
	logging.LogEvent("[PIPELINE] Rebuilt index: %d entries, %d dimensions", ix.Len(), ix.Dimension())
	return ix.Len(), nil
}

func (p *Pipeline) loadOrBuild(ctx context.Context) (*index.Index, error) {
	ix, err := index.Load(p.cfg.IndexFilePath())
	if err == nil {
		logging.LogEvent("[PIPELINE] Loaded index snapshot %q: %d entries, %d dimensions", p.cfg.IndexFilePath(), ix.Len(), ix.Dimension())
		return ix, nil
	}
	if !errors.Is(err, index.ErrNotFound) {
		return nil, err
	}
	logging.LogEvent("[PIPELINE] No index snapshot at %q, building from corpus", p.cfg.IndexFilePath())
	return p.buildFromCorpus(ctx)
}

func (p *Pipeline) buildFromCorpus(ctx context.Context) (*index.Index, error) {
	records, err := corpus.Load(p.cfg.CorpusFilePath())
	if err != nil {
		return nil, err
	}
	ix, err := index.Build(ctx, p.embedder, records, p.cfg.EmbedBatchSize())
	if err != nil {
		return nil, err
	}
	if err := ix.Save(p.cfg.IndexFilePath()); err != nil {
		return nil, err
	}
	return ix, nil
}

func (p *Pipeline) swap(ix *index.Index) {
	p.mu.Lock()
	p.ix = ix
	p.mu.Unlock()
}

// record appends to the history log. Failures are logged and swallowed; an
// answered question is never failed by bookkeeping.
func (p *Pipeline) record(ctx context.Context, sessionID, question string, response *AnswerResponse) {
	if p.log == nil {
		return
	}
	_, err := p.log.Record(ctx, history.Interaction{
		SessionID: sessionID,
		Persona:   response.Persona,
		Question:  question,
		Answer:    response.AnswerText,
		Sources:   response.Sources,
		Model:     p.cfg.ChatModelName(),
		Degraded:  response.Degraded,
		ElapsedMS: response.ElapsedMS,
	})
	if err != nil {
		logging.LogEvent("[PIPELINE] Could not record interaction: %v", err)
	}
}
