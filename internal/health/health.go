// internal/health/health.go
// Package health runs staged diagnostics over the application's moving
// parts: configuration, corpus, index snapshot, history store, and the
// provider endpoint. Checks are read-only except the optional live
// embedding round trip.
package health

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/mwiater/dossier/internal/appconfig"
	"github.com/mwiater/dossier/internal/corpus"
	"github.com/mwiater/dossier/internal/history"
	"github.com/mwiater/dossier/internal/index"
	"github.com/mwiater/dossier/internal/providerfactory"
)

// Options selects optional checks.
type Options struct {
	// Live adds a real embedding round trip against the configured provider.
	Live bool
}

// Result is one check's outcome.
type Result struct {
	Name   string
	OK     bool
	Detail string
}

// Run executes every check in order and returns all results; it never stops
// early, so one broken stage does not hide the state of the others.
func Run(ctx context.Context, cfg *appconfig.Config, opts Options) []Result {
	results := []Result{
		checkConfig(cfg),
		checkCorpus(cfg),
		checkIndex(cfg),
		checkHistory(cfg),
		checkProviderURL(cfg),
	}
	if opts.Live {
		results = append(results, checkEmbedding(ctx, cfg))
	}
	return results
}

// AllOK reports whether every result passed.
func AllOK(results []Result) bool {
	for _, result := range results {
		if !result.OK {
			return false
		}
	}
	return true
}

func checkConfig(cfg *appconfig.Config) Result {
	name := "config"
	if cfg.ConfigPath == "" {
		return Result{Name: name, OK: true, Detail: "no file loaded, using built-in defaults"}
	}
	if _, err := appconfig.Load(cfg.ConfigPath); err != nil {
		return Result{Name: name, OK: false, Detail: err.Error()}
	}
	return Result{Name: name, OK: true, Detail: fmt.Sprintf("%s parses and validates", cfg.ConfigPath)}
}

func checkCorpus(cfg *appconfig.Config) Result {
	name := "corpus"
	records, err := corpus.Load(cfg.CorpusFilePath())
	if err != nil {
		return Result{Name: name, OK: false, Detail: err.Error()}
	}
	if len(records) == 0 {
		return Result{Name: name, OK: false, Detail: fmt.Sprintf("%s has a header but no records", cfg.CorpusFilePath())}
	}
	return Result{Name: name, OK: true, Detail: fmt.Sprintf("%d records in %s", len(records), cfg.CorpusFilePath())}
}

func checkIndex(cfg *appconfig.Config) Result {
	name := "index"
	ix, err := index.Load(cfg.IndexFilePath())
	if errors.Is(err, index.ErrNotFound) {
		return Result{Name: name, OK: false, Detail: fmt.Sprintf("no snapshot at %s (run: dossier index build)", cfg.IndexFilePath())}
	}
	if err != nil {
		return Result{Name: name, OK: false, Detail: err.Error()}
	}
	return Result{Name: name, OK: true, Detail: fmt.Sprintf("%d entries, %d dimensions", ix.Len(), ix.Dimension())}
}

func checkHistory(cfg *appconfig.Config) Result {
	name := "history"
	store, err := history.Open(cfg.HistoryFilePath())
	if err != nil {
		return Result{Name: name, OK: false, Detail: err.Error()}
	}
	store.Close()
	return Result{Name: name, OK: true, Detail: fmt.Sprintf("store opens at %s", cfg.HistoryFilePath())}
}

func checkProviderURL(cfg *appconfig.Config) Result {
	name := "provider"
	base := cfg.OpenAIBase()
	if cfg.ProviderName() == "ollama" {
		base = cfg.OllamaHostURL()
	}

	parsed, err := url.Parse(base)
	if err != nil {
		return Result{Name: name, OK: false, Detail: fmt.Sprintf("%s base URL %q: %v", cfg.ProviderName(), base, err)}
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return Result{Name: name, OK: false, Detail: fmt.Sprintf("%s base URL %q is not an http(s) URL", cfg.ProviderName(), base)}
	}
	return Result{Name: name, OK: true, Detail: fmt.Sprintf("%s at %s", cfg.ProviderName(), base)}
}

func checkEmbedding(ctx context.Context, cfg *appconfig.Config) Result {
	name := "embedding"
	embedder, err := providerfactory.NewEmbedder(cfg)
	if err != nil {
		return Result{Name: name, OK: false, Detail: err.Error()}
	}

	start := time.Now()
	vectors, err := embedder.Embed(ctx, []string{"health check"})
	if err != nil {
		return Result{Name: name, OK: false, Detail: err.Error()}
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return Result{Name: name, OK: false, Detail: "provider returned no usable vector"}
	}
	return Result{Name: name, OK: true, Detail: fmt.Sprintf("%d-dimensional vector in %dms", len(vectors[0]), time.Since(start).Milliseconds())}
}
