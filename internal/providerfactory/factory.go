// internal/providerfactory/factory.go
package providerfactory

import (
	"fmt"

	"github.com/mwiater/dossier/internal/appconfig"
	"github.com/mwiater/dossier/internal/logging"
	"github.com/mwiater/dossier/internal/providers"
	"github.com/mwiater/dossier/internal/providers/ollama"
	"github.com/mwiater/dossier/internal/providers/openai"
	"github.com/mwiater/dossier/internal/providers/resilience"
)

// NewEmbedder selects the embedding implementation named by the configuration
// and wraps it in the full protection chain: rate limiter, then circuit
// breaker, then bounded retry (outermost).
func NewEmbedder(cfg *appconfig.Config) (providers.Embedder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}

	base, err := baseProviders(cfg)
	if err != nil {
		return nil, err
	}
	logging.LogEvent("Embedder ready: %s (%s)", base.embedder.Name(), cfg.EmbedModelName())

	var embedder providers.Embedder = base.embedder
	embedder = resilience.NewRateLimitedEmbedder(embedder, cfg)
	embedder = resilience.NewBreakerEmbedder(embedder, cfg)
	embedder = resilience.NewRetryEmbedder(embedder, cfg)
	return embedder, nil
}

// NewGenerator selects the generation implementation named by the
// configuration and wraps it with bounded retry.
func NewGenerator(cfg *appconfig.Config) (providers.Generator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config provided to provider factory")
	}

	base, err := baseProviders(cfg)
	if err != nil {
		return nil, err
	}
	logging.LogEvent("Generator ready: %s (%s)", base.generator.Name(), cfg.ChatModelName())

	return resilience.NewRetryGenerator(base.generator, cfg), nil
}

type basePair struct {
	embedder  providers.Embedder
	generator providers.Generator
}

func baseProviders(cfg *appconfig.Config) (basePair, error) {
	switch cfg.ProviderName() {
	case "openai":
		p := openai.New(cfg)
		return basePair{embedder: p, generator: p}, nil
	case "ollama":
		p := ollama.New(cfg)
		return basePair{embedder: p, generator: p}, nil
	default:
		return basePair{}, fmt.Errorf("unknown provider %q", cfg.ProviderName())
	}
}
