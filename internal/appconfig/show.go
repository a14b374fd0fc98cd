// internal/appconfig/show.go
package appconfig

import (
	"fmt"
	"io"
	"os"
)

// ShowConfig prints a resolved configuration summary: where the config came
// from and the values the pipeline will actually use, including defaults for
// anything left unset. The provider API key itself is never printed, only
// whether its environment variable is set.
func ShowConfig(out io.Writer, cfg *Config) {
	if cfg == nil {
		cfg = &Config{}
	}

	if cfg.ConfigPath == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n", cfg.ConfigPath)
	}

	fmt.Fprintln(out, "\nResolved configuration:")
	fmt.Fprintf(out, "  Provider:      %s\n", cfg.ProviderName())
	if cfg.ProviderName() == "ollama" {
		fmt.Fprintf(out, "  Ollama host:   %s\n", cfg.OllamaHostURL())
	} else {
		fmt.Fprintf(out, "  OpenAI base:   %s\n", cfg.OpenAIBase())
	}
	fmt.Fprintf(out, "  Embed model:   %s\n", cfg.EmbedModelName())
	fmt.Fprintf(out, "  Chat model:    %s\n", cfg.ChatModelName())
	fmt.Fprintf(out, "  Temperature:   %.2f\n", cfg.GenTemperature())
	fmt.Fprintf(out, "  Corpus:        %s\n", cfg.CorpusFilePath())
	fmt.Fprintf(out, "  Index:         %s\n", cfg.IndexFilePath())
	fmt.Fprintf(out, "  History:       %s\n", cfg.HistoryFilePath())
	fmt.Fprintf(out, "  Log file:      %s\n", cfg.LogFilePath())
	fmt.Fprintf(out, "  Persona:       %s\n", cfg.PersonaTag())
	fmt.Fprintf(out, "  Top-K:         %d\n", cfg.TopK())
	fmt.Fprintf(out, "  Min score:     %.2f\n", cfg.MinScore())
	fmt.Fprintf(out, "  Prompt budget: %d runes\n", cfg.PromptBudgetChars())
	fmt.Fprintf(out, "  Embed batch:   %d\n", cfg.EmbedBatchSize())
	fmt.Fprintf(out, "  Debug:         %v\n", cfg.Debug)

	keyState := "not set"
	if os.Getenv(cfg.KeyEnvName()) != "" {
		keyState = "set"
	}
	fmt.Fprintf(out, "  %s: %s\n", cfg.KeyEnvName(), keyState)
}
