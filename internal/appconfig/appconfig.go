// internal/appconfig/appconfig.go
// Package appconfig manages loading, validating, and interpreting
// application configuration.
package appconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.json"
	// legacyConfigPath is the path to the configuration file used in previous versions.
	legacyConfigPath = "config.json"
	// defaultRequestTimeout is the default timeout for provider HTTP requests.
	defaultRequestTimeout = 60 * time.Second
	// defaultTopK is how many index candidates a query retrieves when the config omits the value.
	defaultTopK = 4
	// defaultMinScore is the similarity floor below which retrieved candidates are discarded.
	defaultMinScore = 0.7
	// defaultPromptBudget caps the combined system and user prompt size in characters.
	defaultPromptBudget = 6000
	// defaultEmbedBatch is how many corpus records are embedded per provider call during a build.
	defaultEmbedBatch = 32
	// defaultEmbedCache is how many query embeddings are kept in memory.
	defaultEmbedCache = 256
	// defaultEmbedRPS is the client-side request rate allowed against the embedding endpoint.
	defaultEmbedRPS = 2.0
	// defaultEmbedBurst is the rate limiter's burst allowance.
	defaultEmbedBurst = 4
	// defaultRetryCount is how many times a failed provider call is retried.
	defaultRetryCount = 3
	// defaultBreakerFailures is how many consecutive embedding failures open the circuit.
	defaultBreakerFailures = 5
	// defaultBreakerCooldown is how long the open circuit waits before probing again.
	defaultBreakerCooldown = 30 * time.Second
)

// configSchema is the JSON Schema every configuration file must satisfy.
// additionalProperties is disabled so misspelled keys fail loudly instead of
// silently falling back to defaults.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "provider": {"type": "string", "enum": ["", "openai", "ollama"]},
    "openaiBaseURL": {"type": "string"},
    "openaiKeyEnv": {"type": "string"},
    "ollamaHost": {"type": "string"},
    "embedModel": {"type": "string"},
    "chatModel": {"type": "string"},
    "temperature": {"type": "number", "minimum": 0, "maximum": 2},
    "corpusPath": {"type": "string"},
    "indexPath": {"type": "string"},
    "historyPath": {"type": "string"},
    "persona": {"type": "string"},
    "topK": {"type": "integer", "minimum": 1},
    "minScore": {"type": "number", "minimum": 0, "maximum": 1},
    "promptBudget": {"type": "integer", "minimum": 1},
    "embedBatch": {"type": "integer", "minimum": 1},
    "embedCache": {"type": "integer", "minimum": 0},
    "embedRPS": {"type": "number", "exclusiveMinimum": 0},
    "embedBurst": {"type": "integer", "minimum": 1},
    "retryCount": {"type": "integer", "minimum": 0},
    "breakerFailures": {"type": "integer", "minimum": 1},
    "breakerCooldown": {"type": "integer", "minimum": 1},
    "timeout": {"type": "integer", "minimum": 1},
    "logFile": {"type": "string"},
    "debug": {"type": "boolean"}
  }
}`

// Config represents the top-level application configuration.
type Config struct {
	Provider        string   `json:"provider"`
	OpenAIBaseURL   string   `json:"openaiBaseURL,omitempty"`
	OpenAIKeyEnv    string   `json:"openaiKeyEnv,omitempty"`
	OllamaHost      string   `json:"ollamaHost,omitempty"`
	EmbedModel      string   `json:"embedModel,omitempty"`
	ChatModel       string   `json:"chatModel,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	CorpusPath      string   `json:"corpusPath,omitempty"`
	IndexPath       string   `json:"indexPath,omitempty"`
	HistoryPath     string   `json:"historyPath,omitempty"`
	Persona         string   `json:"persona,omitempty"`
	TopKCount       int      `json:"topK,omitempty"`
	MinScoreValue   *float64 `json:"minScore,omitempty"`
	PromptBudget    int      `json:"promptBudget,omitempty"`
	EmbedBatch      int      `json:"embedBatch,omitempty"`
	EmbedCache      *int     `json:"embedCache,omitempty"`
	EmbedRPS        float64  `json:"embedRPS,omitempty"`
	EmbedBurst      int      `json:"embedBurst,omitempty"`
	RetryCount      *int     `json:"retryCount,omitempty"`
	BreakerFailures int      `json:"breakerFailures,omitempty"`
	BreakerCooldown int      `json:"breakerCooldown,omitempty"`
	TimeoutSeconds  int      `json:"timeout,omitempty"`
	LogFile         string   `json:"logFile,omitempty"`
	Debug           bool     `json:"debug"`
	ConfigPath      string   `json:"-"`
}

// ProviderName returns the configured provider implementation, defaulting to openai.
func (c Config) ProviderName() string {
	if p := strings.TrimSpace(c.Provider); p != "" {
		return p
	}
	return "openai"
}

// OpenAIBase returns the OpenAI-compatible API base URL.
func (c Config) OpenAIBase() string {
	if u := strings.TrimSpace(c.OpenAIBaseURL); u != "" {
		return strings.TrimRight(u, "/")
	}
	return "https://api.openai.com/v1"
}

// KeyEnvName returns the environment variable holding the provider API key.
func (c Config) KeyEnvName() string {
	if v := strings.TrimSpace(c.OpenAIKeyEnv); v != "" {
		return v
	}
	return "OPENAI_API_KEY"
}

// OllamaHostURL returns the Ollama host base URL.
func (c Config) OllamaHostURL() string {
	if u := strings.TrimSpace(c.OllamaHost); u != "" {
		return strings.TrimRight(u, "/")
	}
	return "http://localhost:11434"
}

// EmbedModelName returns the embedding model, with a provider-appropriate default.
func (c Config) EmbedModelName() string {
	if m := strings.TrimSpace(c.EmbedModel); m != "" {
		return m
	}
	if c.ProviderName() == "ollama" {
		return "nomic-embed-text"
	}
	return "text-embedding-3-small"
}

// ChatModelName returns the generation model, with a provider-appropriate default.
func (c Config) ChatModelName() string {
	if m := strings.TrimSpace(c.ChatModel); m != "" {
		return m
	}
	if c.ProviderName() == "ollama" {
		return "llama3.1"
	}
	return "gpt-4"
}

// GenTemperature returns the sampling temperature for generation calls.
func (c Config) GenTemperature() float64 {
	if c.Temperature != nil {
		return *c.Temperature
	}
	return 0.1
}

// CorpusFilePath returns the corpus CSV location.
func (c Config) CorpusFilePath() string {
	if p := strings.TrimSpace(c.CorpusPath); p != "" {
		return p
	}
	return "data/corpus.csv"
}

// IndexFilePath returns the index snapshot location.
func (c Config) IndexFilePath() string {
	if p := strings.TrimSpace(c.IndexPath); p != "" {
		return p
	}
	return "data/index.jsonl"
}

// HistoryFilePath returns the interaction history database location.
func (c Config) HistoryFilePath() string {
	if p := strings.TrimSpace(c.HistoryPath); p != "" {
		return p
	}
	return "data/history.db"
}

// PersonaTag returns the configured persona tag, defaulting to the general visitor.
func (c Config) PersonaTag() string {
	if p := strings.TrimSpace(c.Persona); p != "" {
		return p
	}
	return "visitor"
}

// TopK returns how many candidates each retrieval considers.
func (c Config) TopK() int {
	if c.TopKCount <= 0 {
		return defaultTopK
	}
	return c.TopKCount
}

// MinScore returns the similarity threshold below which candidates are dropped.
// Zero is a legal configured value, so absence is distinguished from zero.
func (c Config) MinScore() float64 {
	if c.MinScoreValue == nil {
		return defaultMinScore
	}
	return *c.MinScoreValue
}

// PromptBudgetChars returns the prompt size cap in characters.
func (c Config) PromptBudgetChars() int {
	if c.PromptBudget <= 0 {
		return defaultPromptBudget
	}
	return c.PromptBudget
}

// EmbedBatchSize returns how many texts are embedded per provider call.
func (c Config) EmbedBatchSize() int {
	if c.EmbedBatch <= 0 {
		return defaultEmbedBatch
	}
	return c.EmbedBatch
}

// EmbedCacheSize returns the query-embedding cache capacity. Zero disables the cache.
func (c Config) EmbedCacheSize() int {
	if c.EmbedCache == nil {
		return defaultEmbedCache
	}
	if *c.EmbedCache < 0 {
		return 0
	}
	return *c.EmbedCache
}

// EmbedRatePerSec returns the client-side embedding request rate.
func (c Config) EmbedRatePerSec() float64 {
	if c.EmbedRPS <= 0 {
		return defaultEmbedRPS
	}
	return c.EmbedRPS
}

// EmbedBurstSize returns the rate limiter burst allowance.
func (c Config) EmbedBurstSize() int {
	if c.EmbedBurst <= 0 {
		return defaultEmbedBurst
	}
	return c.EmbedBurst
}

// RetryAttempts returns how many times a failed provider call is retried.
func (c Config) RetryAttempts() int {
	if c.RetryCount == nil {
		return defaultRetryCount
	}
	if *c.RetryCount < 0 {
		return 0
	}
	return *c.RetryCount
}

// BreakerFailureThreshold returns how many consecutive embedding failures open the circuit.
func (c Config) BreakerFailureThreshold() int {
	if c.BreakerFailures <= 0 {
		return defaultBreakerFailures
	}
	return c.BreakerFailures
}

// BreakerCooldownDuration returns how long the open circuit waits before a probe request.
func (c Config) BreakerCooldownDuration() time.Duration {
	if c.BreakerCooldown <= 0 {
		return defaultBreakerCooldown
	}
	return time.Duration(c.BreakerCooldown) * time.Second
}

// RequestTimeout returns the timeout duration for provider HTTP requests.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return "dossier.log"
}

// Load reads the application configuration from the specified path, with
// fallback to a legacy path when the default location is empty.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	config, err := loadFromPath(path)
	if err == nil {
		config.ConfigPath = path
		return config, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		if path == DefaultConfigPath {
			config, legacyErr := loadFromPath(legacyConfigPath)
			if legacyErr == nil {
				config.ConfigPath = legacyConfigPath
				return config, nil
			}
			if errors.Is(legacyErr, os.ErrNotExist) {
				return Config{}, fmt.Errorf("no configuration file found (searched %q and %q): %w", DefaultConfigPath, legacyConfigPath, os.ErrNotExist)
			}
			return Config{}, fmt.Errorf("could not read config file %q: %w", legacyConfigPath, legacyErr)
		}
		return Config{}, fmt.Errorf("no configuration file found at %q: %w", path, os.ErrNotExist)
	}

	return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
}

// loadFromPath reads, schema-validates, and decodes one configuration file.
func loadFromPath(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := validateRaw(raw); err != nil {
		return Config{}, fmt.Errorf("config file %q: %w", path, err)
	}

	var config Config
	if err := json.Unmarshal(raw, &config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// validateRaw checks the raw config bytes against the embedded schema.
func validateRaw(raw []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(configSchema), gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var details []string
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("configuration failed validation: %s", strings.Join(details, "; "))
}
