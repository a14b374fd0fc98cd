// internal/appconfig/appconfig_test.go
package appconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeConfig writes raw JSON to a temp config file and returns its path.
func writeConfig(t *testing.T, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoad tests the Load function to ensure it correctly handles various
// scenarios, including valid and invalid configurations. It verifies that a
// valid configuration file is loaded without error and that defaults are
// applied through the accessor methods, while files with invalid JSON, keys
// rejected by the schema, or that are nonexistent result in an appropriate
// error.
func TestLoad(t *testing.T) {
	validConfig := `{
        "provider": "openai",
        "embedModel": "text-embedding-3-small",
        "chatModel": "gpt-4",
        "minScore": 0.7,
        "topK": 4
    }`
	path := writeConfig(t, validConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() with valid config failed: %v", err)
	}
	if cfg.ProviderName() != "openai" {
		t.Fatalf("expected provider openai, got %q", cfg.ProviderName())
	}
	if cfg.RequestTimeout() != 60*time.Second {
		t.Fatalf("expected default request timeout of 60s, got %v", cfg.RequestTimeout())
	}
	if cfg.TopK() != 4 {
		t.Fatalf("expected topK 4, got %d", cfg.TopK())
	}
	if cfg.MinScore() != 0.7 {
		t.Fatalf("expected minScore 0.7, got %v", cfg.MinScore())
	}
	if cfg.PromptBudgetChars() != 6000 {
		t.Fatalf("expected default prompt budget of 6000, got %d", cfg.PromptBudgetChars())
	}
	if cfg.ConfigPath != path {
		t.Fatalf("expected ConfigPath %q, got %q", path, cfg.ConfigPath)
	}

	invalidJSON := `{ "provider": `
	if _, err := Load(writeConfig(t, invalidJSON)); err == nil {
		t.Fatal("Load() with invalid JSON should have failed")
	}

	unknownKey := `{ "provider": "openai", "minscore": 0.5 }`
	if _, err := Load(writeConfig(t, unknownKey)); err == nil {
		t.Fatal("Load() with a misspelled key should have failed schema validation")
	}

	badProvider := `{ "provider": "cohere" }`
	if _, err := Load(writeConfig(t, badProvider)); err == nil {
		t.Fatal("Load() with an unknown provider should have failed schema validation")
	}

	outOfRange := `{ "minScore": 1.5 }`
	if _, err := Load(writeConfig(t, outOfRange)); err == nil {
		t.Fatal("Load() with minScore above 1 should have failed schema validation")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "nonexistent.json")); err == nil {
		t.Fatal("Load() with nonexistent file should have failed")
	}
}

// TestDefaults verifies the accessor methods on a zero-value Config.
func TestDefaults(t *testing.T) {
	var cfg Config

	if cfg.ProviderName() != "openai" {
		t.Fatalf("expected default provider openai, got %q", cfg.ProviderName())
	}
	if cfg.OpenAIBase() != "https://api.openai.com/v1" {
		t.Fatalf("unexpected default base URL %q", cfg.OpenAIBase())
	}
	if cfg.KeyEnvName() != "OPENAI_API_KEY" {
		t.Fatalf("unexpected default key env %q", cfg.KeyEnvName())
	}
	if cfg.EmbedModelName() != "text-embedding-3-small" {
		t.Fatalf("unexpected default embed model %q", cfg.EmbedModelName())
	}
	if cfg.ChatModelName() != "gpt-4" {
		t.Fatalf("unexpected default chat model %q", cfg.ChatModelName())
	}
	if cfg.GenTemperature() != 0.1 {
		t.Fatalf("unexpected default temperature %v", cfg.GenTemperature())
	}
	if cfg.TopK() != 4 {
		t.Fatalf("unexpected default topK %d", cfg.TopK())
	}
	if cfg.MinScore() != 0.7 {
		t.Fatalf("unexpected default minScore %v", cfg.MinScore())
	}
	if cfg.EmbedCacheSize() != 256 {
		t.Fatalf("unexpected default embed cache size %d", cfg.EmbedCacheSize())
	}
	if cfg.RetryAttempts() != 3 {
		t.Fatalf("unexpected default retry attempts %d", cfg.RetryAttempts())
	}
	if cfg.BreakerCooldownDuration() != 30*time.Second {
		t.Fatalf("unexpected default breaker cooldown %v", cfg.BreakerCooldownDuration())
	}
	if cfg.PersonaTag() != "visitor" {
		t.Fatalf("unexpected default persona %q", cfg.PersonaTag())
	}
	if cfg.LogFilePath() != "dossier.log" {
		t.Fatalf("unexpected default log path %q", cfg.LogFilePath())
	}

	cfg.Provider = "ollama"
	if cfg.EmbedModelName() != "nomic-embed-text" {
		t.Fatalf("unexpected ollama embed model %q", cfg.EmbedModelName())
	}
	if cfg.ChatModelName() != "llama3.1" {
		t.Fatalf("unexpected ollama chat model %q", cfg.ChatModelName())
	}
}

// TestMinScoreZeroIsRespected ensures an explicit zero threshold is not
// mistaken for an omitted one.
func TestMinScoreZeroIsRespected(t *testing.T) {
	zero := 0.0
	cfg := Config{MinScoreValue: &zero}
	if cfg.MinScore() != 0 {
		t.Fatalf("expected explicit zero minScore, got %v", cfg.MinScore())
	}
}
