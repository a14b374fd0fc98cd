// internal/appconfig/show_test.go
package appconfig

import (
	"bytes"
	"strings"
	"testing"
)

func TestShowConfigDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	var buf bytes.Buffer
	ShowConfig(&buf, &Config{})
	out := buf.String()

	for _, want := range []string{
		"No config file loaded (using defaults).",
		"Provider:      openai",
		"OpenAI base:   https://api.openai.com/v1",
		"Corpus:        data/corpus.csv",
		"Persona:       visitor",
		"Min score:     0.70",
		"OPENAI_API_KEY: not set",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestShowConfigOllamaAndLoadedFile(t *testing.T) {
	cfg := &Config{
		Provider:   "ollama",
		ConfigPath: "config/config.json",
	}

	var buf bytes.Buffer
	ShowConfig(&buf, cfg)
	out := buf.String()

	if !strings.Contains(out, "Config file: config/config.json") {
		t.Errorf("output missing config file line:\n%s", out)
	}
	if !strings.Contains(out, "Ollama host:   http://localhost:11434") {
		t.Errorf("output missing ollama host line:\n%s", out)
	}
	if strings.Contains(out, "OpenAI base:") {
		t.Errorf("ollama summary should not mention the OpenAI base URL:\n%s", out)
	}
}

func TestShowConfigNeverPrintsTheKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-secret-value")

	var buf bytes.Buffer
	ShowConfig(&buf, &Config{})
	out := buf.String()

	if strings.Contains(out, "sk-secret-value") {
		t.Fatalf("key value leaked into output:\n%s", out)
	}
	if !strings.Contains(out, "OPENAI_API_KEY: set") {
		t.Errorf("output should report the key as set:\n%s", out)
	}
}
