// internal/cli/root_test.go
package dossier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mwiater/dossier/internal/appconfig"
)

func TestLoadFileConfigMissingDefaultUsesBuiltins(t *testing.T) {
	old := cfgFile
	defer func() { cfgFile = old }()

	cfgFile = appconfig.DefaultConfigPath
	cfg, err := loadFileConfig()
	if err != nil {
		t.Fatalf("loadFileConfig: %v", err)
	}
	if cfg.ConfigPath != "" {
		t.Fatalf("expected no config path, got %q", cfg.ConfigPath)
	}
	if got := cfg.ProviderName(); got != "openai" {
		t.Fatalf("default provider = %q, want openai", got)
	}
}

func TestLoadFileConfigExplicitMissingFileFails(t *testing.T) {
	old := cfgFile
	defer func() { cfgFile = old }()

	cfgFile = filepath.Join(t.TempDir(), "nope.json")
	if _, err := loadFileConfig(); err == nil {
		t.Fatal("expected an error for an explicitly named missing file")
	}
}

func TestLoadFileConfigReadsNamedFile(t *testing.T) {
	old := cfgFile
	defer func() { cfgFile = old }()

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"provider":"ollama","topK":7}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfgFile = path
	cfg, err := loadFileConfig()
	if err != nil {
		t.Fatalf("loadFileConfig: %v", err)
	}
	if cfg.ProviderName() != "ollama" {
		t.Fatalf("provider = %q, want ollama", cfg.ProviderName())
	}
	if cfg.TopK() != 7 {
		t.Fatalf("topK = %d, want 7", cfg.TopK())
	}
	if cfg.ConfigPath != path {
		t.Fatalf("config path = %q, want %q", cfg.ConfigPath, path)
	}
}

func TestCommandTreeRegistration(t *testing.T) {
	topLevel := map[string]bool{}
	for _, cmd := range rootCmd.Commands() {
		topLevel[cmd.Name()] = true
	}
	for _, name := range []string{"ask", "chat", "serve", "index", "health", "history", "config"} {
		if !topLevel[name] {
			t.Errorf("root command is missing %q", name)
		}
	}

	indexSubs := map[string]bool{}
	for _, cmd := range indexCmd.Commands() {
		indexSubs[cmd.Name()] = true
	}
	if !indexSubs["build"] || !indexSubs["preview"] {
		t.Errorf("index command is missing subcommands, have %v", indexSubs)
	}

	historySubs := map[string]bool{}
	for _, cmd := range historyCmd.Commands() {
		historySubs[cmd.Name()] = true
	}
	if !historySubs["summary"] {
		t.Errorf("history command is missing summary, have %v", historySubs)
	}
}
