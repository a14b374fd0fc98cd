// internal/providerfactory/factory_test.go
package providerfactory

import (
	"testing"

	"github.com/mwiater/dossier/internal/appconfig"
)

func TestNewEmbedderErrorsOnNilConfig(t *testing.T) {
	if _, err := NewEmbedder(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestNewGeneratorErrorsOnNilConfig(t *testing.T) {
	if _, err := NewGenerator(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	cfg := &appconfig.Config{Provider: "watson"}
	if _, err := NewEmbedder(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if _, err := NewGenerator(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestFactoryBuildsConfiguredProviders(t *testing.T) {
	for _, name := range []string{"openai", "ollama"} {
		cfg := &appconfig.Config{Provider: name, TimeoutSeconds: 5}

		embedder, err := NewEmbedder(cfg)
		if err != nil {
			t.Fatalf("NewEmbedder(%s) returned error: %v", name, err)
		}
		if embedder.Name() != name {
			t.Fatalf("expected embedder name %q through the decorator chain, got %q", name, embedder.Name())
		}

		generator, err := NewGenerator(cfg)
		if err != nil {
			t.Fatalf("NewGenerator(%s) returned error: %v", name, err)
		}
		if generator.Name() != name {
			t.Fatalf("expected generator name %q through the decorator chain, got %q", name, generator.Name())
		}
	}
}
