// internal/health/health_test.go
package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mwiater/dossier/internal/appconfig"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func healthyConfig(t *testing.T) *appconfig.Config {
	t.Helper()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "corpus.csv"), "question,answer\nq1,a1\nq2,a2\n")
	writeFile(t, filepath.Join(dir, "index.jsonl"),
		`{"record_id":1,"question":"q1","answer":"a1","embedding":[1,0]}`+"\n"+
			`{"record_id":2,"question":"q2","answer":"a2","embedding":[0,1]}`+"\n")

	return &appconfig.Config{
		Provider:    "openai",
		CorpusPath:  filepath.Join(dir, "corpus.csv"),
		IndexPath:   filepath.Join(dir, "index.jsonl"),
		HistoryPath: filepath.Join(dir, "history.db"),
	}
}

func resultByName(t *testing.T, results []Result, name string) Result {
	t.Helper()
	for _, result := range results {
		if result.Name == name {
			return result
		}
	}
	t.Fatalf("no %q result in %+v", name, results)
	return Result{}
}

func TestRunAllHealthy(t *testing.T) {
	t.Parallel()

	cfg := healthyConfig(t)
	results := Run(context.Background(), cfg, Options{})

	if len(results) != 5 {
		t.Fatalf("expected 5 checks without --live, got %d", len(results))
	}
	if !AllOK(results) {
		t.Errorf("expected all checks to pass: %+v", results)
	}

	ixResult := resultByName(t, results, "index")
	if ixResult.Detail != "2 entries, 2 dimensions" {
		t.Errorf("unexpected index detail %q", ixResult.Detail)
	}
}

func TestRunFlagsMissingPieces(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := &appconfig.Config{
		Provider:    "openai",
		CorpusPath:  filepath.Join(dir, "absent.csv"),
		IndexPath:   filepath.Join(dir, "absent.jsonl"),
		HistoryPath: filepath.Join(dir, "history.db"),
	}

	results := Run(context.Background(), cfg, Options{})
	if AllOK(results) {
		t.Fatal("expected failures with no corpus or index on disk")
	}
	if resultByName(t, results, "corpus").OK {
		t.Error("corpus check should fail for a missing file")
	}
	if ixResult := resultByName(t, results, "index"); ixResult.OK {
		t.Error("index check should fail for a missing snapshot")
	} else if ixResult.Detail == "" {
		t.Error("index failure should hint at the fix")
	}
}

func TestProviderURLCheck(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  *appconfig.Config
		ok   bool
	}{
		{"openai default", &appconfig.Config{Provider: "openai"}, true},
		{"ollama default", &appconfig.Config{Provider: "ollama"}, true},
		{"relative url", &appconfig.Config{Provider: "ollama", OllamaHost: "localhost-no-scheme"}, false},
		{"wrong scheme", &appconfig.Config{Provider: "openai", OpenAIBaseURL: "ftp://example.com/v1"}, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			result := checkProviderURL(tc.cfg)
			if result.OK != tc.ok {
				t.Errorf("checkProviderURL = %+v, want ok=%v", result, tc.ok)
			}
		})
	}
}

func TestLiveEmbeddingRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	cfg := healthyConfig(t)
	cfg.OpenAIBaseURL = srv.URL

	results := Run(context.Background(), cfg, Options{Live: true})
	if len(results) != 6 {
		t.Fatalf("expected 6 checks with --live, got %d", len(results))
	}
	embedResult := resultByName(t, results, "embedding")
	if !embedResult.OK {
		t.Errorf("live embedding check failed: %s", embedResult.Detail)
	}
}

func TestLiveEmbeddingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no models loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	noRetries := 0
	cfg := healthyConfig(t)
	cfg.OpenAIBaseURL = srv.URL
	cfg.RetryCount = &noRetries

	results := Run(context.Background(), cfg, Options{Live: true})
	embedResult := resultByName(t, results, "embedding")
	if embedResult.OK {
		t.Error("live embedding check should fail against a broken provider")
	}
}
