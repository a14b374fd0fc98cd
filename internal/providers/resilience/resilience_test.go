// internal/providers/resilience/resilience_test.go
package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mwiater/dossier/internal/appconfig"
	"github.com/mwiater/dossier/internal/providers"
)

// flakyEmbedder fails a set number of calls before succeeding.
type flakyEmbedder struct {
	failures int
	calls    int
	err      error
}

func (f *flakyEmbedder) Name() string { return "flaky" }

func (f *flakyEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return [][]float64{{1, 0}}, nil
}

// flakyGenerator mirrors flakyEmbedder for the Generator interface.
type flakyGenerator struct {
	failures int
	calls    int
	err      error
}

func (f *flakyGenerator) Name() string { return "flaky" }

func (f *flakyGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", f.err
	}
	return "ok", nil
}

func transientErr() error {
	return fmt.Errorf("boom: %w", providers.ErrProvider)
}

func TestRetryEmbedderRecovers(t *testing.T) {
	t.Parallel()

	three := 3
	base := &flakyEmbedder{failures: 2, err: transientErr()}
	embedder := NewRetryEmbedder(base, &appconfig.Config{RetryCount: &three})

	vectors, err := embedder.Embed(context.Background(), []string{"q"})
	if err != nil {
		t.Fatalf("expected recovery after retries, got: %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
	if base.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", base.calls)
	}
}

func TestRetryEmbedderGivesUp(t *testing.T) {
	t.Parallel()

	two := 2
	base := &flakyEmbedder{failures: 100, err: transientErr()}
	embedder := NewRetryEmbedder(base, &appconfig.Config{RetryCount: &two})

	_, err := embedder.Embed(context.Background(), []string{"q"})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if !errors.Is(err, providers.ErrProvider) {
		t.Fatalf("expected ErrProvider, got: %v", err)
	}
	if base.calls != 3 {
		t.Fatalf("expected initial call plus 2 retries, got %d calls", base.calls)
	}
}

func TestRetryEmbedderStopsOnRejection(t *testing.T) {
	t.Parallel()

	five := 5
	rejected := fmt.Errorf("bad key: %w: %w", providers.ErrRejected, providers.ErrProvider)
	base := &flakyEmbedder{failures: 100, err: rejected}
	embedder := NewRetryEmbedder(base, &appconfig.Config{RetryCount: &five})

	_, err := embedder.Embed(context.Background(), []string{"q"})
	if !errors.Is(err, providers.ErrRejected) {
		t.Fatalf("expected ErrRejected passthrough, got: %v", err)
	}
	if base.calls != 1 {
		t.Fatalf("rejections must not be retried, got %d calls", base.calls)
	}
}

func TestRetryGeneratorRecovers(t *testing.T) {
	t.Parallel()

	three := 3
	base := &flakyGenerator{failures: 1, err: transientErr()}
	generator := NewRetryGenerator(base, &appconfig.Config{RetryCount: &three})

	text, err := generator.Generate(context.Background(), "sys", "prompt")
	if err != nil {
		t.Fatalf("expected recovery, got: %v", err)
	}
	if text != "ok" {
		t.Fatalf("unexpected text: %q", text)
	}
	if base.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", base.calls)
	}
}

func TestBreakerEmbedderOpensAfterThreshold(t *testing.T) {
	t.Parallel()

	cfg := &appconfig.Config{BreakerFailures: 2, BreakerCooldown: 60}
	base := &flakyEmbedder{failures: 100, err: transientErr()}
	embedder := NewBreakerEmbedder(base, cfg)

	for i := 0; i < 2; i++ {
		if _, err := embedder.Embed(context.Background(), []string{"q"}); err == nil {
			t.Fatal("expected failure")
		}
	}
	if base.calls != 2 {
		t.Fatalf("expected 2 calls before the circuit opened, got %d", base.calls)
	}

	_, err := embedder.Embed(context.Background(), []string{"q"})
	if err == nil {
		t.Fatal("expected open-circuit failure")
	}
	if !errors.Is(err, providers.ErrProvider) {
		t.Fatalf("open circuit must classify as provider error, got: %v", err)
	}
	if base.calls != 2 {
		t.Fatalf("open circuit must not reach the wrapped embedder, got %d calls", base.calls)
	}
	if retryable(err) {
		t.Fatal("open-circuit errors must not be retryable")
	}
}

func TestRateLimitedEmbedderPassesThrough(t *testing.T) {
	t.Parallel()

	cfg := &appconfig.Config{EmbedRPS: 1000, EmbedBurst: 10}
	base := &flakyEmbedder{}
	embedder := NewRateLimitedEmbedder(base, cfg)

	if _, err := embedder.Embed(context.Background(), []string{"q"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base.calls != 1 {
		t.Fatalf("expected 1 call, got %d", base.calls)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := embedder.Embed(cancelled, []string{"q"}); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}

func TestRetryableClassification(t *testing.T) {
	t.Parallel()

	if retryable(context.Canceled) {
		t.Fatal("cancellation must be permanent")
	}
	if retryable(fmt.Errorf("nope: %w", providers.ErrRejected)) {
		t.Fatal("rejections must be permanent")
	}
	if !retryable(transientErr()) {
		t.Fatal("plain provider errors must be retryable")
	}
	if !retryable(context.DeadlineExceeded) {
		t.Fatal("per-call timeouts must be retryable")
	}
}
