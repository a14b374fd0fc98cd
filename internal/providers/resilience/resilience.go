// internal/providers/resilience/resilience.go
// Package resilience wraps the provider capabilities with client-side
// protections. Embedding calls pass through a request rate limiter and a
// circuit breaker before a bounded retry; generation calls get the bounded
// retry only, so a single failing request fails fast instead of tripping
// shared breaker state.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/mwiater/dossier/internal/appconfig"
	"github.com/mwiater/dossier/internal/logging"
	"github.com/mwiater/dossier/internal/providers"
)

const (
	retryInitialInterval = 200 * time.Millisecond
	retryMaxInterval     = 5 * time.Second
)

// retryable reports whether a provider failure is worth another attempt.
// Caller cancellation, 4xx-class rejections, and an open circuit are not.
func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, providers.ErrRejected):
		return false
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return false
	}
	return true
}

// retryWithBackoff runs op with exponential backoff, up to attempts retries
// beyond the first call, stopping early when ctx ends or op fails permanently.
func retryWithBackoff(ctx context.Context, attempts int, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxInterval = retryMaxInterval

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts)), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

// RateLimitedEmbedder delays embedding calls to honor a client-side rate.
type RateLimitedEmbedder struct {
	wrapped providers.Embedder
	limiter *rate.Limiter
}

// NewRateLimitedEmbedder wraps an Embedder with a token-bucket rate limiter
// sized from the application configuration.
func NewRateLimitedEmbedder(wrapped providers.Embedder, cfg *appconfig.Config) *RateLimitedEmbedder {
	logging.LogEvent("[RESILIENCE] Rate limiting %s embedder at %.1f req/s (burst %d)", wrapped.Name(), cfg.EmbedRatePerSec(), cfg.EmbedBurstSize())
	return &RateLimitedEmbedder{
		wrapped: wrapped,
		limiter: rate.NewLimiter(rate.Limit(cfg.EmbedRatePerSec()), cfg.EmbedBurstSize()),
	}
}

// Name passes through to the wrapped implementation.
func (e *RateLimitedEmbedder) Name() string { return e.wrapped.Name() }

// Embed waits for rate capacity, then delegates.
func (e *RateLimitedEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limiter: %w", err)
	}
	return e.wrapped.Embed(ctx, texts)
}

// BreakerEmbedder opens a circuit after consecutive embedding failures so a
// dead provider is not hammered on every question.
type BreakerEmbedder struct {
	wrapped providers.Embedder
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerEmbedder wraps an Embedder with a circuit breaker configured from
// the application configuration.
func NewBreakerEmbedder(wrapped providers.Embedder, cfg *appconfig.Config) *BreakerEmbedder {
	threshold := uint32(cfg.BreakerFailureThreshold())
	settings := gobreaker.Settings{
		Name:        wrapped.Name() + "-embedder",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldownDuration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.LogEvent("[RESILIENCE] Circuit breaker %s: %s -> %s", name, from, to)
		},
	}
	return &BreakerEmbedder{wrapped: wrapped, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Name passes through to the wrapped implementation.
func (e *BreakerEmbedder) Name() string { return e.wrapped.Name() }

// Embed delegates through the breaker. An open circuit reports as a provider
// error so callers fall back the same way they would for a network failure.
func (e *BreakerEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	result, err := e.breaker.Execute(func() (any, error) {
		return e.wrapped.Embed(ctx, texts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("embedding circuit open: %w: %w", err, providers.ErrProvider)
		}
		return nil, err
	}
	return result.([][]float64), nil
}

// RetryEmbedder retries failed embedding calls with exponential backoff.
type RetryEmbedder struct {
	wrapped  providers.Embedder
	attempts int
}

// NewRetryEmbedder wraps an Embedder with bounded retry.
func NewRetryEmbedder(wrapped providers.Embedder, cfg *appconfig.Config) *RetryEmbedder {
	logging.LogEvent("[RESILIENCE] Retrying %s embedder up to %d times", wrapped.Name(), cfg.RetryAttempts())
	return &RetryEmbedder{wrapped: wrapped, attempts: cfg.RetryAttempts()}
}

// Name passes through to the wrapped implementation.
func (e *RetryEmbedder) Name() string { return e.wrapped.Name() }

// Embed delegates with retry.
func (e *RetryEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	var vectors [][]float64
	err := retryWithBackoff(ctx, e.attempts, func() error {
		var embedErr error
		vectors, embedErr = e.wrapped.Embed(ctx, texts)
		return embedErr
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

// RetryGenerator retries failed generation calls with exponential backoff.
type RetryGenerator struct {
	wrapped  providers.Generator
	attempts int
}

// NewRetryGenerator wraps a Generator with bounded retry.
func NewRetryGenerator(wrapped providers.Generator, cfg *appconfig.Config) *RetryGenerator {
	logging.LogEvent("[RESILIENCE] Retrying %s generator up to %d times", wrapped.Name(), cfg.RetryAttempts())
	return &RetryGenerator{wrapped: wrapped, attempts: cfg.RetryAttempts()}
}

// Name passes through to the wrapped implementation.
func (g *RetryGenerator) Name() string { return g.wrapped.Name() }

// Generate delegates with retry.
func (g *RetryGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	var text string
	err := retryWithBackoff(ctx, g.attempts, func() error {
		var genErr error
		text, genErr = g.wrapped.Generate(ctx, system, prompt)
		return genErr
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
