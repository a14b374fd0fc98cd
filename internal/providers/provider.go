// internal/providers/provider.go

// Package providers defines the capability interfaces for the network-backed
// model providers the pipeline depends on. It gives the rest of the code a
// common abstraction for embedding text and generating answers, regardless of
// the underlying implementation (e.g., OpenAI-compatible APIs, Ollama).
package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrProvider marks transient failures from a network-backed capability:
// connection errors, timeouts, quota rejections, undecodable responses.
// Callers match it with errors.Is and decide their own fallback policy.
var ErrProvider = errors.New("provider error")

// ErrRejected marks 4xx-class provider rejections that retrying cannot fix
// (bad request, auth failure, unknown model). Always paired with ErrProvider.
var ErrRejected = errors.New("request rejected")

// maxErrBody bounds how much of a provider error body ends up in an error string.
const maxErrBody = 300

// StatusError converts a non-2xx HTTP response into a classified provider
// error. 4xx statuses other than 429 also match ErrRejected.
func StatusError(endpoint, status string, code int, body []byte) error {
	msg := fmt.Sprintf("%s returned %s", endpoint, status)
	if detail := strings.TrimSpace(string(body)); detail != "" {
		if len(detail) > maxErrBody {
			detail = detail[:maxErrBody] + "..."
		}
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w: %w", msg, ErrRejected, ErrProvider)
	}
	return fmt.Errorf("%s: %w", msg, ErrProvider)
}

// Embedder maps batches of text strings to fixed-length numeric vectors.
// Every vector in one response has the same dimensionality, fixed by the
// model. Implementations must respect ctx cancellation and deadlines.
type Embedder interface {
	// Name identifies the implementation for logs and health output.
	Name() string
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Generator produces answer text from a system directive and a user prompt.
type Generator interface {
	// Name identifies the implementation for logs and health output.
	Name() string
	// Generate performs exactly one completion call.
	Generate(ctx context.Context, system, prompt string) (string, error)
}
