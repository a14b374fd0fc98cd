// internal/providers/openai/provider.go
// Package openai provides Embedder and Generator implementations backed by an
// OpenAI-compatible HTTP API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mwiater/dossier/internal/appconfig"
	"github.com/mwiater/dossier/internal/logging"
	"github.com/mwiater/dossier/internal/providers"
)

// Provider implements providers.Embedder and providers.Generator against an
// OpenAI-compatible REST API. Works with api.openai.com and self-hosted
// compatible endpoints alike; the bearer token is optional for the latter.
type Provider struct {
	baseURL     string
	apiKey      string
	embedModel  string
	chatModel   string
	temperature float64
	client      *http.Client
	timeout     time.Duration
	debug       bool
}

// New constructs a Provider from the application configuration. The API key
// is read from the environment variable the config names.
func New(cfg *appconfig.Config) *Provider {
	timeout := cfg.RequestTimeout()
	return &Provider{
		baseURL:     cfg.OpenAIBase(),
		apiKey:      strings.TrimSpace(os.Getenv(cfg.KeyEnvName())),
		embedModel:  cfg.EmbedModelName(),
		chatModel:   cfg.ChatModelName(),
		temperature: cfg.GenTemperature(),
		client:      &http.Client{Timeout: timeout},
		timeout:     timeout,
		debug:       cfg.Debug,
	}
}

// Name identifies this implementation in logs and health output.
func (p *Provider) Name() string { return "openai" }

// embeddingsResponse is the /embeddings reply body.
type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// chatCompletionResponse is the /chat/completions reply body.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Embed returns one vector per input text in input order. The endpoint
// accepts the whole batch in a single call.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	payload := map[string]any{
		"model": p.embedModel,
		"input": texts,
	}
	raw, err := p.post(ctx, "/embeddings", p.embedModel, payload, map[string]any{"endpoint": "/embeddings", "inputs": len(texts)})
	if err != nil {
		return nil, err
	}

	var parsed embeddingsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("openai: parse embeddings response: %w: %w", err, providers.ErrProvider)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("openai: embeddings response has %d vectors for %d inputs: %w", len(parsed.Data), len(texts), providers.ErrProvider)
	}

	vectors := make([][]float64, len(texts))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("openai: embeddings response index %d out of range: %w", item.Index, providers.ErrProvider)
		}
		if len(item.Embedding) == 0 {
			return nil, fmt.Errorf("openai: embeddings response returned empty vector: %w", providers.ErrProvider)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// Generate performs one non-streaming chat completion.
func (p *Provider) Generate(ctx context.Context, system, prompt string) (string, error) {
	messages := []map[string]string{}
	if strings.TrimSpace(system) != "" {
		messages = append(messages, map[string]string{"role": "system", "content": system})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})

	payload := map[string]any{
		"model":       p.chatModel,
		"messages":    messages,
		"temperature": p.temperature,
		"stream":      false,
	}
	raw, err := p.post(ctx, "/chat/completions", p.chatModel, payload, map[string]any{"endpoint": "/chat/completions", "chars": len(prompt)})
	if err != nil {
		return "", err
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("openai: parse chat response: %w: %w", err, providers.ErrProvider)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai: chat response contained no choices: %w", providers.ErrProvider)
	}
	return parsed.Choices[0].Message.Content, nil
}

// post issues one JSON request and returns the raw 200-status body.
func (p *Provider) post(ctx context.Context, path, model string, payload any, summary map[string]any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}
	if p.debug {
		logging.LogRequest("DOSSIER->LLM", p.baseURL, model, body)
	} else {
		logging.LogRequest("DOSSIER->LLM", p.baseURL, model, summary)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: %s request failed: %w: %w", path, err, providers.ErrProvider)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read %s response: %w: %w", path, err, providers.ErrProvider)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, providers.StatusError("openai: "+path, resp.Status, resp.StatusCode, raw)
	}
	if p.debug {
		logging.LogRequest("LLM->DOSSIER", p.baseURL, model, raw)
	} else {
		logging.LogRequest("LLM->DOSSIER", p.baseURL, model, map[string]any{"endpoint": path, "bytes": len(raw)})
	}
	return raw, nil
}
