// internal/providers/ollama/provider.go
// Package ollama provides Embedder and Generator implementations backed by a
// local Ollama host.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mwiater/dossier/internal/appconfig"
	"github.com/mwiater/dossier/internal/logging"
	"github.com/mwiater/dossier/internal/providers"
)

// Provider implements providers.Embedder and providers.Generator using the
// Ollama HTTP API.
type Provider struct {
	host        string
	embedModel  string
	chatModel   string
	temperature float64
	client      *http.Client
	timeout     time.Duration
	debug       bool
}

// New constructs a Provider configured with the application's request timeout.
func New(cfg *appconfig.Config) *Provider {
	timeout := cfg.RequestTimeout()
	return &Provider{
		host:        cfg.OllamaHostURL(),
		embedModel:  cfg.EmbedModelName(),
		chatModel:   cfg.ChatModelName(),
		temperature: cfg.GenTemperature(),
		client: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{ForceAttemptHTTP2: false},
		},
		timeout: timeout,
		debug:   cfg.Debug,
	}
}

// Name identifies this implementation in logs and health output.
func (p *Provider) Name() string { return "ollama" }

// embeddingResponse is the /api/embeddings reply body.
type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// chatResponse is the non-streaming /api/chat reply body.
type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Embed returns one vector per input text. The /api/embeddings endpoint takes
// a single prompt, so the batch is issued as sequential calls.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))
	for _, text := range texts {
		vector, err := p.embedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, vector)
	}
	return vectors, nil
}

func (p *Provider) embedOne(ctx context.Context, text string) ([]float64, error) {
	payload := map[string]any{
		"model":  p.embedModel,
		"prompt": text,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal embedding request: %w", err)
	}
	p.logOutbound(p.embedModel, body, map[string]any{"endpoint": "/api/embeddings", "chars": len(text)})

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama: embedding request failed: %w: %w", err, providers.ErrProvider)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ollama: read embedding response: %w: %w", err, providers.ErrProvider)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, providers.StatusError("ollama: /api/embeddings", resp.Status, resp.StatusCode, raw)
	}
	p.logInbound(p.embedModel, raw, map[string]any{"endpoint": "/api/embeddings", "bytes": len(raw)})

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("ollama: parse embedding response: %w: %w", err, providers.ErrProvider)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("ollama: embedding response returned empty vector: %w", providers.ErrProvider)
	}
	return parsed.Embedding, nil
}

// Generate performs one non-streaming chat completion.
func (p *Provider) Generate(ctx context.Context, system, prompt string) (string, error) {
	messages := []map[string]string{}
	if strings.TrimSpace(system) != "" {
		messages = append(messages, map[string]string{"role": "system", "content": system})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})

	payload := map[string]any{
		"model":    p.chatModel,
		"messages": messages,
		"options":  map[string]any{"temperature": p.temperature},
		"stream":   false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ollama: marshal chat request: %w", err)
	}
	p.logOutbound(p.chatModel, body, map[string]any{"endpoint": "/api/chat", "chars": len(prompt)})

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: chat request failed: %w: %w", err, providers.ErrProvider)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ollama: read chat response: %w: %w", err, providers.ErrProvider)
	}
	if resp.StatusCode != http.StatusOK {
		return "", providers.StatusError("ollama: /api/chat", resp.Status, resp.StatusCode, raw)
	}
	p.logInbound(p.chatModel, raw, map[string]any{"endpoint": "/api/chat", "bytes": len(raw)})

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("ollama: parse chat response: %w: %w", err, providers.ErrProvider)
	}
	return parsed.Message.Content, nil
}

// logOutbound logs request traffic; full payloads only in debug mode.
func (p *Provider) logOutbound(model string, body []byte, summary map[string]any) {
	if p.debug {
		logging.LogRequest("DOSSIER->LLM", p.host, model, body)
		return
	}
	logging.LogRequest("DOSSIER->LLM", p.host, model, summary)
}

// logInbound logs response traffic; full payloads only in debug mode.
func (p *Provider) logInbound(model string, body []byte, summary map[string]any) {
	if p.debug {
		logging.LogRequest("LLM->DOSSIER", p.host, model, body)
		return
	}
	logging.LogRequest("LLM->DOSSIER", p.host, model, summary)
}
