// internal/server/server.go
// Package server exposes the answer pipeline over HTTP with JSON bodies
// both ways. Provider-internal detail stays in the log; response bodies
// carry human-readable reasons only.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mwiater/dossier/internal/compose"
	"github.com/mwiater/dossier/internal/history"
	"github.com/mwiater/dossier/internal/logging"
	"github.com/mwiater/dossier/internal/persona"
	"github.com/mwiater/dossier/internal/pipeline"
	"github.com/mwiater/dossier/internal/providers"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// ErrResp is the uniform error body.
type ErrResp struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// AnswerReq is the POST /v1/answer body.
type AnswerReq struct {
	Question  string `json:"question"`
	Persona   string `json:"persona,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// RebuildResp is the POST /v1/rebuild success body.
type RebuildResp struct {
	OK      bool `json:"ok"`
	Records int  `json:"records"`
}

// HealthzResp is the GET /healthz body.
type HealthzResp struct {
	OK      bool   `json:"ok"`
	Index   string `json:"index"`
	Entries int    `json:"entries,omitempty"`
}

// Server serves the pipeline over HTTP.
type Server struct {
	cfg  *Config
	pipe *pipeline.Pipeline
	log  *history.Store
}

// New builds a Server. store may be nil, which disables the history route.
func New(cfg *Config, pipe *pipeline.Pipeline, store *history.Store) *Server {
	return &Server{cfg: cfg, pipe: pipe, log: store}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /v1/answer", s.handleAnswer)
	mux.HandleFunc("POST /v1/rebuild", s.handleRebuild)
	mux.HandleFunc("GET /v1/history/summary", s.handleHistorySummary)
	return mux
}

// Run serves until ctx is canceled, then drains in-flight requests for the
// configured grace period.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logging.LogEvent("[SERVER] Listening on %s", srv.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logging.LogEvent("[SERVER] Shutting down, draining for up to %s", s.cfg.GracePeriod())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GracePeriod())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	entries, _, ready := s.pipe.IndexStats()
	state := "uninitialized"
	if ready {
		state = "ready"
	}
	writeJSON(w, http.StatusOK, HealthzResp{OK: true, Index: state, Entries: entries})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req AnswerReq
	if err := decodeJSON(w, r, &req, maxBodyBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrResp{OK: false, Error: "invalid JSON: " + err.Error()})
		return
	}

	// An omitted persona stays empty so the pipeline falls back to the
	// configured default rather than hard-coding one here.
	var who persona.Persona
	if strings.TrimSpace(req.Persona) != "" {
		parsed, err := persona.Parse(req.Persona)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrResp{OK: false, Error: err.Error()})
			return
		}
		who = parsed
	}

	response, err := s.pipe.Answer(r.Context(), pipeline.AnswerRequest{
		Question:  req.Question,
		Persona:   who,
		SessionID: req.SessionID,
	})
	if err != nil {
		logging.LogEvent("[SERVER] Answer failed: %v", err)
		switch {
		case errors.Is(err, pipeline.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, ErrResp{OK: false, Error: "question must not be empty"})
		case errors.Is(err, compose.ErrGenerationFailed):
			writeJSON(w, http.StatusBadGateway, ErrResp{OK: false, Error: "answer generation failed, try again shortly"})
		default:
			writeJSON(w, http.StatusInternalServerError, ErrResp{OK: false, Error: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	count, err := s.pipe.Rebuild(r.Context())
	if err != nil {
		logging.LogEvent("[SERVER] Rebuild failed: %v", err)
		if errors.Is(err, providers.ErrProvider) {
			writeJSON(w, http.StatusBadGateway, ErrResp{OK: false, Error: "index build failed: embedding provider error"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, ErrResp{OK: false, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, RebuildResp{OK: true, Records: count})
}

func (s *Server) handleHistorySummary(w http.ResponseWriter, r *http.Request) {
	if s.log == nil {
		writeJSON(w, http.StatusNotFound, ErrResp{OK: false, Error: "history is not enabled"})
		return
	}
	summary, err := s.log.Summarize(r.Context())
	if err != nil {
		logging.LogEvent("[SERVER] History summary failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, ErrResp{OK: false, Error: "could not read history"})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any, maxBytes int64) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
