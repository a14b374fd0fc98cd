// internal/history/history.go
// Package history persists one row per answered question so usage can be
// reviewed later. Writes are best-effort from the caller's point of view;
// a failed insert never fails the answer that produced it.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mwiater/dossier/internal/util"
)

// Interaction is one answered question.
type Interaction struct {
	ID        string
	SessionID string
	Persona   string
	Question  string
	Answer    string
	Sources   []int
	Model     string
	Degraded  bool
	ElapsedMS int64
	CreatedAt time.Time
}

// Summary aggregates the whole interaction log.
type Summary struct {
	Total        int            `json:"total"`
	Degraded     int            `json:"degraded"`
	AvgElapsedMS float64        `json:"avg_elapsed_ms"`
	MaxElapsedMS int64          `json:"max_elapsed_ms"`
	ByPersona    map[string]int `json:"by_persona"`
}

// BusiestPersona returns the persona with the most interactions, breaking
// ties alphabetically. Empty when the log is empty.
func (s Summary) BusiestPersona() string {
	busiest := ""
	best := 0
	for persona, count := range s.ByPersona {
		if count > best || (count == best && (busiest == "" || persona < busiest)) {
			busiest = persona
			best = count
		}
	}
	return busiest
}

// Store is a SQLite-backed interaction log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the log at path and brings its schema up to date.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history path required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := (Manager{}).UpToLatest(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// NewSessionID mints an identifier tying a chat session's rows together.
func NewSessionID() string { return uuid.NewString() }

// Record inserts one interaction and returns its generated ID.
func (s *Store) Record(ctx context.Context, interaction Interaction) (string, error) {
	id := interaction.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := interaction.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO interactions(id,session_id,persona,question,answer,sources,model,degraded,elapsed_ms,created_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?)`,
		id,
		interaction.SessionID,
		interaction.Persona,
		interaction.Question,
		interaction.Answer,
		joinIDs(interaction.Sources),
		interaction.Model,
		util.BoolToInt(interaction.Degraded),
		interaction.ElapsedMS,
		createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("record interaction: %w", err)
	}
	return id, nil
}

// Recent returns up to limit interactions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id,session_id,persona,question,answer,sources,model,degraded,elapsed_ms,created_at
		 FROM interactions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var out []Interaction
	for rows.Next() {
		var (
			interaction Interaction
			sources     string
			degraded    int
			createdAt   string
		)
		if err := rows.Scan(
			&interaction.ID, &interaction.SessionID, &interaction.Persona,
			&interaction.Question, &interaction.Answer, &sources,
			&interaction.Model, &degraded, &interaction.ElapsedMS, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		interaction.Sources = splitIDs(sources)
		interaction.Degraded = degraded != 0
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			interaction.CreatedAt = ts
		}
		out = append(out, interaction)
	}
	return out, rows.Err()
}

// Summarize aggregates counts, the degraded share, and per-persona volume.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	summary := Summary{ByPersona: map[string]int{}}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(degraded),0), COALESCE(AVG(elapsed_ms),0), COALESCE(MAX(elapsed_ms),0) FROM interactions`,
	).Scan(&summary.Total, &summary.Degraded, &summary.AvgElapsedMS, &summary.MaxElapsedMS)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize interactions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT persona, COUNT(*) FROM interactions GROUP BY persona`)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize personas: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			persona string
			count   int
		)
		if err := rows.Scan(&persona, &count); err != nil {
			return Summary{}, fmt.Errorf("scan persona count: %w", err)
		}
		summary.ByPersona[persona] = count
	}
	return summary, rows.Err()
}

func joinIDs(ids []int) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func splitIDs(joined string) []int {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ",")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		if id, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
