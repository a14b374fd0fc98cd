// internal/index/index.go
// Package index holds the embedded corpus and serves nearest-neighbor
// lookups over it. An Index is immutable once built or loaded; rebuilds
// construct a replacement rather than patching entries in place.
package index

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mwiater/dossier/internal/corpus"
	"github.com/mwiater/dossier/internal/logging"
	"github.com/mwiater/dossier/internal/providers"
)

var (
	// ErrCorpusEmpty indicates a build was asked to index zero records.
	ErrCorpusEmpty = errors.New("corpus is empty")
	// ErrNotFound indicates no snapshot exists at the given path.
	ErrNotFound = errors.New("index snapshot not found")
)

// Entry is a single JSONL record in the persisted snapshot. Entries are
// self-contained so a snapshot can be loaded without re-reading the corpus.
type Entry struct {
	RecordID  int       `json:"record_id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Embedding []float64 `json:"embedding"`
}

// Result is one search hit: the record plus its similarity score in [0,1].
type Result struct {
	Record corpus.Record
	Score  float64
}

// Index is the in-memory vector index. Immutable after construction and
// safe for unlimited concurrent readers.
type Index struct {
	entries []Entry
	norms   []float64
	dim     int
}

// Len returns the number of indexed records.
func (ix *Index) Len() int { return len(ix.entries) }

// Dimension returns the embedding vector width shared by all entries.
func (ix *Index) Dimension() int { return ix.dim }

// embeddingText is what gets embedded for a record: question and answer
// together, so queries can match either phrasing.
func embeddingText(r corpus.Record) string {
	return r.Question + "\n" + r.Answer
}

// Build embeds every record in batches and assembles an index. Any embedding
// failure aborts the whole build; nothing is persisted here.
func Build(ctx context.Context, embedder providers.Embedder, records []corpus.Record, batchSize int) (*Index, error) {
	if len(records) == 0 {
		return nil, ErrCorpusEmpty
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	start := time.Now()
	status := func(format string, args ...any) {
		elapsed := time.Since(start).Truncate(time.Millisecond)
		logging.LogEvent("[%s] %s", elapsed, fmt.Sprintf(format, args...))
	}
	status("[INDEX] Embedding %d records with %s (batch size %d)", len(records), embedder.Name(), batchSize)

	ix := &Index{entries: make([]Entry, 0, len(records))}
	for begin := 0; begin < len(records); begin += batchSize {
		end := min(begin+batchSize, len(records))
		batch := records[begin:end]

		texts := make([]string, len(batch))
		for i, record := range batch {
			texts[i] = embeddingText(record)
		}

		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed records %d-%d: %w", begin+1, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d records", len(vectors), len(batch))
		}

		for i, vector := range vectors {
			if len(vector) == 0 {
				return nil, fmt.Errorf("record %d embedded to an empty vector", batch[i].ID)
			}
			if ix.dim == 0 {
				ix.dim = len(vector)
			}
			if len(vector) != ix.dim {
				return nil, fmt.Errorf("record %d embedded to %d dimensions, index holds %d", batch[i].ID, len(vector), ix.dim)
			}
			ix.entries = append(ix.entries, Entry{
				RecordID:  batch[i].ID,
				Question:  batch[i].Question,
				Answer:    batch[i].Answer,
				Embedding: vector,
			})
		}
		status("[INDEX] Embedded records %d-%d of %d", begin+1, end, len(records))
	}

	ix.norms = computeNorms(ix.entries)
	status("[INDEX] Build complete: %d entries, %d dimensions", ix.Len(), ix.Dimension())
	return ix, nil
}

// Save writes the index as JSON Lines. The snapshot is written to a temp
// file and renamed into place so a crash never leaves a truncated index.
func (ix *Index) Save(path string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create index directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".index-*.jsonl")
	if err != nil {
		return fmt.Errorf("create index temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	writer := bufio.NewWriter(tmp)
	encoder := json.NewEncoder(writer)
	encoder.SetEscapeHTML(false)
	for _, entry := range ix.entries {
		if err := encoder.Encode(entry); err != nil {
			return fmt.Errorf("write index entry: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace index snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot from disk. A missing file reports ErrNotFound so the
// caller can decide to build instead.
func Load(path string) (*Index, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("index snapshot %q: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open index snapshot: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 8*1024*1024)

	ix := &Index{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("parse index line %d: %w", lineNo, err)
		}
		if len(entry.Embedding) == 0 {
			return nil, fmt.Errorf("index line %d has no embedding", lineNo)
		}
		if ix.dim == 0 {
			ix.dim = len(entry.Embedding)
		}
		if len(entry.Embedding) != ix.dim {
			return nil, fmt.Errorf("index line %d has %d dimensions, snapshot holds %d", lineNo, len(entry.Embedding), ix.dim)
		}
		ix.entries = append(ix.entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read index snapshot: %w", err)
	}
	if len(ix.entries) == 0 {
		return nil, fmt.Errorf("index snapshot %q contains no entries", path)
	}

	ix.norms = computeNorms(ix.entries)
	return ix, nil
}

// Search returns the top k records by cosine similarity, ordered descending;
// ties break toward the earlier corpus record. Scores are clamped to [0,1].
// Fewer than k results come back when the index is smaller than k.
func (ix *Index) Search(queryVec []float64, k int) []Result {
	if k <= 0 || len(ix.entries) == 0 {
		return nil
	}

	queryNorm := vectorNorm(queryVec)
	scored := make([]Result, 0, len(ix.entries))
	for i, entry := range ix.entries {
		if len(entry.Embedding) != len(queryVec) {
			continue
		}
		score := cosineSimilarity(queryVec, entry.Embedding, queryNorm, ix.norms[i])
		if score < 0 {
			score = 0
		} else if score > 1 {
			score = 1
		}
		scored = append(scored, Result{
			Record: corpus.Record{ID: entry.RecordID, Question: entry.Question, Answer: entry.Answer},
			Score:  score,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Record.ID < scored[j].Record.ID
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}

func computeNorms(entries []Entry) []float64 {
	norms := make([]float64, len(entries))
	for i, entry := range entries {
		norms[i] = vectorNorm(entry.Embedding)
	}
	return norms
}

func cosineSimilarity(a, b []float64, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	dot := 0.0
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot / (normA * normB)
}

func vectorNorm(v []float64) float64 {
	sum := 0.0
	for _, val := range v {
		sum += val * val
	}
	return math.Sqrt(sum)
}
