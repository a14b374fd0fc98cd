// internal/corpus/corpus.go
// Package corpus loads question/answer records from a CSV source.
package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMalformedRecord indicates a corpus row missing its question or answer.
var ErrMalformedRecord = errors.New("malformed corpus record")

// Record is one question/answer pair about the subject. IDs are assigned in
// file order at load time and remain stable for the process lifetime.
type Record struct {
	ID       int
	Question string
	Answer   string
}

// Load reads all records from the CSV file at path.
func Load(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: open %q: %w", path, err)
	}
	defer file.Close()
	return Read(file)
}

// Read parses corpus records from r. The header row must name question and
// answer columns (case-insensitive); extra columns are ignored. Any data row
// with a blank question or answer fails the whole load.
func Read(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	// Ragged rows are tolerated; the needed columns are checked per row.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("corpus: %w: missing header row", ErrMalformedRecord)
	}
	if err != nil {
		return nil, fmt.Errorf("corpus: read header: %w", err)
	}

	questionCol, answerCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "question":
			questionCol = i
		case "answer":
			answerCol = i
		}
	}
	if questionCol < 0 || answerCol < 0 {
		return nil, fmt.Errorf("corpus: %w: header must name question and answer columns", ErrMalformedRecord)
	}

	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum := len(records) + 1
		if err != nil {
			return nil, fmt.Errorf("corpus: record %d: %w", rowNum, err)
		}
		if questionCol >= len(row) || answerCol >= len(row) {
			return nil, fmt.Errorf("corpus: %w: record %d has %d fields", ErrMalformedRecord, rowNum, len(row))
		}
		question := strings.TrimSpace(row[questionCol])
		answer := strings.TrimSpace(row[answerCol])
		if question == "" || answer == "" {
			return nil, fmt.Errorf("corpus: %w: record %d lacks a question or answer", ErrMalformedRecord, rowNum)
		}
		records = append(records, Record{ID: rowNum, Question: question, Answer: answer})
	}
	return records, nil
}
