package transcript

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"marketplace-assistant-be/pkg/store"
)

var csvHeader = []string{"session_id", "timestamp", "sender", "message"}

// CSVSink writes {dir}/{session_id}.csv. A session that is ended more than once
// keeps appending to the same file.
type CSVSink struct {
	dir string
	mu  sync.Mutex
}

func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{dir: dir}
}

// Path returns the file a session's transcript goes to
func (s *CSVSink) Path(sessionID string) string {
	return filepath.Join(s.dir, filepath.Base(sessionID)+".csv")
}

func (s *CSVSink) Persist(ctx context.Context, sessionID string, turns []store.Turn) error {
	if sessionID == "" {
		return errors.New("csv sink: empty session id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}

	path := s.Path(sessionID)
	_, statErr := os.Stat(path)
	newFile := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}
	for _, t := range turns {
		if err := w.Write([]string{sessionID, t.Timestamp.Format(time.RFC3339Nano), t.Role, t.Content}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return f.Sync()
}

// Record is one row of a CSV transcript
type Record struct {
	SessionID string
	Timestamp time.Time
	Turn      store.Turn
}

// ReadCSV reads a transcript written by CSVSink
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []Record{}, nil
		}
		return nil, err
	}
	for i, col := range csvHeader {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected column %q at %d, want %q", header[i], i, col)
		}
	}

	records := []Record{}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339Nano, row[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", len(records)+2, err)
		}
		records = append(records, Record{
			SessionID: row[0],
			Timestamp: ts,
			Turn:      store.Turn{Role: row[2], Content: row[3], Timestamp: ts},
		})
	}
	return records, nil
}

// ReadCSVFile opens path and reads it with ReadCSV
func ReadCSVFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}
