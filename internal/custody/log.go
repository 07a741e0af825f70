// Package custody maintains the append-only chain-of-custody log.
package custody

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Header is the fixed first row of every custody log.
var Header = []string{"timestamp", "filename", "sha256", "commit_id"}

// Record is one custody row: the identity of a processed document tied
// to its digest and the ledger entry anchoring its content.
type Record struct {
	Timestamp time.Time
	Filename  string
	Digest    string
	CommitID  string
}

// Log appends custody records to a delimited file. Rows are only ever
// appended; existing rows are never rewritten. Each append is a single
// write of one complete row, so a concurrent reader sees whole rows or
// nothing.
type Log struct {
	path string
	mu   sync.Mutex
}

// NewLog initializes the log at path, writing the header row if the
// file does not exist yet.
func NewLog(path string) (*Log, error) {
	l := &Log{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write(Header); err != nil {
			return nil, err
		}
		w.Flush()
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("init custody log %s: %w", path, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat custody log %s: %w", path, err)
	}
	return l, nil
}

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// Append writes one record as a single atomic row. The row is encoded
// in memory first; the file sees exactly one Write call.
func (l *Log) Append(rec Record) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	row := []string{
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
		rec.Filename,
		rec.Digest,
		rec.CommitID,
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open custody log %s: %w", l.path, err)
	}
	defer f.Close()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("append custody row: %w", err)
	}
	return f.Sync()
}

// Records reads every row currently in the log, skipping the header.
func (l *Log) Records() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.Open(l.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)
	var out []Record
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read custody log: %w", err)
		}
		if first {
			first = false
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad timestamp %q: %w", len(out)+1, row[0], err)
		}
		out = append(out, Record{
			Timestamp: ts,
			Filename:  row[1],
			Digest:    row[2],
			CommitID:  row[3],
		})
	}
	return out, nil
}
