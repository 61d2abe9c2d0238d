// Package transcript records channel traffic as gzip-compressed NDJSON,
// one record per line. Transcripts are append-only session artifacts used
// for debugging event flows after the fact.
package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Frame directions.
const (
	DirInbound  = "in"
	DirOutbound = "out"
)

// Record is one transcript line.
type Record struct {
	At        time.Time       `json:"at"`
	Direction string          `json:"direction"`
	Frame     json.RawMessage `json:"frame"`
}

// Writer appends records to a gzip-compressed transcript file.
type Writer struct {
	mu sync.Mutex
	f  *os.File
	zw *gzip.Writer
	bw *bufio.Writer
}

// NewWriter creates (or truncates) a transcript at path.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create transcript: %w", err)
	}
	zw := gzip.NewWriter(f)
	return &Writer{f: f, zw: zw, bw: bufio.NewWriter(zw)}, nil
}

// Record appends one frame. Non-JSON frames (the liveness sentinels) are
// quoted so every line stays valid JSON.
func (w *Writer) Record(direction string, frame []byte) error {
	raw := json.RawMessage(frame)
	if !json.Valid(frame) {
		quoted, err := json.Marshal(string(frame))
		if err != nil {
			return fmt.Errorf("quote frame: %w", err)
		}
		raw = quoted
	}

	line, err := json.Marshal(Record{At: time.Now().UTC(), Direction: direction, Frame: raw})
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return os.ErrClosed
	}
	if _, err := w.bw.Write(line); err != nil {
		return err
	}
	return w.bw.WriteByte('\n')
}

// Close flushes and finalizes the gzip stream.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	defer func() { w.f = nil }()

	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return err
	}
	if err := w.zw.Close(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// Read loads every record from a transcript file.
func Read(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer zr.Close()

	var records []Record
	sc := bufio.NewScanner(zr)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("decode record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
