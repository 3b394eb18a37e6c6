package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// maxEventLine caps a single JSONL record; longer lines abort the scan.
const maxEventLine = 10 * 1024 * 1024

// FileRecorder appends events to a JSON-lines file kept open for the
// recorder's lifetime.
type FileRecorder struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

func NewFileRecorder(path string) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open interaction log: %w", err)
	}
	return &FileRecorder{path: path, f: f, enc: json.NewEncoder(f)}, nil
}

func (r *FileRecorder) AppendInteraction(event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return os.ErrClosed
	}
	if err := r.enc.Encode(event); err != nil {
		return fmt.Errorf("append interaction: %w", err)
	}
	return nil
}

// LoadInteractions returns every decodable event. Broken lines are skipped.
func (r *FileRecorder) LoadInteractions() ([]Event, error) {
	return r.LoadSince(time.Time{})
}

// LoadSince is LoadInteractions restricted to events at or after since.
func (r *FileRecorder) LoadSince(since time.Time) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open interaction log: %w", err)
	}
	defer f.Close()
	return decodeEvents(f, since)
}

func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f, r.enc = nil, nil
	return err
}

func decodeEvents(src io.Reader, since time.Time) ([]Event, error) {
	s := bufio.NewScanner(src)
	s.Buffer(make([]byte, 0, 64*1024), maxEventLine)
	var events []Event
	for s.Scan() {
		line := s.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		if !since.IsZero() && ev.Timestamp.Before(since) {
			continue
		}
		events = append(events, ev)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("scan interaction log: %w", err)
	}
	return events, nil
}
