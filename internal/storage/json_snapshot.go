package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"channel-chatter/internal/llm"
)

// JSONSnapshotter keeps the store as one JSON document keyed by the
// stringified conversation id:
//
//	{"42": [{"role": "system", "content": "..."}, ...]}
type JSONSnapshotter struct {
	path string
	mu   sync.Mutex
}

func NewJSONSnapshotter(path string) *JSONSnapshotter {
	return &JSONSnapshotter{path: path}
}

func (j *JSONSnapshotter) Load() (map[int64][]llm.Message, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	data, err := os.ReadFile(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[int64][]llm.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", j.path, err)
	}
	snap := map[int64][]llm.Message{}
	if len(data) == 0 {
		return snap, nil
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedSnapshot, j.path, err)
	}
	if err := validateSnapshot(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Save replaces the document atomically.
func (j *JSONSnapshotter) Save(snap map[int64][]llm.Message) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return WriteFileAtomic(j.path, data)
}

func (j *JSONSnapshotter) Close() error { return nil }
