package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"channel-chatter/internal/storage"
)

// FileRepository stores operators as a JSON array sorted by id. Every change
// replaces the file atomically.
type FileRepository struct {
	path string
	mu   sync.Mutex
}

// NewFileRepository does not create the file; a missing file reads as empty.
func NewFileRepository(path string) (*FileRepository, error) {
	if path == "" {
		return nil, errors.New("operators file path is empty")
	}
	r := &FileRepository{path: path}
	if _, err := r.read(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRepository) LoadAll() ([]Operator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byID, err := r.read()
	if err != nil {
		return nil, err
	}
	return sorted(byID), nil
}

func (r *FileRepository) Upsert(op Operator) error {
	return r.modify(func(byID map[string]Operator) { byID[op.ID] = op })
}

func (r *FileRepository) Remove(id string) error {
	return r.modify(func(byID map[string]Operator) { delete(byID, id) })
}

func (r *FileRepository) modify(change func(map[string]Operator)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byID, err := r.read()
	if err != nil {
		return err
	}
	change(byID)
	data, err := json.MarshalIndent(sorted(byID), "", "  ")
	if err != nil {
		return fmt.Errorf("encode operators: %w", err)
	}
	return storage.WriteFileAtomic(r.path, append(data, '\n'))
}

func (r *FileRepository) read() (map[string]Operator, error) {
	byID := make(map[string]Operator)
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return byID, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read operators: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return byID, nil
	}
	var ops []Operator
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.path, err)
	}
	for _, op := range ops {
		byID[op.ID] = op
	}
	return byID, nil
}

func sorted(byID map[string]Operator) []Operator {
	out := make([]Operator, 0, len(byID))
	for _, op := range byID {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
