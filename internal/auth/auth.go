// Package auth keeps the operator allowlist. Operators may run destructive
// directives; an empty list lets everyone run them.
package auth

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrConfiguredOperator is returned when removing an operator that comes
// from the OPERATORS setting; it would be merged back on the next start.
var ErrConfiguredOperator = errors.New("operator is set in OPERATORS")

type Operator struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type Repository interface {
	LoadAll() ([]Operator, error)
	Upsert(op Operator) error
	Remove(id string) error
}

type Service struct {
	mu         sync.RWMutex
	repo       Repository
	operators  map[string]Operator
	configured map[string]bool
}

func NewWithRepo(repo Repository, initial []string) (*Service, error) {
	s := &Service{repo: repo, operators: make(map[string]Operator), configured: make(map[string]bool)}
	if repo != nil {
		ops, err := repo.LoadAll()
		if err != nil {
			return nil, err
		}
		for _, op := range ops {
			s.operators[op.ID] = op
		}
	}
	// merge ids from env without names
	for _, id := range initial {
		if id == "" {
			continue
		}
		s.configured[id] = true
		if _, ok := s.operators[id]; !ok {
			s.operators[id] = Operator{ID: id}
		}
	}
	return s, nil
}

// IsAllowed reports whether id may run destructive directives.
func (s *Service) IsAllowed(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.operators) == 0 {
		return true
	}
	_, ok := s.operators[id]
	return ok
}

func (s *Service) Upsert(op Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operators[op.ID] = op
	if s.repo != nil {
		return s.repo.Upsert(op)
	}
	return nil
}

func (s *Service) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configured[id] {
		return fmt.Errorf("%w: %s", ErrConfiguredOperator, id)
	}
	delete(s.operators, id)
	if s.repo != nil {
		return s.repo.Remove(id)
	}
	return nil
}

// List returns operators sorted by id.
func (s *Service) List() []Operator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Operator, 0, len(s.operators))
	for _, op := range s.operators {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
