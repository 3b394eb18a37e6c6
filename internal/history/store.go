package history

import (
	"sort"
	"sync"

	"channel-chatter/internal/llm"
)

// Store maps conversation ids to histories. Reads share the lock; every
// mutation, including work done inside Update, holds it exclusively.
type Store struct {
	mu            sync.RWMutex
	sessions      map[int64]*History
	defaultPrompt string
}

func NewStore(defaultPrompt string) *Store {
	return &Store{sessions: make(map[int64]*History), defaultPrompt: defaultPrompt}
}

func (s *Store) DefaultPrompt() string { return s.defaultPrompt }

// Get returns a copy of the conversation's turns and whether it is registered.
func (s *Store) Get(id int64) ([]llm.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return h.Turns(), true
}

func (s *Store) Registered(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[id]
	return ok
}

// GetOrCreate returns the conversation's turns, creating the default history
// first if needed. created reports whether a new entry was inserted.
func (s *Store) GetOrCreate(id int64) (turns []llm.Message, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, created := s.getOrCreateLocked(id)
	return h.Turns(), created
}

func (s *Store) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Reset discards everything, system prompt included, and reinstalls the default.
func (s *Store) Reset(id int64) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := New(s.defaultPrompt)
	s.sessions[id] = h
	return h.Turns()
}

// Update runs fn on the conversation's history under the write lock, creating
// the history first. created tells fn whether it did.
func (s *Store) Update(id int64, fn func(h *History, created bool) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, created := s.getOrCreateLocked(id)
	return fn(h, created)
}

// UpdateExisting is Update for registered conversations only; ok is false
// and fn is not called when id has no history.
func (s *Store) UpdateExisting(id int64, fn func(h *History) error) (ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.sessions[id]
	if !ok {
		return false, nil
	}
	return true, fn(h)
}

// Snapshot copies the whole store.
func (s *Store) Snapshot() map[int64][]llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64][]llm.Message, len(s.sessions))
	for id, h := range s.sessions {
		out[id] = h.Turns()
	}
	return out
}

// Load replaces the store contents with snap. A conversation saved without
// any turns comes back holding the default system turn.
func (s *Store) Load(snap map[int64][]llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[int64]*History, len(snap))
	for id, turns := range snap {
		if len(turns) == 0 {
			s.sessions[id] = New(s.defaultPrompt)
			continue
		}
		s.sessions[id] = FromTurns(turns)
	}
}

// IDs lists registered conversations in ascending order.
func (s *Store) IDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Store) getOrCreateLocked(id int64) (*History, bool) {
	if h, ok := s.sessions[id]; ok {
		return h, false
	}
	h := New(s.defaultPrompt)
	s.sessions[id] = h
	return h, true
}
