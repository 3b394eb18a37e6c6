package history

import (
	"errors"

	"channel-chatter/internal/llm"
)

// ErrEmptyHistory is returned when an operation needs turn 0 and there is none.
var ErrEmptyHistory = errors.New("history has no system turn")

// History is the ordered turn list of one conversation. Turn 0 is always the
// system turn; it is replaced, never removed.
type History struct {
	turns []llm.Message
}

// New returns a history holding a single system turn.
func New(systemPrompt string) *History {
	return &History{turns: []llm.Message{llm.System(systemPrompt)}}
}

// FromTurns copies turns into a new history.
func FromTurns(turns []llm.Message) *History {
	h := &History{turns: make([]llm.Message, len(turns))}
	copy(h.turns, turns)
	return h
}

func (h *History) Len() int { return len(h.turns) }

// Turns returns a copy of the turn list.
func (h *History) Turns() []llm.Message {
	out := make([]llm.Message, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *History) Append(m llm.Message) { h.turns = append(h.turns, m) }

// Last returns the newest turn.
func (h *History) Last() (llm.Message, bool) {
	if len(h.turns) == 0 {
		return llm.Message{}, false
	}
	return h.turns[len(h.turns)-1], true
}

// Pop removes and returns the newest turn. The system turn is never popped.
func (h *History) Pop() (llm.Message, bool) {
	if len(h.turns) <= 1 {
		return llm.Message{}, false
	}
	m := h.turns[len(h.turns)-1]
	h.turns = h.turns[:len(h.turns)-1]
	return m, true
}

// SystemTurn returns turn 0.
func (h *History) SystemTurn() (llm.Message, bool) {
	if len(h.turns) == 0 {
		return llm.Message{}, false
	}
	return h.turns[0], true
}

// SetSystemPrompt replaces turn 0 with a system turn carrying prompt and
// returns the previous turn verbatim so it can be restored with RestoreSystem.
func (h *History) SetSystemPrompt(prompt string) (llm.Message, error) {
	if len(h.turns) == 0 {
		return llm.Message{}, ErrEmptyHistory
	}
	old := h.turns[0]
	h.turns[0] = llm.System(prompt)
	return old, nil
}

// RestoreSystem puts a previously captured turn back at index 0.
func (h *History) RestoreSystem(m llm.Message) {
	if len(h.turns) == 0 {
		h.turns = append(h.turns, m)
		return
	}
	h.turns[0] = m
}
