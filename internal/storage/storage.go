package storage

import (
	"errors"
	"fmt"
	"time"

	"channel-chatter/internal/llm"
)

// ErrMalformedSnapshot wraps every decode or invariant failure on load.
var ErrMalformedSnapshot = errors.New("malformed conversation snapshot")

// Event kinds recorded in the interaction log.
const (
	KindReply      = "reply"
	KindObserve    = "observe"
	KindRegenerate = "regenerate"
	KindCommand    = "command"
)

// Event represents a single handled inbound message.
// It is intentionally simple to allow future DB implementations.
type Event struct {
	Timestamp         time.Time `json:"timestamp"`
	ChannelID         int64     `json:"channel_id"`
	AuthorID          string    `json:"author_id,omitempty"`
	Kind              string    `json:"kind"`
	UserMessage       string    `json:"user_message,omitempty"`
	AssistantResponse string    `json:"assistant_response,omitempty"`
	Model             string    `json:"model,omitempty"`
}

// Recorder abstracts persistence of interaction events.
// LoadInteractions should return events in chronological order.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendInteraction(event Event) error
	LoadInteractions() ([]Event, error)
}

// Snapshotter persists the whole conversation store. Save overwrites the
// previous snapshot; Load of a snapshot that was never written returns an
// empty map and no error.
type Snapshotter interface {
	Load() (map[int64][]llm.Message, error)
	Save(snap map[int64][]llm.Message) error
	Close() error
}

func validateSnapshot(snap map[int64][]llm.Message) error {
	for id, turns := range snap {
		if len(turns) == 0 {
			continue
		}
		if turns[0].Role != llm.RoleSystem {
			return fmt.Errorf("%w: conversation %d does not start with a system turn", ErrMalformedSnapshot, id)
		}
	}
	return nil
}
