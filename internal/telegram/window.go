package telegram

import (
	"sort"
	"strconv"
	"sync"

	"channel-chatter/internal/platform"
)

// windowSize bounds how many messages are remembered per chat.
const windowSize = 200

// window remembers recent messages per chat. The Bot API has no history
// endpoint, so this is all Recent and HasNewer can see.
type window struct {
	mu    sync.Mutex
	chats map[int64][]platform.Message
}

func newWindow() *window {
	return &window{chats: make(map[int64][]platform.Message)}
}

func (w *window) add(m platform.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	msgs := append(w.chats[m.ChannelID], m)
	if len(msgs) > windowSize {
		msgs = append([]platform.Message(nil), msgs[len(msgs)-windowSize:]...)
	}
	w.chats[m.ChannelID] = msgs
}

func (w *window) remove(chatID int64, id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	msgs := w.chats[chatID]
	for i, m := range msgs {
		if m.ID == id {
			w.chats[chatID] = append(msgs[:i:i], msgs[i+1:]...)
			return
		}
	}
}

// recent returns up to limit messages with ids below before, newest first.
func (w *window) recent(chatID int64, before string, limit int) []platform.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, hasBefore := messageNumber(before)
	var out []platform.Message
	for _, m := range w.chats[chatID] {
		n, _ := messageNumber(m.ID)
		if hasBefore && n >= b {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := messageNumber(out[i].ID)
		c, _ := messageNumber(out[j].ID)
		return a > c
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (w *window) hasNewer(chatID int64, after string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	a, ok := messageNumber(after)
	if !ok {
		return false
	}
	for _, m := range w.chats[chatID] {
		if n, _ := messageNumber(m.ID); n > a {
			return true
		}
	}
	return false
}

func messageNumber(id string) (int, bool) {
	if id == "" {
		return 0, false
	}
	n, err := strconv.Atoi(id)
	return n, err == nil
}
