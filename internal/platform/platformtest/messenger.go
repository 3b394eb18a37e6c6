// Package platformtest provides an in-memory platform.Messenger for tests.
package platformtest

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"channel-chatter/internal/platform"
)

// Messenger keeps messages in memory. Messages are kept per
// channel in posting order; ids are assigned sequentially.
type Messenger struct {
	mu       sync.Mutex
	Self     string
	nextID   int
	channels map[int64][]platform.Message
	Sent     []platform.Outgoing
	Deleted  []string
	// FailDelete makes Delete fail for these ids.
	FailDelete  map[string]bool
	SendErr     error
	HasNewerErr error
	Typed       int
}

var _ platform.Messenger = (*Messenger)(nil)

func New(self string) *Messenger {
	return &Messenger{Self: self, channels: map[int64][]platform.Message{}, FailDelete: map[string]bool{}}
}

func (f *Messenger) SelfID() string { return f.Self }

// Post records a message as if a user (or the bot) wrote it and returns it.
func (f *Messenger) Post(channelID int64, authorID, text string) platform.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.postLocked(channelID, authorID, text)
}

func (f *Messenger) postLocked(channelID int64, authorID, text string) platform.Message {
	f.nextID++
	m := platform.Message{
		ID:        strconv.Itoa(f.nextID),
		ChannelID: channelID,
		AuthorID:  authorID,
		Text:      text,
		FromSelf:  authorID == f.Self,
	}
	f.channels[channelID] = append(f.channels[channelID], m)
	return m
}

func (f *Messenger) Send(_ context.Context, out platform.Outgoing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return f.SendErr
	}
	f.Sent = append(f.Sent, out)
	f.postLocked(out.ChannelID, f.Self, out.Text)
	return nil
}

func (f *Messenger) Recent(_ context.Context, channelID int64, before string, limit int) ([]platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := -1
	if before != "" {
		b, _ = strconv.Atoi(before)
	}
	var out []platform.Message
	for _, m := range f.channels[channelID] {
		id, _ := strconv.Atoi(m.ID)
		if b < 0 || id < b {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i].ID)
		c, _ := strconv.Atoi(out[j].ID)
		return a > c
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *Messenger) HasNewer(_ context.Context, channelID int64, after string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.HasNewerErr != nil {
		return false, f.HasNewerErr
	}
	a, _ := strconv.Atoi(after)
	for _, m := range f.channels[channelID] {
		id, _ := strconv.Atoi(m.ID)
		if id > a {
			return true, nil
		}
	}
	return false, nil
}

func (f *Messenger) Delete(_ context.Context, channelID int64, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailDelete[messageID] {
		return errUnknownMessage
	}
	msgs := f.channels[channelID]
	for i, m := range msgs {
		if m.ID == messageID {
			f.channels[channelID] = append(msgs[:i:i], msgs[i+1:]...)
			f.Deleted = append(f.Deleted, messageID)
			return nil
		}
	}
	return errUnknownMessage
}

func (f *Messenger) Typing(context.Context, int64) func() {
	f.mu.Lock()
	f.Typed++
	f.mu.Unlock()
	return func() {}
}

// Messages returns what is left in a channel, oldest first.
func (f *Messenger) Messages(channelID int64) []platform.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Message(nil), f.channels[channelID]...)
}

// SentCopy returns what has been sent so far.
func (f *Messenger) SentCopy() []platform.Outgoing {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Outgoing(nil), f.Sent...)
}

type fakeError string

func (e fakeError) Error() string { return string(e) }

const errUnknownMessage = fakeError("unknown message")
