package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"channel-chatter/internal/platform"
)

// A chat action is shown for five seconds.
const typingRefresh = 4 * time.Second

// Messenger implements platform.Messenger over the Bot API.
type Messenger struct {
	s      sender
	self   tgbotapi.User
	window *window
}

var _ platform.Messenger = (*Messenger)(nil)

func newMessenger(s sender, self tgbotapi.User) *Messenger {
	return &Messenger{s: s, self: self, window: newWindow()}
}

func (m *Messenger) SelfID() string { return strconv.FormatInt(m.self.ID, 10) }

func (m *Messenger) Send(_ context.Context, out platform.Outgoing) error {
	replyTo := 0
	if out.ReplyTo != "" {
		id, err := strconv.Atoi(out.ReplyTo)
		if err != nil {
			return fmt.Errorf("reply target %q: %w", out.ReplyTo, err)
		}
		replyTo = id
	}

	var c tgbotapi.Chattable
	if out.Attachment != nil {
		doc := tgbotapi.NewDocument(out.ChannelID, tgbotapi.FileBytes{Name: out.Attachment.Name, Bytes: out.Attachment.Data})
		doc.Caption = out.Text
		doc.ReplyToMessageID = replyTo
		doc.AllowSendingWithoutReply = true
		c = doc
	} else {
		msg := tgbotapi.NewMessage(out.ChannelID, out.Text)
		msg.ReplyToMessageID = replyTo
		msg.AllowSendingWithoutReply = true
		c = msg
	}
	sent, err := m.s.Send(c)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if sent.MessageID != 0 {
		m.window.add(platform.Message{
			ID:        strconv.Itoa(sent.MessageID),
			ChannelID: out.ChannelID,
			AuthorID:  m.SelfID(),
			Text:      out.Text,
			FromSelf:  true,
		})
	}
	return nil
}

func (m *Messenger) Recent(_ context.Context, channelID int64, before string, limit int) ([]platform.Message, error) {
	return m.window.recent(channelID, before, limit), nil
}

func (m *Messenger) HasNewer(_ context.Context, channelID int64, after string) (bool, error) {
	return m.window.hasNewer(channelID, after), nil
}

func (m *Messenger) Delete(_ context.Context, channelID int64, messageID string) error {
	id, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("message id %q: %w", messageID, err)
	}
	if _, err := m.s.Request(tgbotapi.NewDeleteMessage(channelID, id)); err != nil {
		return fmt.Errorf("telegram delete: %w", err)
	}
	m.window.remove(channelID, messageID)
	return nil
}

func (m *Messenger) Typing(ctx context.Context, channelID int64) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(typingRefresh)
		defer t.Stop()
		for {
			_, _ = m.s.Request(tgbotapi.NewChatAction(channelID, tgbotapi.ChatTyping))
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// observe remembers an inbound message for Recent and HasNewer.
func (m *Messenger) observe(msg platform.Message) {
	m.window.add(msg)
}
