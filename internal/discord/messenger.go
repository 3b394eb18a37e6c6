// Package discord connects the bot to Discord through discordgo.
package discord

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"channel-chatter/internal/platform"
)

// typingRefresh is below the ~10s a single typing event lasts.
const typingRefresh = 8 * time.Second

// restAPI is the subset of *discordgo.Session the messenger uses.
type restAPI interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
}

// Messenger implements platform.Messenger over the Discord REST API.
type Messenger struct {
	api restAPI

	mu   sync.RWMutex
	self string
}

var _ platform.Messenger = (*Messenger)(nil)

func NewMessenger(api restAPI) *Messenger {
	return &Messenger{api: api}
}

func (m *Messenger) setSelf(id string) {
	m.mu.Lock()
	m.self = id
	m.mu.Unlock()
}

func (m *Messenger) SelfID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.self
}

func (m *Messenger) Send(ctx context.Context, out platform.Outgoing) error {
	ch := platform.FormatID(out.ChannelID)
	data := &discordgo.MessageSend{Content: out.Text}
	if out.ReplyTo != "" {
		data.Reference = &discordgo.MessageReference{MessageID: out.ReplyTo, ChannelID: ch}
		data.AllowedMentions = &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}
	}
	if out.Attachment != nil {
		data.Files = []*discordgo.File{{
			Name:        out.Attachment.Name,
			ContentType: "text/plain",
			Reader:      bytes.NewReader(out.Attachment.Data),
		}}
	}
	if _, err := m.api.ChannelMessageSendComplex(ch, data, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

func (m *Messenger) Recent(ctx context.Context, channelID int64, before string, limit int) ([]platform.Message, error) {
	msgs, err := m.api.ChannelMessages(platform.FormatID(channelID), limit, before, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("discord fetch messages: %w", err)
	}
	self := m.SelfID()
	out := make([]platform.Message, 0, len(msgs))
	for _, dm := range msgs {
		if pm, ok := toMessage(dm, self); ok {
			out = append(out, pm)
		}
	}
	return out, nil
}

func (m *Messenger) HasNewer(ctx context.Context, channelID int64, after string) (bool, error) {
	msgs, err := m.api.ChannelMessages(platform.FormatID(channelID), 1, "", after, "", discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("discord fetch messages: %w", err)
	}
	return len(msgs) > 0, nil
}

func (m *Messenger) Delete(ctx context.Context, channelID int64, messageID string) error {
	if err := m.api.ChannelMessageDelete(platform.FormatID(channelID), messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord delete: %w", err)
	}
	return nil
}

// Typing keeps the indicator alive until stop is called.
func (m *Messenger) Typing(ctx context.Context, channelID int64) func() {
	ch := platform.FormatID(channelID)
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(typingRefresh)
		defer t.Stop()
		for {
			_ = m.api.ChannelTyping(ch, discordgo.WithContext(ctx))
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
