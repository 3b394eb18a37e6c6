// Package telegram connects the bot to Telegram through the Bot API.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"channel-chatter/internal/commands"
	"channel-chatter/internal/platform"
)

// Client polls updates and turns them into platform events.
type Client struct {
	api       *tgbotapi.BotAPI
	messenger *Messenger
	logger    *slog.Logger
}

func New(botToken string, logger *slog.Logger) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:       api,
		messenger: newMessenger(botAPISender{api: api}, api.Self),
		logger:    logger,
	}, nil
}

func (c *Client) Messenger() *Messenger { return c.messenger }

// Run registers the command menu and handles updates until ctx is done.
func (c *Client) Run(ctx context.Context, h platform.Handler) error {
	if _, err := c.api.Request(tgbotapi.NewSetMyCommands(botCommands()...)); err != nil {
		c.logger.Warn("failed to register bot commands", "err", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.api.GetUpdatesChan(u)
	c.logger.Info("telegram polling started", "user", c.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil {
				c.messenger.receive(ctx, update.Message, h)
			}
		}
	}
}

// receive records the message in arrival order and handles it in the
// background so polling continues during slow completions.
func (m *Messenger) receive(ctx context.Context, msg *tgbotapi.Message, h platform.Handler) {
	pm, ok := m.toMessage(msg)
	if !ok {
		return
	}
	m.observe(pm)
	go m.route(ctx, msg, pm, h)
}

// route turns slash commands into directives and everything else into a
// message.
func (m *Messenger) route(ctx context.Context, msg *tgbotapi.Message, pm platform.Message, h platform.Handler) {
	if msg.IsCommand() {
		if _, known := commands.Lookup(msg.Command(), ""); known {
			h.HandleDirective(ctx, platform.Directive{
				Name:      msg.Command(),
				Arg:       msg.CommandArguments(),
				ChannelID: pm.ChannelID,
				AuthorID:  pm.AuthorID,
				Direct:    pm.Direct,
				TriggerID: pm.ID,
				Responder: platform.ReplyResponder{Messenger: m, ChannelID: pm.ChannelID, MessageID: pm.ID},
			})
			return
		}
	}
	h.HandleMessage(ctx, pm)
}

func (m *Messenger) toMessage(msg *tgbotapi.Message) (platform.Message, bool) {
	if msg.Chat == nil || msg.From == nil {
		return platform.Message{}, false
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	out := platform.Message{
		ID:         strconv.Itoa(msg.MessageID),
		ChannelID:  msg.Chat.ID,
		AuthorID:   strconv.FormatInt(msg.From.ID, 10),
		AuthorName: displayName(msg.From),
		Text:       text,
		Direct:     msg.Chat.IsPrivate(),
		FromSelf:   msg.From.ID == m.self.ID,
	}
	if r := msg.ReplyToMessage; r != nil && r.From != nil && r.From.ID == m.self.ID {
		out.Mentioned = true
	}
	if m.self.UserName != "" {
		handle := "@" + m.self.UserName
		if i := strings.Index(out.Text, handle); i >= 0 {
			out.Mentioned = true
			out.Text = strings.TrimSpace(out.Text[:i] + out.Text[i+len(handle):])
		}
	}
	return out, true
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.UserName
}

func botCommands() []tgbotapi.BotCommand {
	defs := commands.Definitions()
	out := make([]tgbotapi.BotCommand, 0, len(defs))
	for _, d := range defs {
		out = append(out, tgbotapi.BotCommand{Command: d.Name, Description: d.Description})
	}
	return out
}
