package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"channel-chatter/internal/commands"
	"channel-chatter/internal/platform"
)

// Client owns the gateway session and turns Discord events into
// platform events.
type Client struct {
	session   *discordgo.Session
	messenger *Messenger
	status    string
	logger    *slog.Logger
}

func New(token, status string, logger *slog.Logger) (*Client, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentGuildMessages |
		discordgo.IntentDirectMessages |
		discordgo.IntentMessageContent
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{session: s, messenger: NewMessenger(s), status: status, logger: logger}, nil
}

func (c *Client) Messenger() *Messenger { return c.messenger }

// Run connects and delivers events to h until ctx is done.
func (c *Client) Run(ctx context.Context, h platform.Handler) error {
	c.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		c.onReady(s, r)
	})
	c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil {
			return
		}
		msg, ok := toMessage(m.Message, c.messenger.SelfID())
		if !ok {
			c.logger.Warn("dropping message with bad channel id", "channel", m.ChannelID)
			return
		}
		h.HandleMessage(ctx, msg)
	})
	c.session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		c.onInteraction(ctx, s, i.Interaction, h)
	})

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	c.logger.Info("discord gateway connected")
	<-ctx.Done()
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("close discord gateway: %w", err)
	}
	return nil
}

func (c *Client) onReady(s *discordgo.Session, r *discordgo.Ready) {
	c.messenger.setSelf(r.User.ID)
	c.logger.Info("logged in", "user", r.User.Username, "guilds", len(r.Guilds))
	if c.status != "" {
		if err := s.UpdateCustomStatus(c.status); err != nil {
			c.logger.Warn("failed to set status", "err", err)
		}
	}
	if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, "", slashCommands()); err != nil {
		c.logger.Warn("failed to register slash commands", "err", err)
	}
}

type interactionAPI interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionResponse(interaction *discordgo.Interaction, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

func (c *Client) onInteraction(ctx context.Context, api interactionAPI, i *discordgo.Interaction, h platform.Handler) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	d, err := toDirective(i)
	if err != nil {
		c.logger.Warn("bad interaction", "err", err)
		return
	}
	// Interactions must be acknowledged within three seconds.
	err = api.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}, discordgo.WithContext(ctx))
	if err != nil {
		c.logger.Warn("failed to acknowledge interaction", "err", err)
		return
	}
	if ack, err := api.InteractionResponse(i, discordgo.WithContext(ctx)); err != nil {
		c.logger.Debug("couldn't fetch interaction acknowledgment", "err", err)
	} else if ack != nil {
		d.AckID = ack.ID
	}
	d.Responder = interactionResponder{api: api, interaction: i}
	h.HandleDirective(ctx, d)
}

type interactionResponder struct {
	api         interactionAPI
	interaction *discordgo.Interaction
}

func (r interactionResponder) Respond(ctx context.Context, text string) error {
	if _, err := r.api.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{Content: &text}, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit interaction response: %w", err)
	}
	return nil
}

func slashCommands() []*discordgo.ApplicationCommand {
	defs := commands.Definitions()
	out := make([]*discordgo.ApplicationCommand, 0, len(defs))
	for _, d := range defs {
		cmd := &discordgo.ApplicationCommand{Name: d.Name, Description: d.Description}
		if d.ArgName != "" {
			cmd.Options = []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        d.ArgName,
				Description: d.ArgDescription,
				Required:    true,
			}}
		}
		out = append(out, cmd)
	}
	return out
}

func toDirective(i *discordgo.Interaction) (platform.Directive, error) {
	ch, err := platform.ParseID(i.ChannelID)
	if err != nil {
		return platform.Directive{}, fmt.Errorf("channel id %q: %w", i.ChannelID, err)
	}
	data := i.ApplicationCommandData()
	d := platform.Directive{Name: data.Name, ChannelID: ch, Direct: i.GuildID == ""}
	for _, opt := range data.Options {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			d.Arg = opt.StringValue()
			break
		}
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		d.AuthorID = i.Member.User.ID
	case i.User != nil:
		d.AuthorID = i.User.ID
	}
	return d, nil
}

// toMessage normalizes a Discord message. Mentions of the bot are stripped
// from the text. ok is false when the channel id is not numeric.
func toMessage(m *discordgo.Message, self string) (platform.Message, bool) {
	ch, err := platform.ParseID(m.ChannelID)
	if err != nil {
		return platform.Message{}, false
	}
	out := platform.Message{
		ID:        m.ID,
		ChannelID: ch,
		Text:      m.Content,
		Direct:    m.GuildID == "",
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
		out.AuthorName = displayName(m.Author)
		out.FromSelf = self != "" && m.Author.ID == self
	}
	if self == "" {
		return out, true
	}
	for _, u := range m.Mentions {
		if u != nil && u.ID == self {
			out.Mentioned = true
			break
		}
	}
	if ref := m.ReferencedMessage; ref != nil && ref.Author != nil && ref.Author.ID == self {
		out.Mentioned = true
	}
	if out.Mentioned {
		text := strings.ReplaceAll(out.Text, "<@"+self+">", "")
		text = strings.ReplaceAll(text, "<@!"+self+">", "")
		out.Text = strings.TrimSpace(text)
	}
	return out, true
}

func displayName(u *discordgo.User) string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
