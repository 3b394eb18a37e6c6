package discord

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-chatter/internal/platform"
)

type fakeREST struct {
	mu      sync.Mutex
	sent    []*discordgo.MessageSend
	history []*discordgo.Message // newest first
	deleted []string
	typing  int

	lastBefore, lastAfter string
	lastLimit             int
}

func (f *fakeREST) ChannelMessageSendComplex(_ string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	return &discordgo.Message{}, nil
}

func (f *fakeREST) ChannelMessages(_ string, limit int, before, after, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastBefore, f.lastAfter, f.lastLimit = before, after, limit
	if after != "" {
		if len(f.history) > 0 && f.history[0].ID != after {
			return f.history[:1], nil
		}
		return nil, nil
	}
	return f.history, nil
}

func (f *fakeREST) ChannelMessageDelete(_, id string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeREST) ChannelTyping(string, ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return nil
}

func TestSendPlainAndThreaded(t *testing.T) {
	api := &fakeREST{}
	m := NewMessenger(api)

	require.NoError(t, m.Send(context.Background(), platform.Outgoing{ChannelID: 10, Text: "hi"}))
	require.NoError(t, m.Send(context.Background(), platform.Outgoing{ChannelID: 10, Text: "late", ReplyTo: "55"}))

	require.Len(t, api.sent, 2)
	assert.Equal(t, "hi", api.sent[0].Content)
	assert.Nil(t, api.sent[0].Reference)

	assert.Equal(t, "55", api.sent[1].Reference.MessageID)
	require.NotNil(t, api.sent[1].AllowedMentions)
	assert.Empty(t, api.sent[1].AllowedMentions.Parse)
	assert.False(t, api.sent[1].AllowedMentions.RepliedUser)
}

func TestSendAttachment(t *testing.T) {
	api := &fakeREST{}
	m := NewMessenger(api)
	err := m.Send(context.Background(), platform.Outgoing{
		ChannelID:  10,
		Attachment: &platform.Attachment{Name: platform.AttachmentName, Data: []byte("long text")},
	})
	require.NoError(t, err)

	require.Len(t, api.sent[0].Files, 1)
	f := api.sent[0].Files[0]
	assert.Equal(t, "reply.txt", f.Name)
	body, err := io.ReadAll(f.Reader)
	require.NoError(t, err)
	assert.Equal(t, "long text", string(body))
}

func TestRecentAndHasNewer(t *testing.T) {
	api := &fakeREST{history: []*discordgo.Message{
		{ID: "3", ChannelID: "10", GuildID: "1", Author: &discordgo.User{ID: "bot"}},
		{ID: "2", ChannelID: "10", GuildID: "1", Author: &discordgo.User{ID: "ann", Username: "ann"}},
	}}
	m := NewMessenger(api)
	m.setSelf("bot")

	msgs, err := m.Recent(context.Background(), 10, "4", 100)
	require.NoError(t, err)
	assert.Equal(t, "4", api.lastBefore)
	assert.Equal(t, 100, api.lastLimit)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].FromSelf)
	assert.Equal(t, "ann", msgs[1].AuthorID)

	newer, err := m.HasNewer(context.Background(), 10, "2")
	require.NoError(t, err)
	assert.True(t, newer)
	newer, err = m.HasNewer(context.Background(), 10, "3")
	require.NoError(t, err)
	assert.False(t, newer)

	require.NoError(t, m.Delete(context.Background(), 10, "3"))
	assert.Equal(t, []string{"3"}, api.deleted)
}

func TestTypingStops(t *testing.T) {
	api := &fakeREST{}
	m := NewMessenger(api)
	stop := m.Typing(context.Background(), 10)
	stop()

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.GreaterOrEqual(t, api.typing, 1)
}

func TestToMessage(t *testing.T) {
	m, ok := toMessage(&discordgo.Message{
		ID:        "9",
		ChannelID: "10",
		GuildID:   "1",
		Content:   "<@bot> how are you?",
		Author:    &discordgo.User{ID: "ann", Username: "ann_99", GlobalName: "Ann"},
		Mentions:  []*discordgo.User{{ID: "bot"}},
	}, "bot")
	require.True(t, ok)

	assert.Equal(t, platform.Message{
		ID: "9", ChannelID: 10, AuthorID: "ann", AuthorName: "Ann",
		Text: "how are you?", Mentioned: true,
	}, m)
}

func TestToMessageReplyCountsAsMention(t *testing.T) {
	m, _ := toMessage(&discordgo.Message{
		ID: "9", ChannelID: "10", GuildID: "1", Content: "and then?",
		Author:            &discordgo.User{ID: "ann", Username: "ann_99"},
		ReferencedMessage: &discordgo.Message{Author: &discordgo.User{ID: "bot"}},
	}, "bot")
	assert.True(t, m.Mentioned)
	assert.Equal(t, "ann_99", m.AuthorName)
	assert.False(t, m.Direct)
}

func TestToMessageDirect(t *testing.T) {
	m, _ := toMessage(&discordgo.Message{ID: "1", ChannelID: "5", Content: "hey", Author: &discordgo.User{ID: "bot"}}, "bot")
	assert.True(t, m.Direct)
	assert.True(t, m.FromSelf)
	assert.False(t, m.Mentioned)
}

func TestToMessageRejectsBadChannelID(t *testing.T) {
	_, ok := toMessage(&discordgo.Message{ID: "1", ChannelID: "not-a-number", Content: "hey", Author: &discordgo.User{ID: "ann"}}, "bot")
	assert.False(t, ok)
}

func TestRecentSkipsBadChannelIDs(t *testing.T) {
	api := &fakeREST{history: []*discordgo.Message{
		{ID: "2", ChannelID: "10", Author: &discordgo.User{ID: "ann"}},
		{ID: "1", ChannelID: "", Author: &discordgo.User{ID: "bob"}},
	}}
	msgs, err := NewMessenger(api).Recent(context.Background(), 10, "", 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "2", msgs[0].ID)
}

func TestSlashCommands(t *testing.T) {
	cmds := slashCommands()
	byName := map[string]*discordgo.ApplicationCommand{}
	for _, c := range cmds {
		byName[c.Name] = c
	}
	for _, name := range []string{"register", "unregister", "amnesia", "setprompt", "nuke", "supernuke", "regenerate"} {
		assert.Contains(t, byName, name)
	}
	require.Len(t, byName["setprompt"].Options, 1)
	assert.Equal(t, discordgo.ApplicationCommandOptionString, byName["setprompt"].Options[0].Type)
	assert.Empty(t, byName["nuke"].Options)
}

type fakeInteractions struct {
	responded []*discordgo.InteractionResponse
	edits     []string
}

func (f *fakeInteractions) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.responded = append(f.responded, resp)
	return nil
}

func (f *fakeInteractions) InteractionResponseEdit(_ *discordgo.Interaction, e *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.edits = append(f.edits, *e.Content)
	return &discordgo.Message{}, nil
}

func (f *fakeInteractions) InteractionResponse(*discordgo.Interaction, ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{ID: "ack"}, nil
}

type directiveHandler struct{ got []platform.Directive }

func (h *directiveHandler) HandleMessage(context.Context, platform.Message) {}
func (h *directiveHandler) HandleDirective(ctx context.Context, d platform.Directive) {
	h.got = append(h.got, d)
	_ = d.Responder.Respond(ctx, "done")
}

func TestInteractionBecomesDirective(t *testing.T) {
	c := &Client{messenger: NewMessenger(&fakeREST{}), logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	api := &fakeInteractions{}
	h := &directiveHandler{}

	c.onInteraction(context.Background(), api, &discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		ChannelID: "10",
		GuildID:   "1",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "ann"}},
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "setprompt",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "prompt", Type: discordgo.ApplicationCommandOptionString, Value: "be terse"},
			},
		},
	}, h)

	require.Len(t, api.responded, 1)
	assert.Equal(t, discordgo.InteractionResponseDeferredChannelMessageWithSource, api.responded[0].Type)
	require.Len(t, h.got, 1)
	d := h.got[0]
	assert.Equal(t, "setprompt", d.Name)
	assert.Equal(t, "be terse", d.Arg)
	assert.Equal(t, int64(10), d.ChannelID)
	assert.Equal(t, "ann", d.AuthorID)
	assert.False(t, d.Direct)
	assert.Equal(t, "ack", d.AckID)
	assert.Empty(t, d.TriggerID)
	assert.Equal(t, []string{"done"}, api.edits)
}

func TestDirectInteraction(t *testing.T) {
	d, err := toDirective(&discordgo.Interaction{
		Type:      discordgo.InteractionApplicationCommand,
		ChannelID: "5",
		User:      &discordgo.User{ID: "ann"},
		Data:      discordgo.ApplicationCommandInteractionData{Name: "amnesia"},
	})
	require.NoError(t, err)
	assert.True(t, d.Direct)
	assert.Equal(t, "ann", d.AuthorID)
	assert.Empty(t, d.Arg)
}
