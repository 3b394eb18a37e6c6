// Package platform describes the messaging platform the bot runs on. Adapters
// (Discord, Telegram) implement Messenger and feed events into a Handler.
package platform

import (
	"context"
	"strconv"
)

// Message is an inbound message, normalized across platforms.
type Message struct {
	ID         string
	ChannelID  int64
	AuthorID   string
	AuthorName string
	Text       string
	// Direct is true for one-to-one conversations.
	Direct bool
	// Mentioned is true when the bot was explicitly addressed
	// (mention or reply to one of its messages).
	Mentioned bool
	FromSelf  bool
}

// Directive is a platform-native structured command (slash command).
type Directive struct {
	Name      string
	Arg       string
	ChannelID int64
	AuthorID  string
	Direct    bool
	// TriggerID is the message that carried the directive, when there is one.
	TriggerID string
	// AckID is the bot's own placeholder answer to the directive, when the
	// platform posts one before the directive runs. Deletions leave it alone.
	AckID     string
	Responder Responder
}

type Attachment struct {
	Name string
	Data []byte
}

// Outgoing is a message the bot sends. A non-empty ReplyTo threads the
// message under that id without pinging its author.
type Outgoing struct {
	ChannelID  int64
	Text       string
	ReplyTo    string
	Attachment *Attachment
}

// Messenger is the REST side of a platform.
type Messenger interface {
	SelfID() string
	Send(ctx context.Context, out Outgoing) error
	// Recent returns up to limit messages older than before, newest first.
	// An empty before means "latest".
	Recent(ctx context.Context, channelID int64, before string, limit int) ([]Message, error)
	// HasNewer reports whether anything was posted after the given message.
	HasNewer(ctx context.Context, channelID int64, after string) (bool, error)
	Delete(ctx context.Context, channelID int64, messageID string) error
	// Typing shows a typing indicator until stop is called.
	Typing(ctx context.Context, channelID int64) (stop func())
}

// Responder answers a command in place.
type Responder interface {
	Respond(ctx context.Context, text string) error
}

// Handler consumes normalized events from an adapter.
type Handler interface {
	HandleMessage(ctx context.Context, msg Message)
	HandleDirective(ctx context.Context, d Directive)
}

// ReplyResponder answers by replying to a message.
type ReplyResponder struct {
	Messenger Messenger
	ChannelID int64
	MessageID string
}

func (r ReplyResponder) Respond(ctx context.Context, text string) error {
	return r.Messenger.Send(ctx, Outgoing{ChannelID: r.ChannelID, Text: text, ReplyTo: r.MessageID})
}

// FormatID and ParseID convert between conversation ids and the decimal
// strings platforms use on the wire.
func FormatID(id int64) string { return strconv.FormatInt(id, 10) }

func ParseID(s string) (int64, error) { return strconv.ParseInt(s, 10, 64) }
