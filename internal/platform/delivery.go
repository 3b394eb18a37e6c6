package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// ErrEmptyReply is returned for completions with nothing to send.
var ErrEmptyReply = errors.New("empty reply")

const AttachmentName = "reply.txt"

// Delivery sends completions, switching to a file attachment above Threshold
// characters and threading the answer when the channel moved on meanwhile.
// A failed threading check sends the answer unthreaded.
type Delivery struct {
	Messenger Messenger
	Threshold int
	Logger    *slog.Logger
}

func (d Delivery) Deliver(ctx context.Context, channelID int64, triggerID, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyReply
	}
	out := Outgoing{ChannelID: channelID}
	if triggerID != "" {
		newer, err := d.Messenger.HasNewer(ctx, channelID, triggerID)
		switch {
		case err != nil:
			d.logger().Warn("couldn't check for newer messages, sending unthreaded", "channel", channelID, "err", err)
		case newer:
			out.ReplyTo = triggerID
		}
	}
	if d.Threshold > 0 && utf8.RuneCountInString(text) > d.Threshold {
		out.Attachment = &Attachment{Name: AttachmentName, Data: []byte(text)}
	} else {
		out.Text = text
	}
	if err := d.Messenger.Send(ctx, out); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

func (d Delivery) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}
