// Package bot routes platform events: directives go to the dispatcher,
// everything else through engagement, completion and delivery. The store is
// persisted after every handled event.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"channel-chatter/internal/chat"
	"channel-chatter/internal/commands"
	"channel-chatter/internal/history"
	"channel-chatter/internal/llm"
	"channel-chatter/internal/platform"
	"channel-chatter/internal/storage"
)

type Bot struct {
	store      *history.Store
	engine     *chat.Engine
	dispatcher *commands.Dispatcher
	messenger  platform.Messenger
	delivery   platform.Delivery
	recorder   storage.Recorder
	snap       storage.Snapshotter
	logger     *slog.Logger

	saveMu sync.Mutex
	now    func() time.Time
}

type Options struct {
	Store      *history.Store
	Engine     *chat.Engine
	Dispatcher *commands.Dispatcher
	Messenger  platform.Messenger
	Delivery   platform.Delivery
	// Recorder and Snapshotter are optional.
	Recorder    storage.Recorder
	Snapshotter storage.Snapshotter
	Logger      *slog.Logger
}

var _ platform.Handler = (*Bot)(nil)

func New(o Options) *Bot {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return &Bot{
		store:      o.Store,
		engine:     o.Engine,
		dispatcher: o.Dispatcher,
		messenger:  o.Messenger,
		delivery:   o.Delivery,
		recorder:   o.Recorder,
		snap:       o.Snapshotter,
		logger:     o.Logger,
		now:        time.Now,
	}
}

// HandleMessage handles one inbound message.
func (b *Bot) HandleMessage(ctx context.Context, msg platform.Message) {
	if msg.FromSelf || msg.AuthorID == b.messenger.SelfID() {
		return
	}
	log := b.logger.With("channel", msg.ChannelID, "message", msg.ID)

	if cmd, ok := commands.Parse(msg.Text); ok {
		if !msg.Direct && cmd.Kind != commands.Register && !b.store.Registered(msg.ChannelID) {
			log.Debug("ignoring command in unregistered channel", "command", cmd.Kind.String())
			return
		}
		b.dispatcher.Dispatch(ctx, commands.Request{
			Command:   cmd,
			ChannelID: msg.ChannelID,
			AuthorID:  msg.AuthorID,
			Direct:    msg.Direct,
			TriggerID: msg.ID,
			Responder: platform.ReplyResponder{Messenger: b.messenger, ChannelID: msg.ChannelID, MessageID: msg.ID},
		})
		b.record(storage.Event{ChannelID: msg.ChannelID, AuthorID: msg.AuthorID, Kind: commandKind(cmd), UserMessage: msg.Text})
		b.persist()
		return
	}

	if strings.TrimSpace(msg.Text) == "" {
		return
	}
	if !msg.Direct && !b.store.Registered(msg.ChannelID) {
		return
	}

	utterance := chat.FormatUtterance(msg.AuthorName, msg.Text, msg.Direct)
	var (
		resp    llm.Response
		replied bool
	)
	handle := func(h *history.History) error {
		if msg.Direct || msg.Mentioned || b.engine.WantsToReply(ctx, h, utterance) {
			replied = true
			stop := b.messenger.Typing(ctx, msg.ChannelID)
			defer stop()
			var err error
			resp, err = b.engine.Respond(ctx, h, utterance)
			return err
		}
		b.engine.Observe(h, utterance)
		return nil
	}

	var err error
	if msg.Direct {
		err = b.store.Update(msg.ChannelID, func(h *history.History, created bool) error {
			if created {
				b.primeLocked(ctx, msg.ChannelID, h)
			}
			return handle(h)
		})
	} else {
		var ok bool
		ok, err = b.store.UpdateExisting(msg.ChannelID, handle)
		if !ok {
			// unregistered while we were waiting for the lock
			return
		}
	}

	ev := storage.Event{ChannelID: msg.ChannelID, AuthorID: msg.AuthorID, UserMessage: utterance, Kind: storage.KindObserve}
	switch {
	case err != nil:
		log.Warn("no reply sent", "err", err)
		ev.Kind = storage.KindReply
	case replied:
		ev.Kind = storage.KindReply
		ev.AssistantResponse = resp.Content
		ev.Model = resp.Model
		if err := b.delivery.Deliver(ctx, msg.ChannelID, msg.ID, resp.Content); err != nil {
			log.Warn("failed to deliver reply", "err", err)
		}
	}
	b.record(ev)
	b.persist()
}

// HandleDirective handles a structured command.
func (b *Bot) HandleDirective(ctx context.Context, d platform.Directive) {
	cmd, ok := commands.Lookup(d.Name, d.Arg)
	if !ok {
		b.logger.Warn("unknown directive", "name", d.Name)
		if err := d.Responder.Respond(ctx, fmt.Sprintf("Unknown command %q.", d.Name)); err != nil {
			b.logger.Warn("failed to answer directive", "err", err)
		}
		return
	}
	if !d.Direct && cmd.Kind != commands.Register && !b.store.Registered(d.ChannelID) {
		if err := d.Responder.Respond(ctx, commands.MsgNotRegistered); err != nil {
			b.logger.Warn("failed to answer directive", "err", err)
		}
		return
	}
	b.dispatcher.Dispatch(ctx, commands.Request{
		Command:    cmd,
		ChannelID:  d.ChannelID,
		AuthorID:   d.AuthorID,
		Direct:     d.Direct,
		TriggerID:  d.TriggerID,
		AckID:      d.AckID,
		Structured: true,
		Responder:  d.Responder,
	})
	b.record(storage.Event{ChannelID: d.ChannelID, AuthorID: d.AuthorID, Kind: storage.KindCommand, UserMessage: commands.Prefix + d.Name})
	b.persist()
}

// Flush writes the whole store to the snapshotter.
func (b *Bot) Flush() error {
	if b.snap == nil {
		return nil
	}
	b.saveMu.Lock()
	defer b.saveMu.Unlock()
	if err := b.snap.Save(b.store.Snapshot()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (b *Bot) persist() {
	if err := b.Flush(); err != nil {
		b.logger.Error("failed to persist conversations", "err", err)
	}
}

func (b *Bot) record(ev storage.Event) {
	if b.recorder == nil {
		return
	}
	ev.Timestamp = b.now().UTC()
	if err := b.recorder.AppendInteraction(ev); err != nil {
		b.logger.Warn("failed to record interaction", "err", err)
	}
}

func (b *Bot) primeLocked(ctx context.Context, channelID int64, h *history.History) {
	sys, ok := h.SystemTurn()
	if !ok {
		return
	}
	if err := b.engine.Prime(ctx, sys); err != nil {
		b.logger.Warn("couldn't prime system prompt", "channel", channelID, "err", err)
	}
}

func commandKind(cmd commands.Command) string {
	if cmd.Kind == commands.Regenerate {
		return storage.KindRegenerate
	}
	return storage.KindCommand
}
