package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"channel-chatter/internal/chat"
	"channel-chatter/internal/history"
	"channel-chatter/internal/llm"
	"channel-chatter/internal/platform"
	"channel-chatter/internal/tasks"
)

// Replies sent back to the invoker.
const (
	MsgRegistered        = "I will now respond to messages in this channel!"
	MsgAlreadyRegistered = "I'm already registered in this channel."
	MsgRegisterDirect    = "I will always reply to our private messages!"
	MsgGoodbye           = "Goodbye!"
	MsgUnregisterDirect  = "Sorry, you can't unregister in DMs\nBut, if you want to reset the chat you can use: `!amnesia`"
	MsgAmnesia           = "Chat history has been reset!"
	MsgPromptSet         = "System prompt set!"
	MsgPromptUsage       = "Usage: `!setprompt <new system prompt>`"
	MsgNukeQueued        = "Deleting my recent messages."
	MsgSuperNukeQueued   = "Deleting recent messages."
	MsgNotOperator       = "Only operators can do that."
	MsgNotRegistered     = "I'm not registered in this channel. Use `!register` first."
	MsgBusy              = "I'm busy right now, try again in a moment."
	MsgNothingToRedo     = "There is nothing to regenerate yet."
	MsgRegenerated       = "Regenerated the last answer."
	MsgRegenerateFailed  = "Sorry, I couldn't come up with a new answer."
)

// Submitter queues background work.
type Submitter interface {
	Submit(name string, fn tasks.Func) (string, error)
}

// Authorizer gates destructive directives.
type Authorizer interface {
	IsAllowed(userID string) bool
}

// Request is one directive invocation.
type Request struct {
	Command   Command
	ChannelID int64
	AuthorID  string
	Direct    bool
	// TriggerID is the message that carried the directive, when there is one.
	TriggerID  string
	// AckID is the bot's placeholder answer to a structured directive.
	AckID      string
	Structured bool
	Responder  platform.Responder
}

type Dispatcher struct {
	store        *history.Store
	engine       *chat.Engine
	messenger    platform.Messenger
	delivery     platform.Delivery
	tasks        Submitter
	auth         Authorizer
	deleteWindow int
	logger       *slog.Logger
}

type Options struct {
	Store        *history.Store
	Engine       *chat.Engine
	Messenger    platform.Messenger
	Delivery     platform.Delivery
	Tasks        Submitter
	Auth         Authorizer
	DeleteWindow int
	Logger       *slog.Logger
}

func NewDispatcher(o Options) *Dispatcher {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return &Dispatcher{
		store:        o.Store,
		engine:       o.Engine,
		messenger:    o.Messenger,
		delivery:     o.Delivery,
		tasks:        o.Tasks,
		auth:         o.Auth,
		deleteWindow: o.DeleteWindow,
		logger:       o.Logger,
	}
}

// Dispatch runs the directive and answers through req.Responder. Delivery
// failures are logged.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) {
	log := d.logger.With("channel", req.ChannelID, "command", req.Command.Kind.String())
	log.Info("command received", "author", req.AuthorID)

	var reply string
	switch req.Command.Kind {
	case Register:
		reply = d.register(ctx, req)
	case Unregister:
		reply = d.unregister(req)
	case Amnesia:
		reply = d.amnesia(ctx, req)
	case SetPrompt:
		reply = d.setPrompt(ctx, req)
	case Nuke, SuperNuke:
		reply = d.nuke(req)
	case Regenerate:
		reply = d.regenerate(ctx, req)
	default:
		log.Warn("unknown command")
		return
	}
	if reply == "" {
		return
	}
	if err := req.Responder.Respond(ctx, reply); err != nil {
		log.Warn("failed to send command reply", "err", err)
	}
}

func (d *Dispatcher) register(ctx context.Context, req Request) string {
	if req.Direct {
		return MsgRegisterDirect
	}
	turns, created := d.store.GetOrCreate(req.ChannelID)
	if !created {
		return MsgAlreadyRegistered
	}
	d.prime(ctx, req.ChannelID, turns[0])
	return MsgRegistered
}

func (d *Dispatcher) unregister(req Request) string {
	if req.Direct {
		return MsgUnregisterDirect
	}
	d.store.Remove(req.ChannelID)
	return MsgGoodbye
}

func (d *Dispatcher) amnesia(ctx context.Context, req Request) string {
	turns := d.store.Reset(req.ChannelID)
	d.prime(ctx, req.ChannelID, turns[0])
	return MsgAmnesia
}

func (d *Dispatcher) setPrompt(ctx context.Context, req Request) string {
	if req.Command.Arg == "" {
		return MsgPromptUsage
	}
	var sys llm.Message
	err := d.store.Update(req.ChannelID, func(h *history.History, _ bool) error {
		if _, err := h.SetSystemPrompt(req.Command.Arg); err != nil {
			return err
		}
		sys, _ = h.SystemTurn()
		return nil
	})
	if err != nil {
		d.logger.Error("failed to set system prompt", "channel", req.ChannelID, "err", err)
		return MsgPromptUsage
	}
	d.prime(ctx, req.ChannelID, sys)
	return MsgPromptSet
}

func (d *Dispatcher) nuke(req Request) string {
	if d.auth != nil && !d.auth.IsAllowed(req.AuthorID) {
		return MsgNotOperator
	}
	super := req.Command.Kind == SuperNuke
	job := d.deleteJob(req.ChannelID, req.TriggerID, req.AckID, super)
	if _, err := d.tasks.Submit(req.Command.Kind.String(), job); err != nil {
		d.logger.Warn("failed to queue deletion", "channel", req.ChannelID, "err", err)
		return MsgBusy
	}
	if super {
		return MsgSuperNukeQueued
	}
	return MsgNukeQueued
}

// deleteJob removes up to deleteWindow messages posted before trigger, or
// before the acknowledgment when there is no trigger message. A plain nuke
// only touches the bot's own messages; a super nuke takes everything, the
// trigger included. The acknowledgment itself is kept. Per-message failures
// are skipped.
func (d *Dispatcher) deleteJob(channelID int64, triggerID, ackID string, super bool) tasks.Func {
	anchor := triggerID
	if anchor == "" {
		anchor = ackID
	}
	return func(ctx context.Context) error {
		msgs, err := d.messenger.Recent(ctx, channelID, anchor, d.deleteWindow)
		if err != nil {
			return fmt.Errorf("fetch recent messages: %w", err)
		}
		if super && triggerID != "" {
			_ = d.messenger.Delete(ctx, channelID, triggerID)
		}
		self := d.messenger.SelfID()
		deleted, skipped := 0, 0
		for _, m := range msgs {
			if m.ID == ackID || (!super && m.AuthorID != self) {
				continue
			}
			if err := d.messenger.Delete(ctx, channelID, m.ID); err != nil {
				skipped++
				continue
			}
			deleted++
		}
		d.logger.Info("deletion done", "channel", channelID, "super", super, "deleted", deleted, "skipped", skipped)
		return nil
	}
}

func (d *Dispatcher) regenerate(ctx context.Context, req Request) string {
	var resp llm.Response
	ok, err := d.store.UpdateExisting(req.ChannelID, func(h *history.History) error {
		stop := d.messenger.Typing(ctx, req.ChannelID)
		defer stop()
		var err error
		resp, err = d.engine.Regenerate(ctx, h)
		return err
	})
	switch {
	case !ok, errors.Is(err, chat.ErrNothingToRegenerate):
		return MsgNothingToRedo
	case err != nil:
		d.logger.Warn("regenerate failed", "channel", req.ChannelID, "err", err)
		return MsgRegenerateFailed
	}
	if err := d.delivery.Deliver(ctx, req.ChannelID, req.TriggerID, resp.Content); err != nil {
		d.logger.Warn("failed to deliver regenerated answer", "channel", req.ChannelID, "err", err)
	}
	if req.Structured {
		return MsgRegenerated
	}
	return ""
}

// prime failures only cost a cold start.
func (d *Dispatcher) prime(ctx context.Context, channelID int64, sys llm.Message) {
	if err := d.engine.Prime(ctx, sys); err != nil {
		d.logger.Warn("couldn't prime system prompt", "channel", channelID, "err", err)
	}
}
