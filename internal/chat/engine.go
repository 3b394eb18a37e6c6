// Package chat turns a conversation history into model completions and
// decides whether the bot should speak up in conversations it was not
// addressed in.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"channel-chatter/internal/history"
	"channel-chatter/internal/llm"
)

// ErrNothingToRegenerate is returned by Regenerate when the history holds no
// user turn to answer again.
var ErrNothingToRegenerate = errors.New("nothing to regenerate")

type Engine struct {
	client          llm.Client
	evaluator       llm.Client
	evaluatorPrompt string
	logger          *slog.Logger
}

// NewEngine wires the responder and the evaluator. A nil evaluator reuses client.
func NewEngine(client, evaluator llm.Client, evaluatorPrompt string, logger *slog.Logger) *Engine {
	if evaluator == nil {
		evaluator = client
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client:          client,
		evaluator:       evaluator,
		evaluatorPrompt: evaluatorPrompt,
		logger:          logger,
	}
}

// FormatUtterance prefixes the sender name in shared conversations so the
// model can tell speakers apart. Direct conversations pass text through.
func FormatUtterance(author, text string, direct bool) string {
	if direct {
		return text
	}
	return author + " says: " + text
}

// IsAffirmative reports whether an evaluator answer means "engage".
func IsAffirmative(answer string) bool {
	return strings.Contains(strings.ToLower(answer), "yes")
}

// Respond appends the utterance as a user turn, asks the model and appends
// the answer. On failure the user turn stays and no assistant turn is added.
func (e *Engine) Respond(ctx context.Context, h *history.History, utterance string) (llm.Response, error) {
	h.Append(llm.User(utterance))
	return e.complete(ctx, h)
}

// Regenerate drops the newest assistant turn and asks again for the same
// trailing user turn.
func (e *Engine) Regenerate(ctx context.Context, h *history.History) (llm.Response, error) {
	if h.Len() <= 1 {
		return llm.Response{}, ErrNothingToRegenerate
	}
	if last, _ := h.Last(); last.Role == llm.RoleAssistant {
		if h.Len() == 2 {
			return llm.Response{}, ErrNothingToRegenerate
		}
		h.Pop()
	}
	return e.complete(ctx, h)
}

// Observe records an utterance the bot chose not to answer.
func (e *Engine) Observe(h *history.History, utterance string) {
	h.Append(llm.User(utterance))
}

// Prime sends a system turn to the backend once so a fresh conversation
// starts warm. Nothing is recorded.
func (e *Engine) Prime(ctx context.Context, system llm.Message) error {
	if _, err := e.client.Generate(ctx, []llm.Message{system}); err != nil {
		return fmt.Errorf("prime system prompt: %w", err)
	}
	return nil
}

// WantsToReply asks the evaluator whether the bot should answer utterance.
// The evaluator prompt and the scratch turns never outlive the call, and a
// backend failure counts as "no".
func (e *Engine) WantsToReply(ctx context.Context, h *history.History, utterance string) bool {
	original, err := h.SetSystemPrompt(e.evaluatorPrompt)
	if err != nil {
		return false
	}
	base := h.Len()
	defer func() {
		for h.Len() > base {
			h.Pop()
		}
		h.RestoreSystem(original)
	}()

	h.Append(llm.User(utterance))
	resp, err := e.evaluator.Generate(ctx, h.Turns())
	if err != nil {
		e.logger.Warn("engagement evaluation failed", "err", err)
		return false
	}
	h.Append(llm.Assistant(resp.Content))

	want := IsAffirmative(resp.Content)
	e.logger.Debug("engagement evaluated", "answer", resp.Content, "engage", want)
	return want
}

func (e *Engine) complete(ctx context.Context, h *history.History) (llm.Response, error) {
	resp, err := e.client.Generate(ctx, h.Turns())
	if err != nil {
		return llm.Response{}, fmt.Errorf("generate completion: %w", err)
	}
	h.Append(llm.Assistant(resp.Content))
	e.logger.Debug("completion received",
		"model", resp.Model,
		"prompt_tokens", resp.PromptTokens,
		"completion_tokens", resp.CompletionTokens,
		"total_tokens", resp.TotalTokens)
	return resp, nil
}
