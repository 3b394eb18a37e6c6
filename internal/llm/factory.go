package llm

import (
	"fmt"

	"channel-chatter/internal/config"
)

// evaluatorMaxTokens bounds the yes/no verdict completion.
const evaluatorMaxTokens = 8

// Backends builds the chat and evaluator clients for the configured provider.
type Backends struct {
	cfg *config.Config
}

func NewBackends(cfg *config.Config) *Backends {
	return &Backends{cfg: cfg}
}

// Chat returns the client that writes replies.
func (b *Backends) Chat() (Client, error) {
	return b.build(b.cfg.Model, 0)
}

// Evaluator returns the client that answers the engagement question, or nil
// when the chat client should answer it. Yandex serves a single model, so it
// never gets a separate evaluator.
func (b *Backends) Evaluator() (Client, error) {
	m := b.cfg.EvaluatorModel
	if m == "" || m == b.cfg.Model || b.cfg.LLMProvider == config.ProviderYandex {
		return nil, nil
	}
	return b.build(m, evaluatorMaxTokens)
}

func (b *Backends) build(model string, maxTokens int) (Client, error) {
	switch b.cfg.LLMProvider {
	case config.ProviderOpenAI:
		return NewOpenAI(OpenAIOptions{
			APIKey:    b.cfg.OpenAIAPIKey,
			BaseURL:   b.cfg.OpenAIBaseURL,
			Model:     model,
			Referrer:  b.cfg.OpenRouterReferrer,
			Title:     b.cfg.OpenRouterTitle,
			MaxTokens: maxTokens,
		}), nil
	case config.ProviderYandex:
		return NewYandex(b.cfg.YandexOAuthToken, b.cfg.YandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", b.cfg.LLMProvider)
	}
}
