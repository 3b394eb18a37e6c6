package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	// Referrer and Title become OpenRouter attribution headers when set.
	Referrer string
	Title    string
	// MaxTokens caps each completion; zero leaves it to the server.
	MaxTokens int
}

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint,
// Ollama's /v1 included.
type OpenAIClient struct {
	api       *openai.Client
	model     string
	maxTokens int
}

func NewOpenAI(o OpenAIOptions) *OpenAIClient {
	cc := openai.DefaultConfig(o.APIKey)
	if o.BaseURL != "" {
		cc.BaseURL = o.BaseURL
	}
	if h := attribution(o.Referrer, o.Title); len(h) > 0 {
		cc.HTTPClient = &http.Client{Transport: extraHeaders{next: http.DefaultTransport, h: h}}
	}
	return &OpenAIClient{api: openai.NewClientWithConfig(cc), model: o.Model, maxTokens: o.MaxTokens}
}

func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	req := openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  make([]openai.ChatCompletionMessage, len(messages)),
		MaxTokens: c.maxTokens,
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: openAIRole(m.Role), Content: m.Content}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return Response{}, fmt.Errorf("chat completion (%s): %w", c.model, err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, errors.New("chat completion returned no choices")
	}
	return Response{
		Content:          resp.Choices[0].Message.Content,
		Model:            c.model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

func openAIRole(r Role) string {
	switch r {
	case RoleSystem:
		return openai.ChatMessageRoleSystem
	case RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

func attribution(referrer, title string) http.Header {
	h := http.Header{}
	if referrer != "" {
		h.Set("HTTP-Referer", referrer)
	}
	if title != "" {
		h.Set("X-Title", title)
	}
	return h
}

// extraHeaders adds fixed headers to every outgoing request.
type extraHeaders struct {
	next http.RoundTripper
	h    http.Header
}

func (t extraHeaders) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	for k, vs := range t.h {
		for _, v := range vs {
			out.Header.Add(k, v)
		}
	}
	return t.next.RoundTrip(out)
}
