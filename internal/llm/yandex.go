package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Morwran/yagpt"
)

// iamRefreshMargin renews the IAM token this long before it expires.
const iamRefreshMargin = 5 * time.Minute

// YandexClient serves completions from YandexGPT Lite. The IAM token is
// exchanged at construction and renewed shortly before it expires.
type YandexClient struct {
	api yagpt.YaGPTFace
	iam yagpt.IamFace
	now func() time.Time

	mu        sync.Mutex
	iamToken  string
	expiresAt time.Time
}

func NewYandex(oauthToken, folderID string) (*YandexClient, error) {
	if oauthToken == "" || folderID == "" {
		return nil, errors.New("yandex provider needs YANDEX_OAUTH_TOKEN and YANDEX_FOLDER_ID")
	}
	iam, err := yagpt.NewYaIam(oauthToken)
	if err != nil {
		return nil, fmt.Errorf("yandex iam: %w", err)
	}
	api, err := yagpt.NewYagpt(folderID)
	if err != nil {
		return nil, fmt.Errorf("yagpt: %w", err)
	}
	c := newYandexClient(api, iam)
	if _, err := c.token(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

func newYandexClient(api yagpt.YaGPTFace, iam yagpt.IamFace) *YandexClient {
	return &YandexClient{api: api, iam: iam, now: time.Now}
}

func (c *YandexClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return Response{}, err
	}
	req := make([]yagpt.Message, len(messages))
	for i, m := range messages {
		req[i] = yagpt.Message{Role: yandexRole(m.Role), Content: m.Content}
	}

	resp, err := c.api.CompletionWithCtx(ctx, tok, req)
	if err != nil {
		return Response{}, fmt.Errorf("yagpt completion: %w", err)
	}
	if resp == nil || len(resp.Alternatives) == 0 {
		return Response{}, errors.New("yagpt returned no alternatives")
	}
	return Response{
		Content:          resp.Alternatives[0].Message.Content,
		Model:            yagpt.YaModelLite,
		PromptTokens:     int(resp.Usage.InputTextTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}, nil
}

// token returns a live IAM token, exchanging the OAuth token again when the
// cached one is about to expire.
func (c *YandexClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.iamToken != "" && c.now().Add(iamRefreshMargin).Before(c.expiresAt) {
		return c.iamToken, nil
	}
	resp, err := c.iam.CreateWithCtx(ctx)
	if err != nil {
		return "", fmt.Errorf("yandex iam token: %w", err)
	}
	c.iamToken, c.expiresAt = resp.IamToken, resp.ExpiresAt
	return c.iamToken, nil
}

// yandexRole maps roles onto the names the Foundation Models API accepts.
func yandexRole(r Role) string {
	switch r {
	case RoleSystem:
		return "system"
	case RoleAssistant:
		return "assistant"
	default:
		return "user"
	}
}
