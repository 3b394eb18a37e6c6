package llm

import (
	"context"
	"fmt"
	"strings"
)

// Role tags a turn. It is a closed set; unknown strings are rejected on decode.
type Role uint8

const (
	RoleSystem Role = iota
	RoleUser
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleSystem:
		return "system"
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// ParseRole maps the wire name of a role back to its value.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "system":
		return RoleSystem, nil
	case "user":
		return RoleUser, nil
	case "assistant":
		return RoleAssistant, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) MarshalText() ([]byte, error) {
	if r > RoleAssistant {
		return nil, fmt.Errorf("invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	v, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}
