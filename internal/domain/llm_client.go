package domain

import (
	"context"
	"strings"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the roles accepted by the completion API.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message is a single chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest carries the sampling parameters for one completion call.
// The model or deployment is owned by the client.
type ChatRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	N           int
}

// ChatChoice is one candidate returned by the completion boundary.
type ChatChoice struct {
	Index        int
	Message      Message
	FinishReason string
}

// ChatCompletion is the completion boundary response.
type ChatCompletion struct {
	Choices []ChatChoice
}

// FirstContent returns the trimmed content of the first choice.
func (c *ChatCompletion) FirstContent() (string, error) {
	if c == nil || len(c.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(c.Choices[0].Message.Content), nil
}

// ChatCompletionClient sends chat messages to an LLM and returns its choices.
type ChatCompletionClient interface {
	CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatCompletion, error)
	Version() string
}
