package rag_openai

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"rubric-orchestrator/internal/domain"

	"golang.org/x/time/rate"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	N           int           `json:"n,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Index        int         `json:"index"`
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ChatClient implements domain.ChatCompletionClient.
type ChatClient struct {
	t      *transport
	logger *slog.Logger
}

func NewChatClient(cfg Config, client *http.Client, limiter *rate.Limiter, logger *slog.Logger) *ChatClient {
	return &ChatClient{t: &transport{cfg: cfg, client: client, limiter: limiter}, logger: logger}
}

func (c *ChatClient) CreateChatCompletion(ctx context.Context, req domain.ChatRequest) (*domain.ChatCompletion, error) {
	body := chatCompletionRequest{
		Model:       c.t.cfg.ChatModel,
		Messages:    make([]chatMessage, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		N:           req.N,
	}
	for i, m := range req.Messages {
		body.Messages[i] = chatMessage{Role: string(m.Role), Content: m.Content}
	}

	start := time.Now()
	var resp chatCompletionResponse
	if err := c.t.post(ctx, c.t.operationURL(c.t.cfg.ChatDeployment, "chat/completions"), body, &resp); err != nil {
		c.logger.WarnContext(ctx, "chat_completion_failed",
			slog.String("model", c.t.cfg.ChatModel),
			slog.String("error", err.Error()))
		return nil, err
	}

	out := &domain.ChatCompletion{Choices: make([]domain.ChatChoice, len(resp.Choices))}
	for i, ch := range resp.Choices {
		out.Choices[i] = domain.ChatChoice{
			Index:        ch.Index,
			Message:      domain.Message{Role: domain.Role(ch.Message.Role), Content: ch.Message.Content},
			FinishReason: ch.FinishReason,
		}
	}

	c.logger.DebugContext(ctx, "chat_completion_completed",
		slog.String("model", c.t.cfg.ChatModel),
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens),
		slog.Duration("duration", time.Since(start)))

	return out, nil
}

// Version returns the chat model name.
func (c *ChatClient) Version() string {
	return c.t.cfg.ChatModel
}

var _ domain.ChatCompletionClient = (*ChatClient)(nil)
