package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rubric-orchestrator/internal/domain"
)

// DefaultAnswerTemperature applies when the request leaves temperature unset or zero.
const DefaultAnswerTemperature = 0.3

// AnswerGenerator answers a question from retrieved source lines.
type AnswerGenerator interface {
	Generate(ctx context.Context, question string, sources []string, overrides domain.RetrievalOverrides) (*GeneratedAnswer, error)
}

// GeneratedAnswer is the model answer plus the prompt that produced it.
type GeneratedAnswer struct {
	Answer   string
	Messages []domain.Message
}

// AnswerGeneratorConfig holds the completion settings for answers.
type AnswerGeneratorConfig struct {
	MaxTokens   int
	CallTimeout time.Duration
}

type answerGenerator struct {
	llm    domain.ChatCompletionClient
	cfg    AnswerGeneratorConfig
	logger *slog.Logger
}

func NewAnswerGenerator(llm domain.ChatCompletionClient, cfg AnswerGeneratorConfig, logger *slog.Logger) AnswerGenerator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &answerGenerator{llm: llm, cfg: cfg, logger: logger}
}

// BuildAnswerMessages returns [system, exemplar answer, exemplar question, user turn].
// The exemplar pair is deliberately in assistant-then-user order.
func BuildAnswerMessages(systemPrompt, question string, sources []string) []domain.Message {
	if systemPrompt == "" {
		systemPrompt = answerSystemTemplate
	}
	return []domain.Message{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleAssistant, Content: answerExemplarAnswer},
		{Role: domain.RoleUser, Content: answerExemplarQuestion},
		{Role: domain.RoleUser, Content: question + "\nSources:\n" + strings.Join(sources, "\n")},
	}
}

func (g *answerGenerator) Generate(ctx context.Context, question string, sources []string, overrides domain.RetrievalOverrides) (*GeneratedAnswer, error) {
	messages := BuildAnswerMessages(overrides.PromptTemplate, question, sources)

	callCtx, cancel := withCallTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	resp, err := g.llm.CreateChatCompletion(callCtx, domain.ChatRequest{
		Messages:    messages,
		Temperature: overrides.TemperatureOr(DefaultAnswerTemperature),
		MaxTokens:   g.cfg.MaxTokens,
		N:           1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	answer, err := resp.FirstContent()
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	g.logger.DebugContext(ctx, "answer_generated",
		slog.Int("sources", len(sources)),
		slog.Int("answer_length", len(answer)),
		slog.Duration("duration", time.Since(start)))

	return &GeneratedAnswer{Answer: answer, Messages: messages}, nil
}
