package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"rubric-orchestrator/internal/domain"
)

// QueryGenerator rewrites a subject plus chat history into a search query.
type QueryGenerator interface {
	Generate(ctx context.Context, subject string, history []domain.Message) (string, error)
}

// QueryGeneratorConfig holds the model budget for query generation.
type QueryGeneratorConfig struct {
	TokenLimit  int
	MaxTokens   int
	CallTimeout time.Duration
}

type queryGenerator struct {
	llm     domain.ChatCompletionClient
	counter domain.TokenCounter
	cfg     QueryGeneratorConfig
	logger  *slog.Logger
}

func NewQueryGenerator(llm domain.ChatCompletionClient, counter domain.TokenCounter, cfg QueryGeneratorConfig, logger *slog.Logger) QueryGenerator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &queryGenerator{llm: llm, counter: counter, cfg: cfg, logger: logger}
}

func (g *queryGenerator) Generate(ctx context.Context, subject string, history []domain.Message) (string, error) {
	userTurn := searchQueryPrefix + subject

	messages := BuildHistoryMessages(HistoryPrompt{
		SystemPrompt: queryPromptTemplate,
		FewShots:     queryPromptFewShots,
		History:      history,
		UserContent:  userTurn,
		MaxTokens:    g.cfg.TokenLimit - utf8.RuneCountInString(userTurn),
	}, g.counter)

	callCtx, cancel := withCallTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	resp, err := g.llm.CreateChatCompletion(callCtx, domain.ChatRequest{
		Messages:    messages,
		Temperature: 0.0,
		MaxTokens:   g.cfg.MaxTokens,
		N:           1,
	})
	if err != nil {
		return "", fmt.Errorf("generate search query: %w", err)
	}

	query, err := resp.FirstContent()
	if err != nil {
		return "", fmt.Errorf("generate search query: %w", err)
	}

	g.logger.DebugContext(ctx, "search_query_generated",
		slog.String("query", query),
		slog.Int("prompt_messages", len(messages)),
		slog.Duration("duration", time.Since(start)))

	return query, nil
}
