package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rubric-orchestrator/internal/domain"
)

// ApproachInput is the request shared by the chat and ask approaches.
type ApproachInput struct {
	Messages  []domain.Message
	Overrides domain.RetrievalOverrides
	Claims    domain.AuthClaims
}

// ApproachOutput is one grounded answer with its supporting evidence.
type ApproachOutput struct {
	Answer     string
	DataPoints []string
	Thoughts   string
}

// ChatUsecase answers the latest turn of a conversation from retrieved sources.
type ChatUsecase interface {
	Execute(ctx context.Context, input ApproachInput) (*ApproachOutput, error)
}

type chatUsecase struct {
	queries   QueryGenerator
	retriever RetrieveDocumentsUsecase
	llm       domain.ChatCompletionClient
	counter   domain.TokenCounter
	cfg       ApproachConfig
	logger    *slog.Logger
}

func NewChatUsecase(
	queries QueryGenerator,
	retriever RetrieveDocumentsUsecase,
	llm domain.ChatCompletionClient,
	counter domain.TokenCounter,
	cfg ApproachConfig,
	logger *slog.Logger,
) ChatUsecase {
	return &chatUsecase{
		queries:   queries,
		retriever: retriever,
		llm:       llm,
		counter:   counter,
		cfg:       cfg,
		logger:    logger,
	}
}

func (u *chatUsecase) Execute(ctx context.Context, input ApproachInput) (*ApproachOutput, error) {
	question, err := lastUserQuestion(input.Messages)
	if err != nil {
		return nil, err
	}

	// STEP 1: rewrite the conversation into a keyword query.
	query, err := u.queries.Generate(ctx, question, input.Messages)
	if err != nil {
		return nil, err
	}
	if query == noQueryAnswer || query == "" {
		query = question
	}

	// STEP 2: retrieve supporting documents.
	retrieved, err := u.retriever.Execute(ctx, RetrieveDocumentsInput{
		Query:     query,
		Overrides: input.Overrides,
		Claims:    input.Claims,
	})
	if err != nil {
		return nil, err
	}

	// STEP 3: answer with the sources and as much history as fits.
	followUp := ""
	if input.Overrides.SuggestFollowupQuestions {
		followUp = followUpQuestionsPrompt
	}
	messages := BuildHistoryMessages(HistoryPrompt{
		SystemPrompt: ChatSystemPrompt(input.Overrides.PromptTemplate, followUp),
		History:      input.Messages,
		UserContent:  question + "\n\nSources:\n" + strings.Join(retrieved.Lines, "\n"),
		MaxTokens:    u.cfg.TokenLimit - u.cfg.ResponseTokenLimit,
	}, u.counter)

	callCtx, cancel := withCallTimeout(ctx, u.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	resp, err := u.llm.CreateChatCompletion(callCtx, domain.ChatRequest{
		Messages:    messages,
		Temperature: input.Overrides.TemperatureOr(u.cfg.ChatTemperature),
		MaxTokens:   u.cfg.ResponseTokenLimit,
		N:           1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate chat answer: %w", err)
	}
	answer, err := resp.FirstContent()
	if err != nil {
		return nil, fmt.Errorf("generate chat answer: %w", err)
	}

	u.logger.InfoContext(ctx, "chat_answered",
		slog.Int("history", len(input.Messages)),
		slog.Int("prompt_messages", len(messages)),
		slog.Int("sources", len(retrieved.Lines)),
		slog.Duration("duration", time.Since(start)))

	return &ApproachOutput{
		Answer:     answer,
		DataPoints: retrieved.Lines,
		Thoughts:   renderThoughts(query, messages),
	}, nil
}

// ChatSystemPrompt applies a prompt_template override. An override starting with
// ">>>" is injected into the default prompt; any other override replaces it.
func ChatSystemPrompt(override, followUp string) string {
	switch {
	case override == "":
		return fmt.Sprintf(chatSystemTemplate, followUp, "")
	case strings.HasPrefix(override, injectPromptPrefix):
		return fmt.Sprintf(chatSystemTemplate, followUp, strings.TrimPrefix(override, injectPromptPrefix)+"\n")
	default:
		return strings.ReplaceAll(override, "{follow_up_questions_prompt}", followUp)
	}
}

func lastUserQuestion(messages []domain.Message) (string, error) {
	if len(messages) == 0 {
		return "", domain.ErrEmptyMessages
	}
	last := messages[len(messages)-1]
	if last.Role != domain.RoleUser {
		return "", fmt.Errorf("%w: last message must come from the user", domain.ErrInvalidRequest)
	}
	if strings.TrimSpace(last.Content) == "" {
		return "", fmt.Errorf("%w: last message is empty", domain.ErrInvalidRequest)
	}
	return last.Content, nil
}

func renderThoughts(query string, messages []domain.Message) string {
	var sb strings.Builder
	sb.WriteString("Searched for:\n")
	sb.WriteString(query)
	sb.WriteString("\n\nConversation:\n")
	for _, m := range messages {
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}
