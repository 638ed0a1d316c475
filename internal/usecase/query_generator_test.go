package usecase_test

import (
	"context"
	"strings"
	"testing"

	"rubric-orchestrator/internal/domain"
	"rubric-orchestrator/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestQueryGenerator_Generate(t *testing.T) {
	llm := new(mockCompletionClient)
	var captured domain.ChatRequest
	llm.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(domain.ChatRequest) }).
		Return(completion("  thesis statement requirements \n"), nil)

	gen := usecase.NewQueryGenerator(llm, wordCounter{}, usecase.QueryGeneratorConfig{TokenLimit: 4000}, discardLogger())
	history := []domain.Message{
		{Role: domain.RoleUser, Content: "earlier question"},
		{Role: domain.RoleAssistant, Content: "earlier answer"},
		{Role: domain.RoleUser, Content: "latest question"},
	}

	query, err := gen.Generate(context.Background(), "Has a clear thesis", history)

	require.NoError(t, err)
	assert.Equal(t, "thesis statement requirements", query)
	assert.Equal(t, 0.0, captured.Temperature)
	assert.Equal(t, 1024, captured.MaxTokens)
	assert.Equal(t, 1, captured.N)

	msgs := captured.Messages
	require.GreaterOrEqual(t, len(msgs), 4)
	assert.Equal(t, domain.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "return just the number 0")
	assert.Equal(t, domain.Message{Role: domain.RoleUser, Content: "Generate search query for: Has a clear thesis"}, msgs[len(msgs)-1])
	assert.Equal(t, domain.Message{Role: domain.RoleAssistant, Content: "earlier answer"}, msgs[len(msgs)-2])
	for _, m := range msgs {
		assert.NotEqual(t, "latest question", m.Content)
	}
}

func TestQueryGenerator_EmptyCompletion(t *testing.T) {
	llm := new(mockCompletionClient)
	llm.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(&domain.ChatCompletion{}, nil)

	gen := usecase.NewQueryGenerator(llm, wordCounter{}, usecase.QueryGeneratorConfig{TokenLimit: 4000}, discardLogger())
	_, err := gen.Generate(context.Background(), "c", []domain.Message{{Role: domain.RoleUser, Content: "q"}})

	assert.ErrorIs(t, err, domain.ErrEmptyCompletion)
}

func TestQueryGenerator_BudgetCountsCharactersNotBytes(t *testing.T) {
	llm := new(mockCompletionClient)
	var captured domain.ChatRequest
	llm.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(domain.ChatRequest) }).
		Return(completion("accents"), nil)

	// The user turn is 57 characters but 87 bytes. A limit of 70 leaves room
	// for the user turn (8) plus one prior message (5) only when counting characters.
	subject := strings.Repeat("é", 30)
	gen := usecase.NewQueryGenerator(llm, wordCounter{}, usecase.QueryGeneratorConfig{TokenLimit: 70}, discardLogger())
	history := []domain.Message{
		{Role: domain.RoleAssistant, Content: "earlier answer"},
		{Role: domain.RoleUser, Content: "latest question"},
	}

	_, err := gen.Generate(context.Background(), subject, history)

	require.NoError(t, err)
	msgs := captured.Messages
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, domain.Message{Role: domain.RoleAssistant, Content: "earlier answer"}, msgs[len(msgs)-2])
}
