package usecase_test

import (
	"context"

	"rubric-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockCompletionClient struct {
	mock.Mock
}

func (m *mockCompletionClient) CreateChatCompletion(ctx context.Context, req domain.ChatRequest) (*domain.ChatCompletion, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatCompletion), args.Error(1)
}

func (m *mockCompletionClient) Version() string { return "mock-chat" }

func completion(content string) *domain.ChatCompletion {
	return &domain.ChatCompletion{Choices: []domain.ChatChoice{{
		Message: domain.Message{Role: domain.RoleAssistant, Content: content},
	}}}
}

type mockVectorEncoder struct {
	mock.Mock
}

func (m *mockVectorEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *mockVectorEncoder) Version() string { return "mock-embedding" }

type mockSearchService struct {
	mock.Mock
}

func (m *mockSearchService) Search(ctx context.Context, query domain.SearchQuery) ([]domain.SearchResultDoc, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchResultDoc), args.Error(1)
}

type mockIdentityProvider struct {
	mock.Mock
}

func (m *mockIdentityProvider) Validate(ctx context.Context, token string) (*domain.TokenIdentity, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenIdentity), args.Error(1)
}

func (m *mockIdentityProvider) ListGroups(ctx context.Context, accessToken string) ([]string, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockSectionIndex struct {
	mock.Mock
}

func (m *mockSectionIndex) EnsureIndex(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockSectionIndex) Upsert(ctx context.Context, sections []domain.Section) error {
	return m.Called(ctx, sections).Error(0)
}

func (m *mockSectionIndex) RemoveBySourceFile(ctx context.Context, sourceFile string) (int, error) {
	args := m.Called(ctx, sourceFile)
	return args.Int(0), args.Error(1)
}

func (m *mockSectionIndex) RemoveAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockJobRepository struct {
	mock.Mock
}

func (m *mockJobRepository) Enqueue(ctx context.Context, job *domain.IngestionJob) error {
	return m.Called(ctx, job).Error(0)
}

func (m *mockJobRepository) AcquireNextJob(ctx context.Context) (*domain.IngestionJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionJob), args.Error(1)
}

func (m *mockJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	return m.Called(ctx, id, status, errorMessage).Error(0)
}

func (m *mockJobRepository) Get(ctx context.Context, id uuid.UUID) (*domain.IngestionJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestionJob), args.Error(1)
}

// wordCounter counts whitespace-separated words as tokens.
type wordCounter struct{}

func (wordCounter) CountTokens(text string) int {
	n := 0
	inWord := false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}

var (
	anyCtx   = mock.Anything
	anyQuery = mock.AnythingOfType("domain.SearchQuery")
)
