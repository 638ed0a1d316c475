package usecase

import (
	"context"
	"log/slog"
)

// AskUsecase answers a single question from retrieved sources, without query rewriting.
type AskUsecase interface {
	Execute(ctx context.Context, input ApproachInput) (*ApproachOutput, error)
}

type askUsecase struct {
	retriever RetrieveDocumentsUsecase
	answers   AnswerGenerator
	logger    *slog.Logger
}

func NewAskUsecase(retriever RetrieveDocumentsUsecase, answers AnswerGenerator, logger *slog.Logger) AskUsecase {
	return &askUsecase{retriever: retriever, answers: answers, logger: logger}
}

func (u *askUsecase) Execute(ctx context.Context, input ApproachInput) (*ApproachOutput, error) {
	question, err := lastUserQuestion(input.Messages)
	if err != nil {
		return nil, err
	}

	retrieved, err := u.retriever.Execute(ctx, RetrieveDocumentsInput{
		Query:     question,
		Overrides: input.Overrides,
		Claims:    input.Claims,
	})
	if err != nil {
		return nil, err
	}

	generated, err := u.answers.Generate(ctx, question, retrieved.Lines, input.Overrides)
	if err != nil {
		return nil, err
	}

	u.logger.InfoContext(ctx, "question_answered", slog.Int("sources", len(retrieved.Lines)))

	return &ApproachOutput{
		Answer:     generated.Answer,
		DataPoints: retrieved.Lines,
		Thoughts:   renderThoughts(question, generated.Messages),
	}, nil
}
