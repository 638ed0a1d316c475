package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"rubric-orchestrator/internal/domain"

	"golang.org/x/sync/errgroup"
)

// CriterionErrorPrefix marks a rubric answer slot whose criterion failed.
const CriterionErrorPrefix = "[error] "

// RubricEvaluationInput defines the input for a rubric evaluation.
type RubricEvaluationInput struct {
	Criteria  []string
	Messages  []domain.Message
	Overrides domain.RetrievalOverrides
	Claims    domain.AuthClaims
}

// CriterionFailure records why one criterion produced no answer.
type CriterionFailure struct {
	Index     int    `json:"index"`
	Criterion string `json:"criterion"`
	Error     string `json:"error"`
}

// RubricEvaluationOutput holds one answer per criterion, in input order.
type RubricEvaluationOutput struct {
	Answers  []string
	Failures []CriterionFailure
}

// RubricEvaluationUsecase answers every rubric criterion from retrieved evidence.
type RubricEvaluationUsecase interface {
	Execute(ctx context.Context, input RubricEvaluationInput) (*RubricEvaluationOutput, error)
}

type rubricEvaluationUsecase struct {
	queries     QueryGenerator
	retriever   RetrieveDocumentsUsecase
	answers     AnswerGenerator
	concurrency int
	logger      *slog.Logger
}

func NewRubricEvaluationUsecase(
	queries QueryGenerator,
	retriever RetrieveDocumentsUsecase,
	answers AnswerGenerator,
	concurrency int,
	logger *slog.Logger,
) RubricEvaluationUsecase {
	if concurrency < 1 {
		concurrency = 1
	}
	return &rubricEvaluationUsecase{
		queries:     queries,
		retriever:   retriever,
		answers:     answers,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (u *rubricEvaluationUsecase) Execute(ctx context.Context, input RubricEvaluationInput) (*RubricEvaluationOutput, error) {
	if !domain.ValidRetrievalMode(input.Overrides.RetrievalMode) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRetrievalMode, input.Overrides.RetrievalMode)
	}

	if len(input.Criteria) == 0 {
		return &RubricEvaluationOutput{Answers: []string{}}, nil
	}

	start := time.Now()
	answers := make([]string, len(input.Criteria))
	errs := make([]error, len(input.Criteria))
	var failed atomic.Int32

	var g errgroup.Group
	g.SetLimit(u.concurrency)

	for i, criterion := range input.Criteria {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			answer, err := u.evaluateCriterion(ctx, criterion, input)
			if err != nil {
				errs[i] = err
				failed.Add(1)
				u.logger.WarnContext(ctx, "criterion_failed",
					slog.Int("criterion_index", i),
					slog.String("error", err.Error()))
				return nil
			}
			answers[i] = answer
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rubric evaluation aborted: %w", err)
	}

	var failures []CriterionFailure
	for i, err := range errs {
		if err == nil {
			continue
		}
		answers[i] = CriterionErrorPrefix + err.Error()
		failures = append(failures, CriterionFailure{
			Index:     i,
			Criterion: input.Criteria[i],
			Error:     err.Error(),
		})
	}

	u.logger.InfoContext(ctx, "rubric_evaluated",
		slog.Int("criteria", len(input.Criteria)),
		slog.Int("failed", int(failed.Load())),
		slog.Int("concurrency", u.concurrency),
		slog.Duration("duration", time.Since(start)))

	return &RubricEvaluationOutput{Answers: answers, Failures: failures}, nil
}

func (u *rubricEvaluationUsecase) evaluateCriterion(ctx context.Context, criterion string, input RubricEvaluationInput) (string, error) {
	query, err := u.queries.Generate(ctx, criterion, input.Messages)
	if err != nil {
		return "", err
	}

	retrieved, err := u.retriever.Execute(ctx, RetrieveDocumentsInput{
		Query:     query,
		Overrides: input.Overrides,
		Claims:    input.Claims,
	})
	if err != nil {
		return "", err
	}

	generated, err := u.answers.Generate(ctx, criterion, retrieved.Lines, input.Overrides)
	if err != nil {
		return "", err
	}
	return generated.Answer, nil
}
