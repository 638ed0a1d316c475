package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"rubric-orchestrator/internal/domain"
)

const (
	vectorNeighbours   = 50
	vectorField        = "embedding"
	semanticConfigName = "default"
	captionMode        = "extractive|highlight-false"
)

// RetrieveDocumentsInput defines the input for a single retrieval.
type RetrieveDocumentsInput struct {
	Query     string
	Overrides domain.RetrievalOverrides
	Claims    domain.AuthClaims
}

// RetrieveDocumentsOutput carries one "sourcepage: snippet" line per result.
type RetrieveDocumentsOutput struct {
	Lines []string
	// Filter is the rendered filter expression, empty when none applied.
	Filter string
}

// RetrieveDocumentsUsecase runs the text/vector/hybrid/semantic retrieval.
type RetrieveDocumentsUsecase interface {
	Execute(ctx context.Context, input RetrieveDocumentsInput) (*RetrieveDocumentsOutput, error)
}

// RetrievalConfig holds the deployment search settings.
type RetrievalConfig struct {
	QueryLanguage string
	QuerySpeller  string
	CallTimeout   time.Duration
}

type retrieveDocumentsUsecase struct {
	search   domain.SearchService
	encoder  domain.VectorEncoder
	compiler SecurityFilterCompiler
	cfg      RetrievalConfig
	logger   *slog.Logger
}

func NewRetrieveDocumentsUsecase(
	search domain.SearchService,
	encoder domain.VectorEncoder,
	compiler SecurityFilterCompiler,
	cfg RetrievalConfig,
	logger *slog.Logger,
) RetrieveDocumentsUsecase {
	return &retrieveDocumentsUsecase{
		search:   search,
		encoder:  encoder,
		compiler: compiler,
		cfg:      cfg,
		logger:   logger,
	}
}

func (u *retrieveDocumentsUsecase) Execute(ctx context.Context, input RetrieveDocumentsInput) (*RetrieveDocumentsOutput, error) {
	overrides := input.Overrides
	if !domain.ValidRetrievalMode(overrides.RetrievalMode) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRetrievalMode, overrides.RetrievalMode)
	}

	hasText := overrides.HasText()
	hasVector := overrides.HasVector()
	useCaptions := overrides.SemanticCaptions && hasText

	query := domain.SearchQuery{
		Filter: u.compiler.BuildSearchFilter(overrides, input.Claims),
		Top:    overrides.TopOrDefault(),
	}

	if hasVector {
		vector, err := u.embed(ctx, input.Query)
		if err != nil {
			return nil, err
		}
		query.Vectors = []domain.VectorQuery{{Vector: vector, K: vectorNeighbours, Fields: vectorField}}
	}

	if hasText {
		query.Text = input.Query
	}

	if overrides.SemanticRanker && hasText {
		query.Semantic = &domain.SemanticOptions{
			QueryLanguage:     u.cfg.QueryLanguage,
			QuerySpeller:      u.cfg.QuerySpeller,
			ConfigurationName: semanticConfigName,
		}
		if useCaptions {
			query.Semantic.Caption = captionMode
		}
	}

	searchCtx, cancel := withCallTimeout(ctx, u.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	docs, err := u.search.Search(searchCtx, query)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}

	lines := make([]string, 0, len(docs))
	for _, doc := range docs {
		if useCaptions {
			lines = append(lines, doc.SourcePage+": "+nonewlines(strings.Join(doc.Captions, " . ")))
		} else {
			lines = append(lines, doc.SourcePage+": "+nonewlines(doc.Content))
		}
	}

	filterExpr := query.Filter.Expression()
	u.logger.InfoContext(ctx, "documents_retrieved",
		slog.Int("count", len(lines)),
		slog.Bool("text", hasText),
		slog.Bool("vector", hasVector),
		slog.Bool("semantic", query.Semantic != nil),
		slog.String("filter", filterExpr),
		slog.Duration("duration", time.Since(start)))

	if len(lines) > 0 {
		lines = strings.Split(strings.Join(lines, "\n"), "\n")
	}
	return &RetrieveDocumentsOutput{Lines: lines, Filter: filterExpr}, nil
}

func (u *retrieveDocumentsUsecase) embed(ctx context.Context, text string) ([]float32, error) {
	embedCtx, cancel := withCallTimeout(ctx, u.cfg.CallTimeout)
	defer cancel()

	vectors, err := u.encoder.Encode(embedCtx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embed query: %w", domain.ErrEmptyEmbedding)
	}
	return vectors[0], nil
}

func nonewlines(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}
