package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rubric-orchestrator/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// SectionSearchRepository implements domain.SearchService on Postgres with
// pgvector for vector queries and tsvector for text queries. Hybrid queries
// are fused with RRF. When a reranker is set it stands in for the semantic ranker.
type SectionSearchRepository struct {
	pool     *pgxpool.Pool
	reranker domain.Reranker
	logger   *slog.Logger
}

func NewSectionSearchRepository(pool *pgxpool.Pool, reranker domain.Reranker, logger *slog.Logger) *SectionSearchRepository {
	return &SectionSearchRepository{pool: pool, reranker: reranker, logger: logger}
}

func (r *SectionSearchRepository) Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResultDoc, error) {
	start := time.Now()
	top := q.Top
	if top <= 0 {
		top = domain.DefaultTop
	}

	var lists [][]domain.SearchResultDoc
	if q.Text != "" {
		limit := top
		for _, v := range q.Vectors {
			limit = max(limit, v.K)
		}
		docs, err := r.searchText(ctx, q.Text, q.Filter, limit)
		if err != nil {
			return nil, err
		}
		lists = append(lists, docs)
	}
	for _, v := range q.Vectors {
		docs, err := r.searchVector(ctx, v, q.Filter)
		if err != nil {
			return nil, err
		}
		lists = append(lists, docs)
	}

	var results []domain.SearchResultDoc
	switch len(lists) {
	case 0:
		return []domain.SearchResultDoc{}, nil
	case 1:
		results = lists[0]
	default:
		results = fuseRankings(lists...)
	}

	if q.Semantic != nil && r.reranker != nil && q.Text != "" {
		results = r.rerank(ctx, q.Text, results)
	}
	if len(results) > top {
		results = results[:top]
	}
	if q.Semantic != nil && q.Semantic.Caption != "" {
		for i := range results {
			results[i].Captions = []string{extractCaption(results[i].Content, q.Text)}
		}
	}

	r.logger.DebugContext(ctx, "pg_search_completed",
		slog.Int("lists", len(lists)),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))

	return results, nil
}

func (r *SectionSearchRepository) searchText(ctx context.Context, text string, filter *domain.SearchFilter, limit int) ([]domain.SearchResultDoc, error) {
	where, args := filterClause(filter, 3)
	query := fmt.Sprintf(`
		SELECT id, content, COALESCE(category, ''), sourcepage, sourcefile, ts_rank(content_tsv, q)::float8 AS score
		FROM %s, plainto_tsquery('%s', $1) q
		WHERE content_tsv @@ q AND %s
		ORDER BY score DESC, id
		LIMIT $2
	`, sectionsTable, textConfig, where)

	rows, err := executor(ctx, r.pool).Query(ctx, query, append([]interface{}{text, limit}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to run text search: %w", err)
	}
	return scanDocs(rows)
}

func (r *SectionSearchRepository) searchVector(ctx context.Context, v domain.VectorQuery, filter *domain.SearchFilter) ([]domain.SearchResultDoc, error) {
	where, args := filterClause(filter, 3)
	query := fmt.Sprintf(`
		SELECT id, content, COALESCE(category, ''), sourcepage, sourcefile, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE embedding IS NOT NULL AND %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, sectionsTable, where)

	k := v.K
	if k <= 0 {
		k = domain.DefaultTop
	}
	rows, err := executor(ctx, r.pool).Query(ctx, query, append([]interface{}{pgvector.NewVector(v.Vector), k}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to run vector search: %w", err)
	}
	return scanDocs(rows)
}

// rerank reorders the leading candidates by cross-encoder score. A reranker
// failure keeps the fused order.
func (r *SectionSearchRepository) rerank(ctx context.Context, query string, docs []domain.SearchResultDoc) []domain.SearchResultDoc {
	head := docs
	if len(head) > maxRerankedInputs {
		head = head[:maxRerankedInputs]
	}
	candidates := make([]domain.RerankCandidate, len(head))
	byID := make(map[string]domain.SearchResultDoc, len(head))
	for i, d := range head {
		candidates[i] = domain.RerankCandidate{ID: d.ID, Content: d.Content, Score: float32(d.Score)}
		byID[d.ID] = d
	}

	reranked, err := r.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		r.logger.WarnContext(ctx, "rerank_failed_using_fused_order",
			slog.String("model", r.reranker.ModelName()),
			slog.String("error", err.Error()))
		return docs
	}

	out := make([]domain.SearchResultDoc, 0, len(docs))
	seen := make(map[string]bool, len(reranked))
	for _, res := range reranked {
		d, ok := byID[res.ID]
		if !ok || seen[res.ID] {
			continue
		}
		d.Score = float64(res.Score)
		out = append(out, d)
		seen[res.ID] = true
	}
	for _, d := range docs {
		if !seen[d.ID] {
			out = append(out, d)
		}
	}
	return out
}

func scanDocs(rows pgx.Rows) ([]domain.SearchResultDoc, error) {
	defer rows.Close()

	var docs []domain.SearchResultDoc
	for rows.Next() {
		var d domain.SearchResultDoc
		if err := rows.Scan(&d.ID, &d.Content, &d.Category, &d.SourcePage, &d.SourceFile, &d.Score); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return docs, nil
}

var _ domain.SearchService = (*SectionSearchRepository)(nil)
