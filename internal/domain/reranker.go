package domain

import "context"

// RerankCandidate is a document offered to a cross-encoder.
type RerankCandidate struct {
	ID      string
	Content string
	Score   float32
}

// RerankResult is a candidate's cross-encoder relevance score.
type RerankResult struct {
	ID    string
	Score float32
}

// Reranker re-scores search candidates against the query.
// Backends without a native semantic ranker use it to honour semantic_ranker.
type Reranker interface {
	// Rerank returns results sorted by score descending.
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankResult, error)
	ModelName() string
}
