package domain

import "context"

// RetrievalMode selects which half of a hybrid query is sent to the index.
type RetrievalMode string

const (
	RetrievalModeText    RetrievalMode = "text"
	RetrievalModeVectors RetrievalMode = "vectors"
	RetrievalModeHybrid  RetrievalMode = "hybrid"
)

// VectorQuery asks for the K nearest neighbours of Vector on Fields.
type VectorQuery struct {
	Vector []float32
	K      int
	Fields string
}

// SemanticOptions turns a text query into a semantic-ranked one.
type SemanticOptions struct {
	QueryLanguage     string
	QuerySpeller      string
	ConfigurationName string
	// Caption is the caption mode, e.g. "extractive|highlight-false". Empty disables captions.
	Caption string
}

// SearchQuery is the request handed to a SearchService.
type SearchQuery struct {
	Text     string
	Filter   *SearchFilter
	Top      int
	Vectors  []VectorQuery
	Semantic *SemanticOptions
}

// SearchResultDoc is one ranked document returned by the index.
type SearchResultDoc struct {
	ID         string
	SourcePage string
	SourceFile string
	Category   string
	Content    string
	Captions   []string
	Score      float64
}

// SearchService executes queries against a document index.
// Results are returned in relevance order, highest first.
type SearchService interface {
	Search(ctx context.Context, query SearchQuery) ([]SearchResultDoc, error)
}
