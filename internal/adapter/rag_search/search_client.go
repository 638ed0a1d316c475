package rag_search

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"rubric-orchestrator/internal/domain"
)

type vectorQuery struct {
	Kind   string    `json:"kind"`
	Vector []float32 `json:"vector"`
	K      int       `json:"k"`
	Fields string    `json:"fields"`
}

type searchRequest struct {
	Search                string        `json:"search"`
	Filter                string        `json:"filter,omitempty"`
	Top                   int           `json:"top,omitempty"`
	Select                string        `json:"select,omitempty"`
	VectorQueries         []vectorQuery `json:"vectorQueries,omitempty"`
	QueryType             string        `json:"queryType,omitempty"`
	SemanticConfiguration string        `json:"semanticConfiguration,omitempty"`
	QueryLanguage         string        `json:"queryLanguage,omitempty"`
	Speller               string        `json:"speller,omitempty"`
	Captions              string        `json:"captions,omitempty"`
	Count                 bool          `json:"count,omitempty"`
}

type searchResponse struct {
	Value []map[string]json.RawMessage `json:"value"`
}

type caption struct {
	Text string `json:"text"`
}

// SearchClient implements domain.SearchService on the Azure AI Search REST API.
type SearchClient struct {
	rest   *restClient
	logger *slog.Logger
}

func NewSearchClient(cfg Config, client *http.Client, logger *slog.Logger) *SearchClient {
	return &SearchClient{rest: &restClient{cfg: cfg.withDefaults(), client: client}, logger: logger}
}

func (c *SearchClient) Search(ctx context.Context, q domain.SearchQuery) ([]domain.SearchResultDoc, error) {
	req := searchRequest{
		Search: q.Text,
		Filter: q.Filter.Expression(),
		Top:    q.Top,
	}
	for _, v := range q.Vectors {
		req.VectorQueries = append(req.VectorQueries, vectorQuery{Kind: "vector", Vector: v.Vector, K: v.K, Fields: v.Fields})
	}
	if q.Semantic != nil {
		req.QueryType = "semantic"
		req.SemanticConfiguration = q.Semantic.ConfigurationName
		// GA api versions reject queryLanguage and speller.
		if isPreview(c.rest.cfg.APIVersion) {
			req.QueryLanguage = q.Semantic.QueryLanguage
			req.Speller = q.Semantic.QuerySpeller
		}
		req.Captions = q.Semantic.Caption
	}

	start := time.Now()
	var resp searchResponse
	if _, err := c.rest.do(ctx, http.MethodPost, c.rest.indexPath("/docs/search"), req, &resp); err != nil {
		return nil, err
	}

	docs := make([]domain.SearchResultDoc, 0, len(resp.Value))
	for _, raw := range resp.Value {
		docs = append(docs, c.toDoc(raw))
	}

	c.logger.DebugContext(ctx, "azure_search_completed",
		slog.String("index", c.rest.cfg.Index),
		slog.Int("results", len(docs)),
		slog.Bool("semantic", q.Semantic != nil),
		slog.Duration("duration", time.Since(start)))

	return docs, nil
}

func (c *SearchClient) toDoc(raw map[string]json.RawMessage) domain.SearchResultDoc {
	doc := domain.SearchResultDoc{
		ID:         stringField(raw, "id"),
		SourcePage: stringField(raw, c.rest.cfg.SourcePageField),
		SourceFile: stringField(raw, "sourcefile"),
		Category:   stringField(raw, "category"),
		Content:    stringField(raw, c.rest.cfg.ContentField),
	}
	if v, ok := raw["@search.score"]; ok {
		_ = json.Unmarshal(v, &doc.Score)
	}
	if v, ok := raw["@search.captions"]; ok {
		var caps []caption
		if err := json.Unmarshal(v, &caps); err == nil {
			for _, cp := range caps {
				doc.Captions = append(doc.Captions, cp.Text)
			}
		}
	}
	return doc
}

func stringField(raw map[string]json.RawMessage, name string) string {
	v, ok := raw[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return strings.Trim(string(v), `"`)
	}
	return s
}

var _ domain.SearchService = (*SearchClient)(nil)

func isPreview(apiVersion string) bool {
	return strings.HasSuffix(strings.ToLower(apiVersion), "-preview")
}
