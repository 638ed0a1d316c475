package rag_search

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"rubric-orchestrator/internal/domain"
)

const (
	uploadBatchSize   = 1000
	removalPageSize   = 1000
	vectorProfileName = "embedding_config"
	hnswConfigName    = "hnsw_config"
)

type indexField struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Key           bool   `json:"key,omitempty"`
	Searchable    bool   `json:"searchable,omitempty"`
	Filterable    bool   `json:"filterable,omitempty"`
	Facetable     bool   `json:"facetable,omitempty"`
	Analyzer      string `json:"analyzer,omitempty"`
	Dimensions    int    `json:"dimensions,omitempty"`
	VectorProfile string `json:"vectorSearchProfile,omitempty"`
}

type indexDefinition struct {
	Name         string                 `json:"name"`
	Fields       []indexField           `json:"fields"`
	Semantic     map[string]interface{} `json:"semantic"`
	VectorSearch map[string]interface{} `json:"vectorSearch"`
}

type indexAction struct {
	Action     string    `json:"@search.action"`
	ID         string    `json:"id"`
	Content    string    `json:"content,omitempty"`
	Embedding  []float32 `json:"embedding,omitempty"`
	Category   string    `json:"category,omitempty"`
	SourcePage string    `json:"sourcepage,omitempty"`
	SourceFile string    `json:"sourcefile,omitempty"`
	OIDs       []string  `json:"oids,omitempty"`
	Groups     []string  `json:"groups,omitempty"`
}

type indexBatch struct {
	Value []indexAction `json:"value"`
}

type indexResult struct {
	Key          string `json:"key"`
	Status       bool   `json:"status"`
	ErrorMessage string `json:"errorMessage"`
}

type indexBatchResponse struct {
	Value []indexResult `json:"value"`
}

// IndexClient implements domain.SectionIndex on the Azure AI Search REST API.
type IndexClient struct {
	rest *restClient
	// removalPause lets the index settle between delete rounds.
	removalPause time.Duration
	logger       *slog.Logger
}

func NewIndexClient(cfg Config, client *http.Client, logger *slog.Logger) *IndexClient {
	return &IndexClient{
		rest:         &restClient{cfg: cfg.withDefaults(), client: client},
		removalPause: 2 * time.Second,
		logger:       logger,
	}
}

// WithRemovalPause overrides the wait between delete rounds.
func (c *IndexClient) WithRemovalPause(d time.Duration) *IndexClient {
	c.removalPause = d
	return c
}

func (c *IndexClient) EnsureIndex(ctx context.Context) error {
	status, err := c.rest.do(ctx, http.MethodGet, c.rest.indexPath(""), nil, nil, http.StatusOK, http.StatusNotFound)
	if err != nil {
		return fmt.Errorf("lookup index %s: %w", c.rest.cfg.Index, err)
	}
	if status == http.StatusOK {
		c.logger.InfoContext(ctx, "search_index_exists", slog.String("index", c.rest.cfg.Index))
		return nil
	}

	if _, err := c.rest.do(ctx, http.MethodPut, c.rest.indexPath(""), c.definition(), nil, http.StatusCreated, http.StatusOK, http.StatusNoContent); err != nil {
		return fmt.Errorf("create index %s: %w", c.rest.cfg.Index, err)
	}
	c.logger.InfoContext(ctx, "search_index_created", slog.String("index", c.rest.cfg.Index))
	return nil
}

func (c *IndexClient) definition() indexDefinition {
	cfg := c.rest.cfg
	return indexDefinition{
		Name: cfg.Index,
		Fields: []indexField{
			{Name: "id", Type: "Edm.String", Key: true},
			{Name: "content", Type: "Edm.String", Searchable: true, Analyzer: cfg.AnalyzerName},
			{Name: "embedding", Type: "Collection(Edm.Single)", Searchable: true, Dimensions: cfg.EmbeddingDimensions, VectorProfile: vectorProfileName},
			{Name: "category", Type: "Edm.String", Filterable: true, Facetable: true},
			{Name: "sourcepage", Type: "Edm.String", Filterable: true, Facetable: true},
			{Name: "sourcefile", Type: "Edm.String", Filterable: true, Facetable: true},
			{Name: domain.OIDsField, Type: "Collection(Edm.String)", Filterable: true},
			{Name: domain.GroupsField, Type: "Collection(Edm.String)", Filterable: true},
		},
		Semantic: map[string]interface{}{
			"configurations": []map[string]interface{}{{
				"name": "default",
				"prioritizedFields": map[string]interface{}{
					"prioritizedContentFields": []map[string]string{{"fieldName": "content"}},
				},
			}},
		},
		VectorSearch: map[string]interface{}{
			"algorithms": []map[string]interface{}{{
				"name":           hnswConfigName,
				"kind":           "hnsw",
				"hnswParameters": map[string]string{"metric": "cosine"},
			}},
			"profiles": []map[string]string{{"name": vectorProfileName, "algorithm": hnswConfigName}},
		},
	}
}

func (c *IndexClient) Upsert(ctx context.Context, sections []domain.Section) error {
	for start := 0; start < len(sections); start += uploadBatchSize {
		end := min(start+uploadBatchSize, len(sections))
		batch := indexBatch{Value: make([]indexAction, 0, end-start)}
		for _, s := range sections[start:end] {
			batch.Value = append(batch.Value, indexAction{
				Action:     "mergeOrUpload",
				ID:         s.ID,
				Content:    s.Content,
				Embedding:  s.Embedding,
				Category:   s.Category,
				SourcePage: s.SourcePage,
				SourceFile: s.SourceFile,
				OIDs:       s.OIDs,
				Groups:     s.Groups,
			})
		}
		if err := c.send(ctx, batch); err != nil {
			return err
		}
		c.logger.InfoContext(ctx, "search_sections_indexed",
			slog.String("index", c.rest.cfg.Index),
			slog.Int("count", len(batch.Value)))
	}
	return nil
}

func (c *IndexClient) RemoveBySourceFile(ctx context.Context, sourceFile string) (int, error) {
	filter := fmt.Sprintf("sourcefile eq '%s'", domain.EscapeODataString(sourceFile))
	return c.remove(ctx, filter)
}

func (c *IndexClient) RemoveAll(ctx context.Context) (int, error) {
	return c.remove(ctx, "")
}

// remove deletes matching documents page by page until a search finds none.
func (c *IndexClient) remove(ctx context.Context, filter string) (int, error) {
	removed := 0
	for {
		req := searchRequest{Search: "", Filter: filter, Top: removalPageSize, Select: "id"}
		var resp searchResponse
		if _, err := c.rest.do(ctx, http.MethodPost, c.rest.indexPath("/docs/search"), req, &resp); err != nil {
			return removed, fmt.Errorf("find sections to remove: %w", err)
		}
		if len(resp.Value) == 0 {
			break
		}

		batch := indexBatch{Value: make([]indexAction, 0, len(resp.Value))}
		for _, raw := range resp.Value {
			batch.Value = append(batch.Value, indexAction{Action: "delete", ID: stringField(raw, "id")})
		}
		if err := c.send(ctx, batch); err != nil {
			return removed, err
		}
		removed += len(batch.Value)
		c.logger.InfoContext(ctx, "search_sections_removed",
			slog.String("index", c.rest.cfg.Index),
			slog.String("filter", filter),
			slog.Int("count", len(batch.Value)))

		if c.removalPause > 0 {
			select {
			case <-ctx.Done():
				return removed, ctx.Err()
			case <-time.After(c.removalPause):
			}
		}
	}
	return removed, nil
}

func (c *IndexClient) send(ctx context.Context, batch indexBatch) error {
	var resp indexBatchResponse
	if _, err := c.rest.do(ctx, http.MethodPost, c.rest.indexPath("/docs/index"), batch, &resp, http.StatusOK, http.StatusMultiStatus); err != nil {
		return fmt.Errorf("index batch: %w", err)
	}
	for _, r := range resp.Value {
		if !r.Status {
			return fmt.Errorf("%w: index document %s: %s", domain.ErrUpstream, r.Key, r.ErrorMessage)
		}
	}
	return nil
}

var _ domain.SectionIndex = (*IndexClient)(nil)
