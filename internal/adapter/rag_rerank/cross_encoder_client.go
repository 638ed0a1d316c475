package rag_rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"rubric-orchestrator/internal/domain"
)

type rerankRequest struct {
	Query      string   `json:"query"`
	Candidates []string `json:"candidates"`
	Model      string   `json:"model,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float32 `json:"score"`
	} `json:"results"`
	Model string `json:"model"`
}

// CrossEncoderClient scores candidates with a cross-encoder served over HTTP.
// It stands in for a semantic ranker on backends that have none.
type CrossEncoderClient struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

func NewCrossEncoderClient(baseURL, model string, client *http.Client, logger *slog.Logger) *CrossEncoderClient {
	return &CrossEncoderClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  client,
		logger:  logger,
	}
}

// Rerank returns one result per candidate, highest score first.
func (c *CrossEncoderClient) Rerank(ctx context.Context, query string, candidates []domain.RerankCandidate) ([]domain.RerankResult, error) {
	if len(candidates) == 0 {
		return []domain.RerankResult{}, nil
	}
	start := time.Now()

	texts := make([]string, len(candidates))
	for i, cand := range candidates {
		texts[i] = cand.Content
	}
	payload, err := json.Marshal(rerankRequest{Query: query, Candidates: texts, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: rerank: %v", domain.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: rerank returned %d: %s", domain.ErrUpstream, resp.StatusCode, string(body))
	}

	var decoded rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	results := make([]domain.RerankResult, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		if r.Index < 0 || r.Index >= len(candidates) {
			return nil, fmt.Errorf("%w: rerank index %d out of range for %d candidates", domain.ErrUpstream, r.Index, len(candidates))
		}
		results = append(results, domain.RerankResult{ID: candidates[r.Index].ID, Score: r.Score})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	c.logger.DebugContext(ctx, "rerank_completed",
		slog.Int("candidates", len(candidates)),
		slog.String("model", decoded.Model),
		slog.Duration("duration", time.Since(start)))

	return results, nil
}

func (c *CrossEncoderClient) ModelName() string {
	return c.model
}

var _ domain.Reranker = (*CrossEncoderClient)(nil)
