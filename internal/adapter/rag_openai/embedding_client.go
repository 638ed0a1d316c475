package rag_openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"rubric-orchestrator/internal/domain"

	"golang.org/x/time/rate"
)

type embeddingRequest struct {
	Model string   `json:"model,omitempty"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbeddingClient implements domain.VectorEncoder.
type EmbeddingClient struct {
	t      *transport
	logger *slog.Logger
}

func NewEmbeddingClient(cfg Config, client *http.Client, limiter *rate.Limiter, logger *slog.Logger) *EmbeddingClient {
	return &EmbeddingClient{t: &transport{cfg: cfg, client: client, limiter: limiter}, logger: logger}
}

// Encode returns one vector per input, in input order.
func (c *EmbeddingClient) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	start := time.Now()
	var resp embeddingResponse
	body := embeddingRequest{Model: c.t.cfg.EmbeddingModel, Input: texts}
	if err := c.t.post(ctx, c.t.operationURL(c.t.cfg.EmbeddingDeployment, "embeddings"), body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", domain.ErrEmptyEmbedding, len(resp.Data), len(texts))
	}

	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}

	c.logger.DebugContext(ctx, "embedding_completed",
		slog.String("model", c.t.cfg.EmbeddingModel),
		slog.Int("inputs", len(texts)),
		slog.Duration("duration", time.Since(start)))

	return vectors, nil
}

// Version returns the embedding model name.
func (c *EmbeddingClient) Version() string {
	return c.t.cfg.EmbeddingModel
}

var _ domain.VectorEncoder = (*EmbeddingClient)(nil)
