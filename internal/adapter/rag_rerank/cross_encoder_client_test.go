package rag_rerank

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"rubric-orchestrator/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCrossEncoderClient_Rerank(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/rerank", r.URL.Path)

		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "thesis", req.Query)
		assert.Equal(t, []string{"a", "b", "c"}, req.Candidates)
		assert.Equal(t, "bge-reranker-v2-m3", req.Model)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"bge-reranker-v2-m3","results":[{"index":2,"score":0.4},{"index":0,"score":0.9},{"index":1,"score":0.1}]}`))
	}))
	defer server.Close()

	client := NewCrossEncoderClient(server.URL+"/", "bge-reranker-v2-m3", server.Client(), testLogger())
	results, err := client.Rerank(context.Background(), "thesis", []domain.RerankCandidate{
		{ID: "s1", Content: "a"},
		{ID: "s2", Content: "b"},
		{ID: "s3", Content: "c"},
	})

	require.NoError(t, err)
	assert.Equal(t, []domain.RerankResult{
		{ID: "s1", Score: 0.9},
		{ID: "s3", Score: 0.4},
		{ID: "s2", Score: 0.1},
	}, results)
	assert.Equal(t, "bge-reranker-v2-m3", client.ModelName())
}

func TestCrossEncoderClient_EmptyCandidates(t *testing.T) {
	client := NewCrossEncoderClient("http://127.0.0.1:1", "m", http.DefaultClient, testLogger())
	results, err := client.Rerank(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCrossEncoderClient_Errors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := NewCrossEncoderClient(server.URL, "m", server.Client(), testLogger()).
			Rerank(context.Background(), "q", []domain.RerankCandidate{{ID: "x", Content: "x"}})

		assert.ErrorIs(t, err, domain.ErrUpstream)
		assert.ErrorContains(t, err, "model loading")
	})

	t.Run("index out of range", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"results":[{"index":5,"score":1}]}`))
		}))
		defer server.Close()

		_, err := NewCrossEncoderClient(server.URL, "m", server.Client(), testLogger()).
			Rerank(context.Background(), "q", []domain.RerankCandidate{{ID: "x", Content: "x"}})

		assert.ErrorIs(t, err, domain.ErrUpstream)
	})
}
