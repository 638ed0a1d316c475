package rag_search

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"rubric-orchestrator/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(endpoint string) Config {
	return Config{Endpoint: endpoint, Index: "gptkbindex", APIKey: "key"}
}

func TestSearchClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/indexes/gptkbindex/docs/search", r.URL.Path)
		assert.Equal(t, "2024-05-01-preview", r.URL.Query().Get("api-version"))
		assert.Equal(t, "key", r.Header.Get("api-key"))

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "deductible", req.Search)
		assert.Equal(t, "category ne 'drafts'", req.Filter)
		assert.Equal(t, 3, req.Top)
		assert.Equal(t, "semantic", req.QueryType)
		assert.Equal(t, "default", req.SemanticConfiguration)
		assert.Equal(t, "extractive|highlight-false", req.Captions)
		assert.Equal(t, "en-us", req.QueryLanguage)
		assert.Equal(t, "lexicon", req.Speller)
		require.Len(t, req.VectorQueries, 1)
		assert.Equal(t, "embedding", req.VectorQueries[0].Fields)
		assert.Equal(t, 50, req.VectorQueries[0].K)

		_, _ = w.Write([]byte(`{"value":[{"@search.score":1.5,"id":"d1","sourcepage":"plan.pdf#page=2","sourcefile":"plan.pdf","category":"benefits","content":"raw","@search.captions":[{"text":"cap one"},{"text":"cap two"}]}]}`))
	}))
	defer server.Close()

	client := NewSearchClient(testConfig(server.URL), server.Client(), testLogger())
	docs, err := client.Search(context.Background(), domain.SearchQuery{
		Text:    "deductible",
		Filter:  &domain.SearchFilter{ExcludeCategory: "drafts"},
		Top:     3,
		Vectors: []domain.VectorQuery{{Vector: []float32{0.1}, K: 50, Fields: "embedding"}},
		Semantic: &domain.SemanticOptions{
			QueryLanguage:     "en-us",
			QuerySpeller:      "lexicon",
			ConfigurationName: "default",
			Caption:           "extractive|highlight-false",
		},
	})

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "d1", docs[0].ID)
	assert.Equal(t, "plan.pdf#page=2", docs[0].SourcePage)
	assert.Equal(t, "plan.pdf", docs[0].SourceFile)
	assert.Equal(t, "raw", docs[0].Content)
	assert.Equal(t, []string{"cap one", "cap two"}, docs[0].Captions)
	assert.InDelta(t, 1.5, docs[0].Score, 1e-9)
}

func TestSearchClient_GAVersionOmitsPreviewParams(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2023-11-01", r.URL.Query().Get("api-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"value":[]}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.APIVersion = "2023-11-01"
	_, err := NewSearchClient(cfg, server.Client(), testLogger()).Search(context.Background(), domain.SearchQuery{
		Text: "q",
		Semantic: &domain.SemanticOptions{
			QueryLanguage:     "en-us",
			QuerySpeller:      "lexicon",
			ConfigurationName: "default",
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "semantic", body["queryType"])
	assert.NotContains(t, body, "queryLanguage")
	assert.NotContains(t, body, "speller")
}

func TestSearchClient_CustomFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"value":[{"id":"d1","page":"p.pdf#page=1","body":"text"}]}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.SourcePageField = "page"
	cfg.ContentField = "body"
	docs, err := NewSearchClient(cfg, server.Client(), testLogger()).Search(context.Background(), domain.SearchQuery{Text: "q"})

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "p.pdf#page=1", docs[0].SourcePage)
	assert.Equal(t, "text", docs[0].Content)
	assert.Empty(t, docs[0].Captions)
}

func TestSearchClient_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("busy"))
	}))
	defer server.Close()

	_, err := NewSearchClient(testConfig(server.URL), server.Client(), testLogger()).Search(context.Background(), domain.SearchQuery{Text: "q"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Contains(t, err.Error(), "503")
}

func TestIndexClient_EnsureIndex(t *testing.T) {
	t.Run("creates a missing index", func(t *testing.T) {
		var created indexDefinition
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/indexes/gptkbindex", r.URL.Path)
			switch r.Method {
			case http.MethodGet:
				w.WriteHeader(http.StatusNotFound)
			case http.MethodPut:
				require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
				w.WriteHeader(http.StatusCreated)
			}
		}))
		defer server.Close()

		err := NewIndexClient(testConfig(server.URL), server.Client(), testLogger()).EnsureIndex(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "gptkbindex", created.Name)
		names := make([]string, 0, len(created.Fields))
		for _, f := range created.Fields {
			names = append(names, f.Name)
			if f.Name == "embedding" {
				assert.Equal(t, 1536, f.Dimensions)
			}
		}
		assert.ElementsMatch(t, []string{"id", "content", "embedding", "category", "sourcepage", "sourcefile", "oids", "groups"}, names)
	})

	t.Run("leaves an existing index alone", func(t *testing.T) {
		var puts int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPut {
				puts++
			}
			_, _ = w.Write([]byte(`{"name":"gptkbindex"}`))
		}))
		defer server.Close()

		require.NoError(t, NewIndexClient(testConfig(server.URL), server.Client(), testLogger()).EnsureIndex(context.Background()))
		assert.Zero(t, puts)
	})
}

func TestIndexClient_Upsert(t *testing.T) {
	var batch indexBatch
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/indexes/gptkbindex/docs/index", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
		_, _ = w.Write([]byte(`{"value":[{"key":"s1","status":true}]}`))
	}))
	defer server.Close()

	err := NewIndexClient(testConfig(server.URL), server.Client(), testLogger()).Upsert(context.Background(), []domain.Section{
		{ID: "s1", Content: "c", Category: "benefits", SourcePage: "a.pdf#page=1", SourceFile: "a.pdf", OIDs: []string{"OID_A"}},
	})

	require.NoError(t, err)
	require.Len(t, batch.Value, 1)
	assert.Equal(t, "mergeOrUpload", batch.Value[0].Action)
	assert.Equal(t, []string{"OID_A"}, batch.Value[0].OIDs)
}

func TestIndexClient_UpsertRejectedDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = w.Write([]byte(`{"value":[{"key":"s1","status":false,"errorMessage":"too large"}]}`))
	}))
	defer server.Close()

	err := NewIndexClient(testConfig(server.URL), server.Client(), testLogger()).Upsert(context.Background(), []domain.Section{{ID: "s1"}})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Contains(t, err.Error(), "too large")
}

func TestIndexClient_RemoveBySourceFile(t *testing.T) {
	var (
		mu       sync.Mutex
		searches int
		filters  []string
		deleted  []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.URL.Path {
		case "/indexes/gptkbindex/docs/search":
			var req searchRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			filters = append(filters, req.Filter)
			searches++
			if searches == 1 {
				_, _ = w.Write([]byte(`{"value":[{"id":"a"},{"id":"b"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"value":[]}`))
		case "/indexes/gptkbindex/docs/index":
			var batch indexBatch
			require.NoError(t, json.NewDecoder(r.Body).Decode(&batch))
			for _, a := range batch.Value {
				assert.Equal(t, "delete", a.Action)
				deleted = append(deleted, a.ID)
			}
			_, _ = w.Write([]byte(`{"value":[]}`))
		}
	}))
	defer server.Close()

	client := NewIndexClient(testConfig(server.URL), server.Client(), testLogger()).WithRemovalPause(0)
	removed, err := client.RemoveBySourceFile(context.Background(), "owner's plan.pdf")

	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, []string{"a", "b"}, deleted)
	assert.Equal(t, "sourcefile eq 'owner''s plan.pdf'", filters[0])
}
