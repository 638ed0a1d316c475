package rag_search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"rubric-orchestrator/internal/domain"
)

// Config locates one Azure AI Search index.
type Config struct {
	Endpoint            string
	Index               string
	APIKey              string
	APIVersion          string
	SourcePageField     string
	ContentField        string
	AnalyzerName        string
	EmbeddingDimensions int
}

func (c Config) withDefaults() Config {
	if c.APIVersion == "" {
		c.APIVersion = "2024-05-01-preview"
	}
	if c.SourcePageField == "" {
		c.SourcePageField = "sourcepage"
	}
	if c.ContentField == "" {
		c.ContentField = "content"
	}
	if c.EmbeddingDimensions == 0 {
		c.EmbeddingDimensions = 1536
	}
	return c
}

type restClient struct {
	cfg    Config
	client *http.Client
}

func (r *restClient) url(path string) string {
	return fmt.Sprintf("%s/%s?api-version=%s",
		strings.TrimRight(r.cfg.Endpoint, "/"), strings.TrimLeft(path, "/"), url.QueryEscape(r.cfg.APIVersion))
}

func (r *restClient) indexPath(suffix string) string {
	return "indexes/" + url.PathEscape(r.cfg.Index) + suffix
}

// do sends body as JSON and decodes the response into out when out is non-nil.
// It returns the status code so callers can branch on 404.
func (r *restClient) do(ctx context.Context, method, path string, body, out interface{}, okStatus ...int) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal search request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.url(path), reader)
	if err != nil {
		return 0, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", r.cfg.APIKey)

	resp, err := r.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("%w: search: %v", domain.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if len(okStatus) == 0 {
		okStatus = []int{http.StatusOK}
	}
	for _, s := range okStatus {
		if resp.StatusCode == s {
			if out != nil {
				if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
					return resp.StatusCode, fmt.Errorf("%w: decode search response: %v", domain.ErrUpstream, err)
				}
			}
			return resp.StatusCode, nil
		}
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, fmt.Errorf("%w: search returned %d: %s", domain.ErrUpstream, resp.StatusCode, strings.TrimSpace(string(raw)))
}
