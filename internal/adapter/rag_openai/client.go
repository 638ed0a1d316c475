package rag_openai

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

	"golang.org/x/time/rate"
)

// Hosts understood by the client.
const (
	HostAzure  = "azure"
	HostOpenAI = "openai"
)

// Config selects the API flavour and the deployments to call.
type Config struct {
	Host                string
	Endpoint            string
	APIKey              string
	APIVersion          string
	Organization        string
	ChatDeployment      string
	ChatModel           string
	EmbeddingDeployment string
	EmbeddingModel      string
}

// transport sends JSON requests to either Azure OpenAI or OpenAI.
type transport struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

// operationURL builds the URL of an operation ("chat/completions", "embeddings").
// Azure routes by deployment; OpenAI routes by the model field in the body.
func (t *transport) operationURL(deployment, operation string) string {
	base := strings.TrimRight(t.cfg.Endpoint, "/")
	if t.cfg.Host == HostAzure {
		return fmt.Sprintf("%s/openai/deployments/%s/%s?api-version=%s",
			base, url.PathEscape(deployment), operation, url.QueryEscape(t.cfg.APIVersion))
	}
	return fmt.Sprintf("%s/%s", base, operation)
}

func (t *transport) post(ctx context.Context, endpoint string, body, out interface{}) error {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.cfg.Host == HostAzure {
		req.Header.Set("api-key", t.cfg.APIKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
		if t.cfg.Organization != "" {
			req.Header.Set("OpenAI-Organization", t.cfg.Organization)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: openai returned %d: %s", domain.ErrUpstream, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrUpstream, err)
	}
	return nil
}
