package rag_identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"rubric-orchestrator/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const (
	onBehalfOfGrant = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	graphScope      = "https://graph.microsoft.com/.default openid profile offline_access"
)

// Config identifies the server app registration used for the on-behalf-of exchange.
type Config struct {
	AuthorityHost string
	TenantID      string
	ClientID      string
	ClientSecret  string
	GraphURL      string
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
}

type memberOfPage struct {
	Value []struct {
		ID string `json:"id"`
	} `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// EntraClient implements domain.IdentityProvider against Microsoft Entra ID and Graph.
type EntraClient struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func NewEntraClient(cfg Config, client *http.Client, logger *slog.Logger) *EntraClient {
	if cfg.AuthorityHost == "" {
		cfg.AuthorityHost = "https://login.microsoftonline.com"
	}
	if cfg.GraphURL == "" {
		cfg.GraphURL = "https://graph.microsoft.com"
	}
	cfg.AuthorityHost = strings.TrimRight(cfg.AuthorityHost, "/")
	cfg.GraphURL = strings.TrimRight(cfg.GraphURL, "/")
	return &EntraClient{cfg: cfg, client: client, logger: logger}
}

// Validate exchanges the caller's token on behalf of the server app and reads
// oid and groups from the returned id token.
func (c *EntraClient) Validate(ctx context.Context, token string) (*domain.TokenIdentity, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", onBehalfOfGrant)
	form.Set("assertion", token)
	form.Set("requested_token_use", "on_behalf_of")
	form.Set("scope", graphScope)

	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.cfg.AuthorityHost, url.PathEscape(c.cfg.TenantID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %v", domain.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read token response: %v", domain.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewUnauthorized(string(body))
	}

	var tokens tokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, domain.NewUnauthorized(string(body))
	}
	if tokens.IDToken == "" {
		return nil, domain.NewUnauthorized(string(body))
	}

	identity, err := parseIDToken(tokens.IDToken)
	if err != nil {
		return nil, err
	}
	identity.AccessToken = tokens.AccessToken

	if identity.GroupsOverage {
		c.logger.DebugContext(ctx, "groups_claim_overage", slog.String("oid", identity.OID))
	}
	return identity, nil
}

// parseIDToken reads claims without verifying the signature.
func parseIDToken(raw string) (*domain.TokenIdentity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, domain.NewUnauthorized(fmt.Sprintf("malformed id token: %v", err))
	}

	identity := &domain.TokenIdentity{}
	if oid, ok := claims["oid"].(string); ok {
		identity.OID = oid
	}

	groups, hasGroups := claims["groups"].([]interface{})
	for _, g := range groups {
		if s, ok := g.(string); ok {
			identity.Groups = append(identity.Groups, s)
		}
	}

	overage := false
	if names, ok := claims["_claim_names"].(map[string]interface{}); ok {
		_, overage = names["groups"]
	}
	identity.GroupsOverage = !hasGroups || overage
	return identity, nil
}

// ListGroups pages through the caller's transitive memberships.
// A Graph failure becomes an AuthError carrying Graph's status and raw body.
func (c *EntraClient) ListGroups(ctx context.Context, accessToken string) ([]string, error) {
	next := c.cfg.GraphURL + "/v1.0/me/transitiveMemberOf?$select=id"
	groups := []string{}

	for next != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, fmt.Errorf("create graph request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)

		page, err := c.fetchPage(req)
		if err != nil {
			return nil, err
		}
		for _, v := range page.Value {
			groups = append(groups, v.ID)
		}
		next = page.NextLink
	}

	return groups, nil
}

func (c *EntraClient) fetchPage(req *http.Request) (*memberOfPage, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: graph: %v", domain.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read graph response: %v", domain.ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.AuthError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var page memberOfPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: decode graph response: %v", domain.ErrUpstream, err)
	}
	return &page, nil
}

var _ domain.IdentityProvider = (*EntraClient)(nil)
