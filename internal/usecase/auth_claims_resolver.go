package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"rubric-orchestrator/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// AppServiceTokenHeader carries the access token injected by App Service authentication.
const AppServiceTokenHeader = "X-MS-TOKEN-AAD-ACCESS-TOKEN"

// AuthClaimsResolverConfig holds the deployment auth settings.
type AuthClaimsResolverConfig struct {
	UseAuthentication    bool
	RequireAccessControl bool
	RequireLogin         bool
	GroupCacheSize       int
	GroupCacheTTL        time.Duration
}

// Required reports whether an auth failure must surface to the caller.
func (c AuthClaimsResolverConfig) Required() bool {
	return c.RequireAccessControl || c.RequireLogin
}

// AuthClaimsResolver turns request headers into AuthClaims.
type AuthClaimsResolver struct {
	cfg        AuthClaimsResolverConfig
	provider   domain.IdentityProvider
	groupCache *expirable.LRU[string, []string]
	logger     *slog.Logger
}

// NewAuthClaimsResolver creates a resolver. provider may be nil when authentication is disabled.
func NewAuthClaimsResolver(cfg AuthClaimsResolverConfig, provider domain.IdentityProvider, logger *slog.Logger) *AuthClaimsResolver {
	if cfg.GroupCacheSize <= 0 {
		cfg.GroupCacheSize = 1024
	}
	if cfg.GroupCacheTTL <= 0 {
		cfg.GroupCacheTTL = 5 * time.Minute
	}
	return &AuthClaimsResolver{
		cfg:        cfg,
		provider:   provider,
		groupCache: expirable.NewLRU[string, []string](cfg.GroupCacheSize, nil, cfg.GroupCacheTTL),
		logger:     logger,
	}
}

// GetTokenAuthHeader extracts the bearer token. The scheme match is case-sensitive.
func GetTokenAuthHeader(headers http.Header) (string, error) {
	if auth := headers.Get("Authorization"); auth != "" {
		parts := strings.Fields(auth)
		if parts[0] != "Bearer" {
			return "", domain.NewUnauthorized("Authorization header must start with Bearer")
		}
		if len(parts) == 1 {
			return "", domain.NewUnauthorized("Token not found")
		}
		if len(parts) > 2 {
			return "", domain.NewUnauthorized("Authorization header must be Bearer token")
		}
		return parts[1], nil
	}

	if token := headers.Get(AppServiceTokenHeader); token != "" {
		return token, nil
	}

	return "", domain.NewUnauthorized("Authorization header is expected")
}

// Authenticate validates the request token and resolves overage groups.
// Every failure is returned as *domain.AuthError.
func (r *AuthClaimsResolver) Authenticate(ctx context.Context, headers http.Header) (domain.AuthClaims, error) {
	token, err := GetTokenAuthHeader(headers)
	if err != nil {
		return domain.AuthClaims{}, err
	}
	if r.provider == nil {
		return domain.AuthClaims{}, domain.NewUnauthorized("no identity provider configured")
	}

	identity, err := r.provider.Validate(ctx, token)
	if err != nil {
		return domain.AuthClaims{}, asAuthError(err)
	}

	claims := domain.AuthClaims{OID: identity.OID, Groups: identity.Groups}
	if !identity.GroupsOverage {
		return claims, nil
	}

	if cached, ok := r.groupCache.Get(identity.OID); ok {
		claims.Groups = cached
		return claims, nil
	}

	groups, err := r.provider.ListGroups(ctx, identity.AccessToken)
	if err != nil {
		return domain.AuthClaims{}, asAuthError(err)
	}
	if identity.OID != "" {
		r.groupCache.Add(identity.OID, groups)
	}
	claims.Groups = groups

	r.logger.DebugContext(ctx, "groups_overage_resolved",
		slog.String("oid", identity.OID),
		slog.Int("group_count", len(groups)))

	return claims, nil
}

// ClaimsIfEnabled returns empty claims when login is off. In optional mode auth
// failures also collapse to empty claims; in required mode the AuthError is returned.
func (r *AuthClaimsResolver) ClaimsIfEnabled(ctx context.Context, headers http.Header) (domain.AuthClaims, error) {
	if !r.cfg.UseAuthentication {
		return domain.AuthClaims{}, nil
	}

	claims, err := r.Authenticate(ctx, headers)
	if err == nil {
		return claims, nil
	}
	if r.cfg.Required() {
		return domain.AuthClaims{}, err
	}

	r.logger.WarnContext(ctx, "auth_claims_unresolved",
		slog.String("error", err.Error()))
	return domain.AuthClaims{}, nil
}

// ListGroups returns the caller's group ids. Provider AuthErrors propagate unchanged.
func (r *AuthClaimsResolver) ListGroups(ctx context.Context, accessToken string) ([]string, error) {
	if r.provider == nil {
		return nil, domain.NewUnauthorized("no identity provider configured")
	}
	return r.provider.ListGroups(ctx, accessToken)
}

func asAuthError(err error) error {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	return domain.NewUnauthorized(err.Error())
}
