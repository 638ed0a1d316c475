package domain

import (
	"context"
	"fmt"
	"net/http"
)

// AuthClaims are the identity facts used to scope retrieval.
// The zero value means unauthenticated or auth disabled.
type AuthClaims struct {
	OID    string   `json:"oid,omitempty"`
	Groups []string `json:"groups,omitempty"`
}

// IsEmpty reports whether no identity was resolved.
func (c AuthClaims) IsEmpty() bool {
	return c.OID == "" && len(c.Groups) == 0
}

// AuthError is a credential failure carrying the HTTP status to surface.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%d): %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrAuthFailed) match any AuthError.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuthFailed
}

// NewUnauthorized builds a 401 AuthError.
func NewUnauthorized(message string) *AuthError {
	return &AuthError{StatusCode: http.StatusUnauthorized, Message: message}
}

// TokenIdentity is what the identity provider learned from a bearer token.
type TokenIdentity struct {
	OID    string
	Groups []string
	// GroupsOverage is set when the token omitted the full group list.
	GroupsOverage bool
	// AccessToken is a downstream token usable for the group lookup.
	AccessToken string
}

// IdentityProvider validates bearer tokens and resolves group membership.
type IdentityProvider interface {
	Validate(ctx context.Context, token string) (*TokenIdentity, error)
	ListGroups(ctx context.Context, accessToken string) ([]string, error)
}
