package usecase

import (
	"fmt"
	"strings"
)

// AuthSetup describes the client-side login configuration.
type AuthSetup struct {
	UseLogin             bool         `json:"useLogin"`
	RequireAccessControl bool         `json:"requireAccessControl"`
	MSALConfig           MSALConfig   `json:"msalConfig"`
	LoginRequest         ScopeRequest `json:"loginRequest"`
	TokenRequest         ScopeRequest `json:"tokenRequest"`
}

type MSALConfig struct {
	Auth  MSALAuth  `json:"auth"`
	Cache MSALCache `json:"cache"`
}

type MSALAuth struct {
	ClientID                  string `json:"clientId"`
	Authority                 string `json:"authority"`
	RedirectURI               string `json:"redirectUri"`
	PostLogoutRedirectURI     string `json:"postLogoutRedirectUri"`
	NavigateToLoginRequestURL bool   `json:"navigateToLoginRequestUrl"`
}

type MSALCache struct {
	CacheLocation          string `json:"cacheLocation"`
	StoreAuthStateInCookie bool   `json:"storeAuthStateInCookie"`
}

type ScopeRequest struct {
	Scopes []string `json:"scopes"`
}

// AuthSetupConfig holds the app registration values exposed to the client.
type AuthSetupConfig struct {
	UseAuthentication    bool
	RequireAccessControl bool
	ServerAppID          string
	ClientAppID          string
	TenantID             string
	AuthorityHost        string
}

// AuthSetupProvider builds the client auth blob from fixed settings.
type AuthSetupProvider struct {
	cfg AuthSetupConfig
}

func NewAuthSetupProvider(cfg AuthSetupConfig) AuthSetupProvider {
	if cfg.AuthorityHost == "" {
		cfg.AuthorityHost = "https://login.microsoftonline.com"
	}
	return AuthSetupProvider{cfg: cfg}
}

// ForClient is pure: the same settings always produce an identical value.
func (p AuthSetupProvider) ForClient() AuthSetup {
	return AuthSetup{
		UseLogin:             p.cfg.UseAuthentication,
		RequireAccessControl: p.cfg.RequireAccessControl,
		MSALConfig: MSALConfig{
			Auth: MSALAuth{
				ClientID:                  p.cfg.ClientAppID,
				Authority:                 fmt.Sprintf("%s/%s", strings.TrimRight(p.cfg.AuthorityHost, "/"), p.cfg.TenantID),
				RedirectURI:               "/redirect",
				PostLogoutRedirectURI:     "/",
				NavigateToLoginRequestURL: false,
			},
			Cache: MSALCache{
				CacheLocation:          "sessionStorage",
				StoreAuthStateInCookie: false,
			},
		},
		LoginRequest: ScopeRequest{Scopes: []string{".default"}},
		TokenRequest: ScopeRequest{Scopes: []string{fmt.Sprintf("api://%s/access_as_user", p.cfg.ServerAppID)}},
	}
}
