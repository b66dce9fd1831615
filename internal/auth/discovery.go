package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

type discoveryClaims struct {
	UserinfoEndpoint   string `json:"userinfo_endpoint"`
	EndSessionEndpoint string `json:"end_session_endpoint"`
}

// Discover reads the provider metadata of issuer and fills every endpoint of cfg
// that is not configured explicitly.
func Discover(ctx context.Context, issuer string, cfg OIDCClient) (OIDCClient, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}

	ctx = oidc.ClientContext(ctx, &http.Client{Timeout: timeout})

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return cfg, fmt.Errorf("discover %s: %w", issuer, err)
	}

	ep := provider.Endpoint()

	if cfg.AuthorizationEndpoint == "" {
		cfg.AuthorizationEndpoint = ep.AuthURL
	}

	if cfg.TokenEndpoint == "" {
		cfg.TokenEndpoint = ep.TokenURL
	}

	var claims discoveryClaims
	if err = provider.Claims(&claims); err != nil {
		return cfg, fmt.Errorf("discover %s: %w", issuer, err)
	}

	if cfg.UserinfoEndpoint == "" {
		cfg.UserinfoEndpoint = claims.UserinfoEndpoint
	}

	if cfg.EndSessionEndpoint == "" {
		cfg.EndSessionEndpoint = claims.EndSessionEndpoint
	}

	return cfg, nil
}
