package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// RoleLookup answers role questions from the external role-permission store.
type RoleLookup interface {
	// IsModerator reports whether username holds any moderator permission.
	IsModerator(ctx context.Context, username string) (bool, error)
}

// NoRoles is a RoleLookup without any moderators.
type NoRoles struct{}

// IsModerator implements RoleLookup.
func (NoRoles) IsModerator(context.Context, string) (bool, error) { return false, nil }

type userinfoClaims struct {
	PreferredUsername string `json:"preferred_username"`
	Name              string `json:"name"`
	Email             string `json:"email"`
}

// IdentityResolver turns provider tokens into a Session using the userinfo endpoint.
type IdentityResolver struct {
	provider    *oidc.Provider
	userinfoURL string
	client      *http.Client
	policy      Policy
	roles       RoleLookup
	now         func() time.Time
}

// NewIdentityResolver returns an IdentityResolver. A nil roles uses NoRoles.
func NewIdentityResolver(policy Policy, roles RoleLookup) *IdentityResolver {
	policy = policy.WithDefaults()

	if roles == nil {
		roles = NoRoles{}
	}

	pc := &oidc.ProviderConfig{
		AuthURL:     policy.OIDC.AuthorizationEndpoint,
		TokenURL:    policy.OIDC.TokenEndpoint,
		UserInfoURL: policy.OIDC.UserinfoEndpoint,
	}

	return &IdentityResolver{
		provider:    pc.NewProvider(context.Background()),
		userinfoURL: policy.OIDC.UserinfoEndpoint,
		client:      &http.Client{Timeout: policy.OIDC.Timeout},
		policy:      policy,
		roles:       roles,
		now:         time.Now,
	}
}

// Resolve fetches the userinfo of tokens and derives the session roles.
func (r *IdentityResolver) Resolve(ctx context.Context, tokens Tokens) (Session, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tokens.AccessToken, TokenType: "Bearer"})

	info, err := r.provider.UserInfo(oidc.ClientContext(ctx, r.client), ts)
	if err != nil {
		return Session{}, &EndpointError{Kind: EndpointUserinfo, URL: r.userinfoURL, Err: err}
	}

	var claims userinfoClaims
	if err = info.Claims(&claims); err != nil {
		return Session{}, &EndpointError{
			Kind:        EndpointUserinfo,
			URL:         r.userinfoURL,
			Description: "malformed userinfo body",
			Err:         err,
		}
	}

	username := strings.TrimSpace(claims.PreferredUsername)
	if username == "" {
		return Session{}, &EndpointError{
			Kind:        EndpointUserinfo,
			URL:         r.userinfoURL,
			Description: "preferred_username missing",
		}
	}

	moderator, err := r.roles.IsModerator(ctx, username)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("moderator lookup failed, continuing without moderator role")

		moderator = false
	}

	displayName := strings.TrimSpace(claims.Name)
	if displayName == "" {
		displayName = username
	}

	email := claims.Email
	if email == "" {
		email = info.Email
	}

	now := r.now()

	expires := tokens.ExpiresAt
	if expires.IsZero() {
		expires = now.Add(defaultTokenLifetime)
	}

	return Session{
		ID:            uuid.NewString(),
		Authenticated: true,
		Username:      username,
		DisplayName:   displayName,
		Email:         email,
		AuthMethod:    MethodSSO,
		IsAdmin:       r.policy.IsAdminUsername(username),
		IsModerator:   moderator,
		Tokens:        tokens,
		IssuedAt:      now,
		ExpiresAt:     expires,
	}, nil
}
