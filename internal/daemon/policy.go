package daemon

import (
	"github.com/community-dashboard/community-dashboard/internal/auth"
	"github.com/community-dashboard/community-dashboard/internal/config"
)

// PolicyFromConfig builds the authentication policy. It is read once at startup.
func PolicyFromConfig(cfg *config.Config) auth.Policy {
	a := cfg.Auth
	s := cfg.Webserver.Session

	return auth.Policy{
		DirectAuth:           a.DirectAuth,
		BypassOnMissingState: a.BypassStateCheck,
		AdminUsernames:       a.AdminUsernames,
		LocalAdmin: auth.LocalAdmin{
			Username: a.LocalAdmin.Username,
			Password: a.LocalAdmin.Password,
		},
		OIDC: auth.OIDCClient{
			ClientID:              a.OIDC.ClientID,
			ClientSecret:          a.OIDC.ClientSecret,
			RedirectURI:           a.OIDC.RedirectURI,
			AuthorizationEndpoint: a.OIDC.AuthorizationEndpoint,
			TokenEndpoint:         a.OIDC.TokenEndpoint,
			UserinfoEndpoint:      a.OIDC.UserinfoEndpoint,
			EndSessionEndpoint:    a.OIDC.EndSessionEndpoint,
			PostLogoutRedirectURI: a.OIDC.PostLogoutRedirectURI,
			Scopes:                a.OIDC.Scopes,
			ClientAuthMethod:      auth.ParseClientAuthMethod(a.OIDC.ClientAuthMethod),
			Timeout:               a.OIDC.Timeout,
		},
		Session: auth.SessionSettings{
			CookieName:  s.CookieName,
			Lifetime:    s.Lifetime,
			Secure:      !cfg.DevMode,
			SigningKey:  s.SigningKey,
			SaveTimeout: s.SaveTimeout,
			StateTTL:    s.StateTTL,
		},
	}.WithDefaults()
}
