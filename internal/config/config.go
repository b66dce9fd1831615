// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvConfigJSON holds a JSON document merged over the TOML file.
const EnvConfigJSON = "COMMUNITY_DASHBOARD_CONFIG_JSON"

// Plain environment names read once at startup.
const (
	EnvAdminUsernames        = "ADMIN_USERNAMES"
	EnvLocalAdminUsername    = "LOCAL_ADMIN_USERNAME"
	EnvLocalAdminPassword    = "LOCAL_ADMIN_PASSWORD"
	EnvOIDCClientID          = "OIDC_CLIENT_ID"
	EnvOIDCClientSecret      = "OIDC_CLIENT_SECRET"
	EnvOIDCRedirectURI       = "OIDC_REDIRECT_URI"
	EnvOIDCAuthorizationURL  = "OIDC_AUTHORIZATION_ENDPOINT"
	EnvOIDCTokenURL          = "OIDC_TOKEN_ENDPOINT"
	EnvOIDCUserinfoURL       = "OIDC_USERINFO_ENDPOINT"
	EnvOIDCEndSessionURL     = "OIDC_END_SESSION_ENDPOINT"
	EnvOIDCScopes            = "OIDC_SCOPES"
	EnvOIDCClientAuthMethod  = "OIDC_CLIENT_AUTH_METHOD"
	EnvUseDirectAuth         = "USE_DIRECT_AUTH"
	EnvBypassStateCheck      = "BYPASS_STATE_CHECK"
	redacted                 = "********"
	defaultShutDownTimeInSec = 5
)

var structValidator = validator.New()

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	if _, err = toml.DecodeFile(path+"main.toml", &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	applyEnv(&c, viper.New())

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to decode "+EnvConfigJSON)
	}

	return c, nil
}

// applyEnv overlays the plain environment names. Unset names leave the file values alone.
func applyEnv(c *Config, v *viper.Viper) {
	for _, key := range []string{
		EnvAdminUsernames, EnvLocalAdminUsername, EnvLocalAdminPassword,
		EnvOIDCClientID, EnvOIDCClientSecret, EnvOIDCRedirectURI,
		EnvOIDCAuthorizationURL, EnvOIDCTokenURL, EnvOIDCUserinfoURL, EnvOIDCEndSessionURL,
		EnvOIDCScopes, EnvOIDCClientAuthMethod, EnvUseDirectAuth, EnvBypassStateCheck,
	} {
		_ = v.BindEnv(key) //nolint:errcheck // only fails without a key
	}

	strs := map[string]*string{
		EnvLocalAdminUsername:   &c.Auth.LocalAdmin.Username,
		EnvLocalAdminPassword:   &c.Auth.LocalAdmin.Password,
		EnvOIDCClientID:         &c.Auth.OIDC.ClientID,
		EnvOIDCClientSecret:     &c.Auth.OIDC.ClientSecret,
		EnvOIDCRedirectURI:      &c.Auth.OIDC.RedirectURI,
		EnvOIDCAuthorizationURL: &c.Auth.OIDC.AuthorizationEndpoint,
		EnvOIDCTokenURL:         &c.Auth.OIDC.TokenEndpoint,
		EnvOIDCUserinfoURL:      &c.Auth.OIDC.UserinfoEndpoint,
		EnvOIDCEndSessionURL:    &c.Auth.OIDC.EndSessionEndpoint,
		EnvOIDCClientAuthMethod: &c.Auth.OIDC.ClientAuthMethod,
	}

	for key, dst := range strs {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	if v.IsSet(EnvAdminUsernames) {
		c.Auth.AdminUsernames = splitList(v.GetString(EnvAdminUsernames))
	}

	if v.IsSet(EnvOIDCScopes) {
		c.Auth.OIDC.Scopes = splitList(v.GetString(EnvOIDCScopes))
	}

	if v.IsSet(EnvUseDirectAuth) {
		c.Auth.DirectAuth = v.GetBool(EnvUseDirectAuth)
	}

	if v.IsSet(EnvBypassStateCheck) {
		c.Auth.BypassStateCheck = v.GetBool(EnvBypassStateCheck)
	}
}

// splitList splits on commas and whitespace.
func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// Redacted returns a copy of c with every secret masked.
func Redacted(c Config) Config {
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}

	mask(&c.DB.Password)
	mask(&c.Storage.Redis.Password)
	mask(&c.Webserver.CookieEncryptionKey)
	mask(&c.Webserver.Session.SigningKey)
	mask(&c.Auth.LocalAdmin.Password)
	mask(&c.Auth.OIDC.ClientSecret)

	return c
}

// validate the config settings needed to start.
func validate(c *Config) error {
	// validate webserver listening port
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	// validate access-control-allow-origin
	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTimeInSec
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}

	if err := structValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return errors.Wrapf(ErrInvalidSetting, "%s: failed on %q", fieldErrs[0].Namespace(), fieldErrs[0].Tag())
		}

		return errors.Wrap(err, invalidErrMessage)
	}

	return nil
}
