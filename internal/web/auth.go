package web

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/community-dashboard/community-dashboard/internal/auth"
	"github.com/community-dashboard/community-dashboard/internal/web/handler"
)

// unrestoredPrefixes never touch the session.
var unrestoredPrefixes = []string{"/static", CheckAlivePath, MetricsPath} //nolint:gochecknoglobals

// SessionMiddleware restores the session of every page request so handlers
// and templates can read it through Gateway.Current. A request that carried
// browser storage handoff parameters is redirected to the same address
// without them.
func SessionMiddleware(gw *auth.Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := strings.ToLower(c.Path())
		for _, prefix := range unrestoredPrefixes {
			if strings.HasPrefix(path, prefix) {
				return c.Next()
			}
		}

		auth.EnsureBrowserID(c, gw.Policy().Session)

		if _, err := gw.Restore(c.UserContext(), c); err != nil && !errors.Is(err, auth.ErrNoSession) {
			log.Warn().Err(err).Msg("session restore failed")
		}

		if auth.HandoffConsumed(c) && c.Method() == fiber.MethodGet {
			return handler.Redirect(c, gw, StripHandoff(c.Path(), string(c.Request().URI().QueryString())))
		}

		return c.Next()
	}
}

// StripHandoff returns path with rawQuery minus every handoff parameter.
func StripHandoff(path, rawQuery string) string {
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return path
	}

	for _, name := range auth.HandoffParams {
		q.Del(name)
	}

	if len(q) == 0 {
		return path
	}

	return path + "?" + q.Encode()
}
