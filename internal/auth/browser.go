package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	localsBrowserID = "auth.browser_id"

	browserCookieMaxAge = 365 * 24 * 60 * 60
)

// BrowserID returns the browser context id of the request, or "" when none exists.
func BrowserID(rc RequestContext) string {
	if id, ok := rc.Locals(localsBrowserID).(string); ok && id != "" {
		return id
	}

	id := rc.Cookies(BrowserCookieName)
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}

	return id
}

// EnsureBrowserID returns the browser context id, creating it and setting its cookie when missing.
func EnsureBrowserID(rc RequestContext, settings SessionSettings) string {
	if id, ok := rc.Locals(localsBrowserID).(string); ok && id != "" {
		return id
	}

	id := rc.Cookies(BrowserCookieName)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
		setBrowserCookie(rc, settings, id)
	}

	rc.Locals(localsBrowserID, id)

	return id
}

// RotateBrowserID gives the request a new browser context id and returns the
// previous one. Called after authentication succeeded, so an id presented
// before login never names the new session.
func RotateBrowserID(rc RequestContext, settings SessionSettings) (previous, current string) {
	previous = BrowserID(rc)
	current = uuid.NewString()

	setBrowserCookie(rc, settings, current)
	rc.Locals(localsBrowserID, current)

	return previous, current
}

func setBrowserCookie(rc RequestContext, settings SessionSettings, id string) {
	rc.Cookie(&fiber.Cookie{
		Name:     BrowserCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   browserCookieMaxAge,
		Secure:   settings.Secure,
		HTTPOnly: true,
		SameSite: "Lax",
	})
}
