package settings

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/community-dashboard/community-dashboard/internal/auth"
	"github.com/community-dashboard/community-dashboard/internal/db/models"
	"github.com/community-dashboard/community-dashboard/internal/web/handler"
	"github.com/community-dashboard/community-dashboard/internal/web/webtest"
)

type fakeEvents struct {
	events []models.AdminEvent
	err    error
	limit  int
}

func (f *fakeEvents) List(_ context.Context, limit int) ([]models.AdminEvent, error) {
	f.limit = limit
	return f.events, f.err
}

func newTestApp(t *testing.T, s auth.Session, events EventLister) (*fiber.App, *webtest.Jar) {
	t.Helper()

	app := webtest.NewApp()
	gw := webtest.NewGateway(webtest.Policy())
	loginPath := webtest.LoginAs(app, gw, s)

	var svc Service
	svc.SetEvents(events)
	require.NoError(t, svc.Init(app, webtest.Config(), gw))

	jar := webtest.NewJar()
	resp, _ := jar.Do(t, app, webtest.PostForm(loginPath, url.Values{}))
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	return app, jar
}

func TestGet_Admin(t *testing.T) {
	events := &fakeEvents{events: []models.AdminEvent{{Kind: "login_failed"}}}
	app, jar := newTestApp(t, webtest.AdminSession(), events)

	resp, body := jar.Do(t, app, webtest.Get(Path))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, TemplateName, body)
	assert.Equal(t, EventLimit, events.limit)
}

func TestGet_EventErrorStillRenders(t *testing.T) {
	app, jar := newTestApp(t, webtest.AdminSession(), &fakeEvents{err: errors.New("db down")})

	resp, _ := jar.Do(t, app, webtest.Get(Path))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGet_NonAdminForbidden(t *testing.T) {
	app, jar := newTestApp(t, webtest.MemberSession("dave"), nil)

	resp, body := jar.Do(t, app, webtest.Get(Path))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, "administrator access required")
}

func TestGet_Anonymous(t *testing.T) {
	app := webtest.NewApp()

	var svc Service
	require.NoError(t, svc.Init(app, webtest.Config(), webtest.NewGateway(webtest.Policy())))

	resp, body := webtest.NewJar().Do(t, app, webtest.Get(Path))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, handler.LoginTemplate, body)
}

func TestOverview(t *testing.T) {
	p := webtest.Policy()
	p.BypassOnMissingState = true

	o := overview(p.WithDefaults(), "https://idp.example.org")
	assert.True(t, o.LocalEnabled)
	assert.False(t, o.SSOEnabled)
	assert.True(t, o.BypassOnMissing)
	assert.Equal(t, "auto", o.ClientAuthMethod)
	assert.Equal(t, []string{"carol"}, o.AdminUsernames)
	assert.Equal(t, "https://idp.example.org", o.Issuer)
}
