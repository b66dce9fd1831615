package handler

const (
	// BaseLayout is the default path for layout templates.
	BaseLayout = "layouts/base"

	// RootPath is the root path the route group.
	RootPath = "/"

	// RouterRootPath is the root of a route group registered with app.Route.
	RouterRootPath = "/"

	// LoginTemplate renders the login choices.
	LoginTemplate = "login"

	// BridgeTemplate writes or clears the browser storage record and navigates on.
	BridgeTemplate = "bridge"

	// ErrorTemplate renders a plain error page.
	ErrorTemplate = "error"

	// LoginPath is the path to the login page.
	LoginPath = RootPath + "login"

	// DashboardPath is where users land after logging in.
	DashboardPath = RootPath + "dashboard"

	// ErrNilACDFatalLogMsg is used if app or cfg or gateway var pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or gateway is nil"
)
