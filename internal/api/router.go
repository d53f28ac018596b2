package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/echoprometheus"
	echosession "github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dndboard/dndboard/internal/api/handler"
	"github.com/dndboard/dndboard/internal/api/middleware"
	"github.com/dndboard/dndboard/internal/api/session"
	"github.com/dndboard/dndboard/internal/core/domain"
	"github.com/dndboard/dndboard/internal/core/ports"
)

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	Identity  ports.IdentityService
	Catalogue ports.Catalogue
	Sessions  sessions.Store
	Renderer  echo.Renderer
	// Checks feed the readiness probe, keyed by dependency name.
	Checks map[string]handler.Check
	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	// SecureCookies marks the CSRF cookie Secure.
	SecureCookies bool
	Log           zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = deps.Renderer
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	sessionManager := session.NewManager(deps.Identity, deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:                 "dndboard",
		Subsystem:                 "http",
		Registerer:                deps.Registerer,
		DoNotUseRequestPathFor404: true,
	}))
	e.Use(middleware.NoCache())
	e.Use(echosession.MiddlewareWithConfig(echosession.Config{
		Skipper: isProbe,
		Store:   deps.Sessions,
	}))
	e.Use(echomiddleware.CSRFWithConfig(echomiddleware.CSRFConfig{
		Skipper:        isProbe,
		TokenLookup:    "form:" + handler.CSRFContextKey,
		ContextKey:     handler.CSRFContextKey,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   deps.SecureCookies,
		CookieSameSite: http.SameSiteLaxMode,
	}))
	resolve := sessionManager.Resolve()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		withUser := resolve(next)
		return func(c echo.Context) error {
			if isProbe(c) {
				return next(c)
			}
			return withUser(c)
		}
	})

	// --- Handlers ---
	homeHandler := handler.NewHomeHandler(sessionManager)
	authHandler := handler.NewAuthHandler(deps.Identity, sessionManager, deps.Log)
	profileHandler := handler.NewProfileHandler(deps.Identity, sessionManager, deps.Log)
	catalogueHandler := handler.NewCatalogueHandler(deps.Catalogue, sessionManager)
	healthHandler := handler.NewHealthHandler(deps.Checks)

	e.GET("/", homeHandler.Home)

	// --- Auth routes ---
	e.GET("/signup", authHandler.SignupForm)
	e.POST("/signup", authHandler.Signup)
	e.GET("/login", authHandler.LoginForm)
	e.POST("/login", authHandler.Login)
	e.GET("/logout", authHandler.Logout)

	// --- Profile routes (logged-in users only) ---
	profile := e.Group("/profile", sessionManager.RequireUser("/"))
	profile.GET("", profileHandler.Show)
	profile.GET("/edit", profileHandler.EditForm)
	profile.POST("/edit", profileHandler.Edit)

	// --- Catalogue proxy ---
	for _, kind := range []domain.CatalogueKind{domain.KindSpells, domain.KindMonsters} {
		e.GET("/"+string(kind), catalogueHandler.List(kind))
		e.GET("/"+string(kind)+"/:index", catalogueHandler.Detail(kind))
	}

	// --- Health probes and metrics (no session) ---
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: deps.Gatherer,
	}))

	return e
}

func isProbe(c echo.Context) bool {
	p := c.Path()
	return p == "/metrics" || strings.HasPrefix(p, "/health")
}
