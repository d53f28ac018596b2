package middleware

import (
	"github.com/labstack/echo/v4"
)

// NoCache disables client and proxy caching on every response. Pages are
// personalised per session, so nothing may be served from a shared cache.
func NoCache() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderCacheControl, "no-cache, no-store, must-revalidate")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
			return next(c)
		}
	}
}
