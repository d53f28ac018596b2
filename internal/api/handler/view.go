package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/dndboard/dndboard/internal/api/session"
	"github.com/dndboard/dndboard/internal/core/domain"
)

// CSRFContextKey is where the CSRF middleware leaves the request token.
const CSRFContextKey = "csrf"

// Sessions is the session behaviour handlers depend on.
type Sessions interface {
	Login(c echo.Context, user *domain.User) error
	Logout(c echo.Context) error
	Flash(c echo.Context, category, msg string) error
	Flashes(c echo.Context) ([]session.Flash, error)
}

// View is the data every page template receives.
type View struct {
	User    *domain.User
	Flashes []session.Flash
	CSRF    string
	Data    any
}

// NewView collects the request-scoped parts of a page. Pending flashes are
// consumed only when sessions is non-nil.
func NewView(c echo.Context, sessions Sessions, data any) (View, error) {
	v := View{User: session.CurrentUser(c), Data: data}
	v.CSRF, _ = c.Get(CSRFContextKey).(string)
	if sessions != nil {
		flashes, err := sessions.Flashes(c)
		if err != nil {
			return v, err
		}
		v.Flashes = flashes
	}
	return v, nil
}

func render(c echo.Context, sessions Sessions, code int, name string, data any) error {
	v, err := NewView(c, sessions, data)
	if err != nil {
		return err
	}
	return c.Render(code, name, v)
}
