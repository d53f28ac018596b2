package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/sessions"
	echosession "github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dndboard/dndboard/internal/core/domain"
)

type stubFinder struct {
	users map[int64]*domain.User
	err   error
}

func (s *stubFinder) FindUser(_ context.Context, id int64) (*domain.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func newTestServer(t *testing.T, finder *stubFinder) (*echo.Echo, *Manager) {
	t.Helper()
	e := echo.New()
	store := sessions.NewCookieStore([]byte("test-secret-test-secret-test-sec"))
	mgr := NewManager(finder, zerolog.Nop())

	e.Use(echosession.Middleware(store))
	e.Use(mgr.Resolve())

	e.GET("/login/:id", func(c echo.Context) error {
		var id int64
		if err := echo.PathParamsBinder(c).Int64("id", &id).BindError(); err != nil {
			return err
		}
		if err := mgr.Login(c, &domain.User{ID: id}); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/logout", func(c echo.Context) error {
		if err := mgr.Logout(c); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/whoami", func(c echo.Context) error {
		if u := CurrentUser(c); u != nil {
			return c.String(http.StatusOK, u.Username)
		}
		return c.String(http.StatusOK, "anonymous")
	})
	e.GET("/private", func(c echo.Context) error {
		return c.String(http.StatusOK, "secret")
	}, mgr.RequireUser("/"))
	e.GET("/flash", func(c echo.Context) error {
		_ = mgr.Flash(c, FlashPrimary, "third")
		_ = mgr.Flash(c, FlashSuccess, "first")
		_ = mgr.Flash(c, FlashDanger, "second")
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/flashes", func(c echo.Context) error {
		flashes, err := mgr.Flashes(c)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, flashes)
	})
	return e, mgr
}

// do performs a request carrying cookie (if any) and returns the recorder and
// the latest session cookie set by the response.
func do(e *echo.Echo, path string, cookie *http.Cookie) (*httptest.ResponseRecorder, *http.Cookie) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	next := cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == CookieName {
			next = ck
		}
	}
	return rec, next
}

func TestManager_LoginThenResolve(t *testing.T) {
	e, _ := newTestServer(t, &stubFinder{users: map[int64]*domain.User{7: {ID: 7, Username: "Test"}}})

	rec, ck := do(e, "/login/7", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, ck)

	rec, _ = do(e, "/whoami", ck)
	assert.Equal(t, "Test", rec.Body.String())
}

func TestManager_AnonymousByDefault(t *testing.T) {
	e, _ := newTestServer(t, &stubFinder{})

	rec, _ := do(e, "/whoami", nil)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestManager_LogoutIsIdempotent(t *testing.T) {
	e, _ := newTestServer(t, &stubFinder{users: map[int64]*domain.User{1: {ID: 1, Username: "alice"}}})

	_, ck := do(e, "/login/1", nil)

	rec, ck := do(e, "/logout", ck)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec, ck = do(e, "/logout", ck)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = do(e, "/whoami", ck)
	assert.Equal(t, "anonymous", rec.Body.String())

	// Logging out without ever having a session is fine as well.
	rec, _ = do(e, "/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestManager_StaleUserIsDropped(t *testing.T) {
	finder := &stubFinder{users: map[int64]*domain.User{3: {ID: 3, Username: "ghost"}}}
	e, _ := newTestServer(t, finder)

	_, ck := do(e, "/login/3", nil)
	delete(finder.users, 3)

	rec, ck := do(e, "/whoami", ck)
	assert.Equal(t, "anonymous", rec.Body.String())

	finder.users[3] = &domain.User{ID: 3, Username: "ghost"}
	rec, _ = do(e, "/whoami", ck)
	assert.Equal(t, "anonymous", rec.Body.String(), "dropped id must not come back")
}

func TestManager_RequireUserRedirects(t *testing.T) {
	e, _ := newTestServer(t, &stubFinder{users: map[int64]*domain.User{1: {ID: 1, Username: "alice"}}})

	rec, _ := do(e, "/private", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))
	assert.NotContains(t, rec.Body.String(), "secret")

	_, ck := do(e, "/login/1", nil)
	rec, _ = do(e, "/private", ck)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "secret", rec.Body.String())
}

func TestManager_FlashesArePoppedInCategoryOrder(t *testing.T) {
	e, _ := newTestServer(t, &stubFinder{})

	_, ck := do(e, "/flash", nil)

	rec, ck := do(e, "/flashes", ck)
	assert.JSONEq(t, `[
		{"Category":"success","Message":"first"},
		{"Category":"danger","Message":"second"},
		{"Category":"primary","Message":"third"}
	]`, rec.Body.String())

	rec, _ = do(e, "/flashes", ck)
	assert.Equal(t, "null\n", rec.Body.String())
}
