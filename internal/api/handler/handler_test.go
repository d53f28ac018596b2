package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/sessions"
	echosession "github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dndboard/dndboard/internal/api/session"
	"github.com/dndboard/dndboard/internal/core/domain"
	"github.com/dndboard/dndboard/internal/core/ports"
	"github.com/dndboard/dndboard/internal/web"
)

type stubTx struct {
	commitErr  error
	committed  bool
	rolledBack bool
}

func (tx *stubTx) Commit() error {
	if tx.commitErr != nil {
		return tx.commitErr
	}
	tx.committed = true
	return nil
}

func (tx *stubTx) Rollback() error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}

type stubIdentity struct {
	signupFn       func(ctx context.Context, in ports.SignupInput) (*ports.StagedUser, error)
	authenticateFn func(ctx context.Context, username, password string) (*domain.User, error)
	updateFn       func(ctx context.Context, userID int64, edit ports.ProfileEdit) (*ports.StagedUser, error)
	users          map[int64]*domain.User
}

func (s *stubIdentity) Signup(ctx context.Context, in ports.SignupInput) (*ports.StagedUser, error) {
	return s.signupFn(ctx, in)
}

func (s *stubIdentity) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	return s.authenticateFn(ctx, username, password)
}

func (s *stubIdentity) Update(ctx context.Context, userID int64, edit ports.ProfileEdit) (*ports.StagedUser, error) {
	return s.updateFn(ctx, userID, edit)
}

func (s *stubIdentity) FindUser(_ context.Context, id int64) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

type stubCatalogue struct {
	listFn func(ctx context.Context, kind domain.CatalogueKind) (domain.CataloguePayload, error)
	getFn  func(ctx context.Context, kind domain.CatalogueKind, index string) (domain.CataloguePayload, error)
}

func (s *stubCatalogue) List(ctx context.Context, kind domain.CatalogueKind) (domain.CataloguePayload, error) {
	return s.listFn(ctx, kind)
}

func (s *stubCatalogue) Get(ctx context.Context, kind domain.CatalogueKind, index string) (domain.CataloguePayload, error) {
	return s.getFn(ctx, kind, index)
}

// newTestEcho wires the handlers behind the session middleware with a cookie
// store; CSRF is exercised by the router tests.
func newTestEcho(t *testing.T, id *stubIdentity, cat *stubCatalogue) *echo.Echo {
	t.Helper()
	if id.users == nil {
		id.users = map[int64]*domain.User{}
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}

	e := echo.New()
	e.Renderer = renderer
	e.Validator = NewValidator()

	mgr := session.NewManager(id, zerolog.Nop())
	e.Use(echosession.Middleware(sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))))
	e.Use(mgr.Resolve())

	home := NewHomeHandler(mgr)
	auth := NewAuthHandler(id, mgr, zerolog.Nop())
	profile := NewProfileHandler(id, mgr, zerolog.Nop())

	e.GET("/", home.Home)
	e.GET("/signup", auth.SignupForm)
	e.POST("/signup", auth.Signup)
	e.GET("/login", auth.LoginForm)
	e.POST("/login", auth.Login)
	e.GET("/logout", auth.Logout)

	g := e.Group("/profile", mgr.RequireUser("/"))
	g.GET("", profile.Show)
	g.GET("/edit", profile.EditForm)
	g.POST("/edit", profile.Edit)

	if cat != nil {
		ch := NewCatalogueHandler(cat, mgr)
		e.GET("/spells", ch.List(domain.KindSpells))
		e.GET("/monsters/:index", ch.Detail(domain.KindMonsters))
	}
	return e
}

// browser replays cookies between requests.
type browser struct {
	e       *echo.Echo
	cookies map[string]*http.Cookie
}

func newBrowser(e *echo.Echo) *browser {
	return &browser{e: e, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range b.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	b.e.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(b.cookies, ck.Name)
			continue
		}
		b.cookies[ck.Name] = ck
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return b.do(req)
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderLocation); got != location {
		t.Fatalf("expected redirect to %q, got %q", location, got)
	}
}

func assertBody(t *testing.T, rec *httptest.ResponseRecorder, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(rec.Body.String(), w) {
			t.Fatalf("expected body to contain %q, got:\n%s", w, rec.Body.String())
		}
	}
}
