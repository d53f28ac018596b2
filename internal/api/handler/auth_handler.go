package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dndboard/dndboard/internal/api/metrics"
	"github.com/dndboard/dndboard/internal/api/session"
	"github.com/dndboard/dndboard/internal/core/domain"
	"github.com/dndboard/dndboard/internal/core/ports"
)

const (
	signupTemplate = "user/signup.html"
	loginTemplate  = "user/login.html"
)

type AuthHandler struct {
	identity ports.IdentityService
	sessions Sessions
	log      zerolog.Logger
}

func NewAuthHandler(identity ports.IdentityService, sessions Sessions, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{identity: identity, sessions: sessions, log: log}
}

// SignupForm renders the empty signup form.
func (h *AuthHandler) SignupForm(c echo.Context) error {
	return render(c, h.sessions, http.StatusOK, signupTemplate, formPage[SignupForm]{})
}

// Signup creates the account, logs the new user in and redirects home.
// Validation problems re-render the form with 422, a taken username or
// email with 409.
func (h *AuthHandler) Signup(c echo.Context) error {
	var form SignupForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	page := formPage[SignupForm]{Form: form}
	page.Form.Password = ""

	if err := c.Validate(&form); err != nil {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return formError(c, h.sessions, signupTemplate, page, err)
	}

	staged, err := h.identity.Signup(c.Request().Context(), form.input())
	if err != nil {
		return h.signupFailed(c, page, err)
	}
	defer staged.Rollback()

	if err := staged.Commit(); err != nil {
		return h.signupFailed(c, page, err)
	}
	metrics.SignupsTotal.WithLabelValues("created").Inc()
	h.log.Info().Int64("user_id", staged.User.ID).Str("username", staged.User.Username).Msg("user signed up")

	if err := h.sessions.Login(c, staged.User); err != nil {
		return err
	}
	if err := h.sessions.Flash(c, session.FlashSuccess, fmt.Sprintf("Welcome, %s!", staged.User.Username)); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *AuthHandler) signupFailed(c echo.Context, page formPage[SignupForm], err error) error {
	switch {
	case errors.Is(err, domain.ErrUserExists):
		metrics.SignupsTotal.WithLabelValues("conflict").Inc()
		page.Errors = FormErrors{"Username already taken"}
		return render(c, h.sessions, http.StatusConflict, signupTemplate, page)
	case errors.Is(err, domain.ErrEmailTaken):
		metrics.SignupsTotal.WithLabelValues("conflict").Inc()
		page.Errors = FormErrors{"Email already registered"}
		return render(c, h.sessions, http.StatusConflict, signupTemplate, page)
	case errors.Is(err, domain.ErrInvalidInput):
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		page.Errors = FormErrors{"Username, email and password are required"}
		return render(c, h.sessions, http.StatusUnprocessableEntity, signupTemplate, page)
	}
	metrics.SignupsTotal.WithLabelValues("error").Inc()
	return fmt.Errorf("signup: %w", err)
}

// LoginForm renders the empty login form.
func (h *AuthHandler) LoginForm(c echo.Context) error {
	return render(c, h.sessions, http.StatusOK, loginTemplate, formPage[LoginForm]{})
}

// Login authenticates the user and establishes the session.
func (h *AuthHandler) Login(c echo.Context) error {
	var form LoginForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	page := formPage[LoginForm]{Form: LoginForm{Username: form.Username}}

	if err := c.Validate(&form); err != nil {
		return formError(c, h.sessions, loginTemplate, page, err)
	}

	user, err := h.identity.Authenticate(c.Request().Context(), form.Username, form.Password)
	if errors.Is(err, domain.ErrInvalidCredentials) {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		page.Errors = FormErrors{"Invalid credentials."}
		return render(c, h.sessions, http.StatusUnauthorized, loginTemplate, page)
	}
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	if err := h.sessions.Login(c, user); err != nil {
		return err
	}
	if err := h.sessions.Flash(c, session.FlashSuccess, fmt.Sprintf("Hello, %s!", user.Username)); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// Logout clears the session. Safe to call when already logged out.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.sessions.Logout(c); err != nil {
		return err
	}
	if err := h.sessions.Flash(c, session.FlashPrimary, "You've successfully logged out!"); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// formError re-renders a form with its validation messages. Errors that are
// not validation failures are returned untouched.
func formError[T any](c echo.Context, sessions Sessions, name string, page formPage[T], err error) error {
	var fe FormErrors
	if !errors.As(err, &fe) {
		return err
	}
	page.Errors = fe
	return render(c, sessions, http.StatusUnprocessableEntity, name, page)
}
