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
	profileTemplate     = "user/profile.html"
	editProfileTemplate = "user/editprofile.html"
)

// ProfileHandler serves the logged-in user's own profile. Routes must be
// guarded by session.Manager.RequireUser.
type ProfileHandler struct {
	identity ports.IdentityService
	sessions Sessions
	log      zerolog.Logger
}

func NewProfileHandler(identity ports.IdentityService, sessions Sessions, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{identity: identity, sessions: sessions, log: log}
}

func (h *ProfileHandler) Show(c echo.Context) error {
	if session.CurrentUser(c) == nil {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return render(c, h.sessions, http.StatusOK, profileTemplate, nil)
}

// EditForm renders the edit form prefilled with the stored profile.
func (h *ProfileHandler) EditForm(c echo.Context) error {
	user := session.CurrentUser(c)
	if user == nil {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return render(c, h.sessions, http.StatusOK, editProfileTemplate, formPage[ProfileForm]{Form: profileFormFor(user)})
}

// Edit applies the submitted profile fields.
func (h *ProfileHandler) Edit(c echo.Context) error {
	user := session.CurrentUser(c)
	if user == nil {
		return c.Redirect(http.StatusSeeOther, "/")
	}

	var form ProfileForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	page := formPage[ProfileForm]{Form: form}

	if err := c.Validate(&form); err != nil {
		metrics.ProfileUpdatesTotal.WithLabelValues("invalid").Inc()
		return formError(c, h.sessions, editProfileTemplate, page, err)
	}

	staged, err := h.identity.Update(c.Request().Context(), user.ID, form.edit())
	if err != nil {
		return h.editFailed(c, user, page, err)
	}
	defer staged.Rollback()

	if err := staged.Commit(); err != nil {
		return h.editFailed(c, user, page, err)
	}
	metrics.ProfileUpdatesTotal.WithLabelValues("updated").Inc()

	if err := h.sessions.Login(c, staged.User); err != nil {
		return err
	}
	if err := h.sessions.Flash(c, session.FlashSuccess, "Profile updated."); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/profile")
}

func (h *ProfileHandler) editFailed(c echo.Context, user *domain.User, page formPage[ProfileForm], err error) error {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		metrics.ProfileUpdatesTotal.WithLabelValues("not_found").Inc()
		h.log.Warn().Int64("user_id", user.ID).Msg("profile edit for missing user, logging out")
		if err := h.sessions.Logout(c); err != nil {
			return err
		}
		if err := h.sessions.Flash(c, session.FlashDanger, "Your account could not be found."); err != nil {
			return err
		}
		return c.Redirect(http.StatusSeeOther, "/")
	case errors.Is(err, domain.ErrEmailTaken):
		metrics.ProfileUpdatesTotal.WithLabelValues("conflict").Inc()
		page.Errors = FormErrors{"Email already registered"}
		return render(c, h.sessions, http.StatusConflict, editProfileTemplate, page)
	case errors.Is(err, domain.ErrInvalidInput):
		metrics.ProfileUpdatesTotal.WithLabelValues("invalid").Inc()
		page.Errors = FormErrors{"email is required"}
		return render(c, h.sessions, http.StatusUnprocessableEntity, editProfileTemplate, page)
	}
	metrics.ProfileUpdatesTotal.WithLabelValues("error").Inc()
	return fmt.Errorf("profile edit: %w", err)
}
