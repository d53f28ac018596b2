// Package session tracks the logged-in user across requests.
//
// Session data lives in a gorilla/sessions store reached through the
// echo-contrib session middleware, which must run before any Manager method.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
	echosession "github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/dndboard/dndboard/internal/core/domain"
)

const (
	CookieName = "dndboard_session"

	userIDKey      = "user_id"
	currentUserKey = "current_user"
)

// Flash categories understood by the layout template.
const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
	FlashPrimary = "primary"
)

var flashCategories = []string{FlashSuccess, FlashDanger, FlashPrimary}

// UserFinder loads the user behind a session id.
type UserFinder interface {
	FindUser(ctx context.Context, id int64) (*domain.User, error)
}

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

type Manager struct {
	users UserFinder
	log   zerolog.Logger
}

func NewManager(users UserFinder, log zerolog.Logger) *Manager {
	return &Manager{users: users, log: log}
}

// Login marks the session as belonging to user. The pre-login session id is
// retired so a planted cookie never gains the user's identity.
func (m *Manager) Login(c echo.Context, user *domain.User) error {
	sess, err := m.session(c)
	if err != nil {
		return err
	}
	if err := m.renew(c, sess); err != nil {
		return err
	}
	sess.Values[userIDKey] = user.ID
	c.Set(currentUserKey, user)
	return m.save(c, sess)
}

// Logout drops the user from the session. Calling it on an anonymous
// session is a no-op.
func (m *Manager) Logout(c echo.Context) error {
	sess, err := m.session(c)
	if err != nil {
		return err
	}
	c.Set(currentUserKey, nil)
	if _, ok := sess.Values[userIDKey]; !ok {
		return nil
	}
	delete(sess.Values, userIDKey)
	if err := m.renew(c, sess); err != nil {
		return err
	}
	return m.save(c, sess)
}

// renew deletes the stored session behind the current id and clears it, so
// the next save issues a new one. Stores that keep no server-side state leave
// the id empty and are skipped.
func (m *Manager) renew(c echo.Context, sess *sessions.Session) error {
	if sess.ID == "" {
		return nil
	}
	opts := sess.Options
	expired := *opts
	expired.MaxAge = -1
	sess.Options = &expired
	err := sess.Save(c.Request(), c.Response())
	sess.Options = opts
	if err != nil {
		return fmt.Errorf("renew session: %w", err)
	}
	sess.ID = ""
	return nil
}

// Resolve loads the session's user into the request context. A session that
// points to a user that no longer exists is treated as anonymous.
func (m *Manager) Resolve() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := m.session(c)
			if err != nil {
				return err
			}

			id, ok := sess.Values[userIDKey].(int64)
			if !ok {
				return next(c)
			}

			user, err := m.users.FindUser(c.Request().Context(), id)
			switch {
			case err == nil:
				c.Set(currentUserKey, user)
			case errors.Is(err, domain.ErrUserNotFound):
				m.log.Warn().Int64("user_id", id).Msg("session references unknown user")
				delete(sess.Values, userIDKey)
				if err := m.save(c, sess); err != nil {
					return err
				}
			default:
				return fmt.Errorf("resolve session user: %w", err)
			}
			return next(c)
		}
	}
}

// RequireUser redirects anonymous requests to redirect.
func (m *Manager) RequireUser(redirect string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) == nil {
				return c.Redirect(http.StatusSeeOther, redirect)
			}
			return next(c)
		}
	}
}

// CurrentUser returns the user resolved for this request, or nil.
func CurrentUser(c echo.Context) *domain.User {
	user, _ := c.Get(currentUserKey).(*domain.User)
	return user
}

// Flash queues a message for the next rendered page.
func (m *Manager) Flash(c echo.Context, category, msg string) error {
	sess, err := m.session(c)
	if err != nil {
		return err
	}
	sess.AddFlash(msg, category)
	return m.save(c, sess)
}

// Flashes pops all pending messages, grouped by category in a fixed order.
func (m *Manager) Flashes(c echo.Context) ([]Flash, error) {
	sess, err := m.session(c)
	if err != nil {
		return nil, err
	}

	var out []Flash
	for _, category := range flashCategories {
		for _, v := range sess.Flashes(category) {
			if msg, ok := v.(string); ok {
				out = append(out, Flash{Category: category, Message: msg})
			}
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, m.save(c, sess)
}

func (m *Manager) session(c echo.Context) (*sessions.Session, error) {
	sess, err := echosession.Get(CookieName, c)
	if err != nil {
		// A cookie signed with a rotated key is not fatal; a fresh session
		// is returned alongside the decode error.
		if sess != nil {
			m.log.Debug().Err(err).Msg("discarding unreadable session cookie")
			return sess, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

func (m *Manager) save(c echo.Context, sess *sessions.Session) error {
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
