package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type HomeHandler struct {
	sessions Sessions
}

func NewHomeHandler(sessions Sessions) *HomeHandler {
	return &HomeHandler{sessions: sessions}
}

// Home greets anonymous visitors and logged-in users differently.
func (h *HomeHandler) Home(c echo.Context) error {
	return render(c, h.sessions, http.StatusOK, "home.html", nil)
}
