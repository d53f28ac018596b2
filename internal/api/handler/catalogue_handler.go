package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dndboard/dndboard/internal/core/domain"
	"github.com/dndboard/dndboard/internal/core/ports"
)

type catalogueView struct {
	Kind    string
	Payload domain.CataloguePayload
}

// CatalogueHandler proxies the reference API and renders whatever it returns.
// Upstream failures propagate to the error handler.
type CatalogueHandler struct {
	catalogue ports.Catalogue
	sessions  Sessions
}

func NewCatalogueHandler(catalogue ports.Catalogue, sessions Sessions) *CatalogueHandler {
	return &CatalogueHandler{catalogue: catalogue, sessions: sessions}
}

// List returns the handler for GET /{kind}.
func (h *CatalogueHandler) List(kind domain.CatalogueKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		payload, err := h.catalogue.List(c.Request().Context(), kind)
		if err != nil {
			return fmt.Errorf("list %s: %w", kind, err)
		}
		return render(c, h.sessions, http.StatusOK, "catalogue/lists.html", catalogueView{Kind: string(kind), Payload: payload})
	}
}

// Detail returns the handler for GET /{kind}/:index.
func (h *CatalogueHandler) Detail(kind domain.CatalogueKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		index := c.Param("index")
		payload, err := h.catalogue.Get(c.Request().Context(), kind, index)
		if err != nil {
			return fmt.Errorf("get %s/%s: %w", kind, index, err)
		}
		return render(c, h.sessions, http.StatusOK, "catalogue/details.html", catalogueView{Kind: string(kind), Payload: payload})
	}
}
