package order

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/labguide/labguide/internal/platform/auth"
	"github.com/labguide/labguide/internal/tenant"
	"github.com/labguide/labguide/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/orders", h.Create)
	g.GET("/orders", h.List)
	g.GET("/orders/:id", h.Get)
	g.POST("/orders/:id/cancel", h.Cancel)

	// Settlement reconciliation is an operator action.
	g.POST("/orders/:id/paid", h.MarkPaid, auth.RequireRole("admin"))
}

type createRequest struct {
	PanelIDs  []string `json:"panel_ids"`
	ReturnURL string   `json:"return_url"`
}

func (h *Handler) Create(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "sign in required")
	}

	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	in := CreateInput{
		UserID:    userID,
		PanelIDs:  req.PanelIDs,
		ReturnURL: req.ReturnURL,
	}
	if clinic := tenant.ClinicFromContext(c.Request().Context()); clinic != nil {
		in.ClinicID = &clinic.ID
	}

	checkout, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		if strings.Contains(err.Error(), "checkout session") {
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, checkout)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.Get(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return orderError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) List(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "sign in required")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.Cancel(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return orderError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) MarkPaid(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.MarkPaid(c.Request().Context(), id)
	if err != nil {
		return orderError(err)
	}
	return c.JSON(http.StatusOK, o)
}

func orderError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "not your order")
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
