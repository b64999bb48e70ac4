package pricing

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/labguide/labguide/internal/tenant"
)

// Handler serves the priced catalog. Advanced panels are hidden from
// public visitors; clinic-scoped requests with an active subscription see
// everything.
type Handler struct {
	engine      *Engine
	discountPct int
}

func NewHandler(engine *Engine, discountPct int) *Handler {
	return &Handler{engine: engine, discountPct: discountPct}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/catalog", h.List)
	g.GET("/catalog/:id/price", h.Price)
}

func (h *Handler) caps(c echo.Context) tenant.Capabilities {
	return tenant.ResolveCapabilities(tenant.AccessFromContext(c.Request().Context()), h.discountPct)
}

func (h *Handler) List(c echo.Context) error {
	priced, err := h.engine.PriceAll()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	caps := h.caps(c)
	visible := make([]*PricedPanel, 0, len(priced))
	for _, pp := range priced {
		if pp.Panel.Advanced && !caps.AdvancedPanels {
			continue
		}
		visible = append(visible, pp)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"panels":       visible,
		"capabilities": caps,
	})
}

func (h *Handler) Price(c echo.Context) error {
	pp, err := h.engine.Price(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "panel not found")
	}
	if pp.Panel.Advanced && !h.caps(c).AdvancedPanels {
		return echo.NewHTTPError(http.StatusNotFound, "panel not found")
	}
	return c.JSON(http.StatusOK, pp)
}
