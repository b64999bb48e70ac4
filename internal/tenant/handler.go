package tenant

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/labguide/labguide/internal/platform/auth"
	"github.com/labguide/labguide/pkg/pagination"
)

type Handler struct {
	svc         *Service
	discountPct int
}

func NewHandler(svc *Service, discountPct int) *Handler {
	return &Handler{svc: svc, discountPct: discountPct}
}

// RegisterRoutes mounts clinic management under the authenticated API
// group and the public capability/branding endpoints under the tenant
// group (which already runs ResolverMiddleware).
func (h *Handler) RegisterRoutes(api *echo.Group, tenantGroup *echo.Group) {
	api.POST("/clinics", h.CreateClinic, auth.RequireRole("admin"))

	admin := api.Group("", auth.RequireRole("clinic_admin", "admin"))
	admin.GET("/clinics/:id", h.GetClinic)
	admin.PUT("/clinics/:id", h.UpdateClinic)
	admin.DELETE("/clinics/:id", h.DeleteClinic, auth.RequireRole("admin"))
	admin.GET("/clinics", h.ListClinics, auth.RequireRole("admin"))

	tenantGroup.GET("", h.GetBranding)
	tenantGroup.GET("/capabilities", h.GetCapabilities)
}

func (h *Handler) CreateClinic(c echo.Context) error {
	var clinic Clinic
	if err := c.Bind(&clinic); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &clinic); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, clinic)
}

func (h *Handler) GetClinic(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	clinic, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "clinic not found")
	}
	return c.JSON(http.StatusOK, clinic)
}

func (h *Handler) UpdateClinic(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "clinic not found")
	}

	var in Clinic
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	// Slug is the routing key and is not mutable after signup.
	in.ID = existing.ID
	in.Slug = existing.Slug
	if in.Name == "" {
		in.Name = existing.Name
	}
	if in.SubscriptionStatus == "" {
		in.SubscriptionStatus = existing.SubscriptionStatus
	}
	if err := h.svc.Update(c.Request().Context(), &in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, in)
}

func (h *Handler) DeleteClinic(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListClinics(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// GetBranding returns the clinic's public branding for the portal chrome.
func (h *Handler) GetBranding(c echo.Context) error {
	clinic := ClinicFromContext(c.Request().Context())
	if clinic == nil {
		return echo.NewHTTPError(http.StatusNotFound, "clinic not found")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"slug":          clinic.Slug,
		"name":          clinic.Name,
		"logo_url":      clinic.LogoURL,
		"primary_color": clinic.PrimaryColor,
		"accent_color":  clinic.AccentColor,
	})
}

// GetCapabilities returns the feature set for the current access mode.
func (h *Handler) GetCapabilities(c echo.Context) error {
	access := AccessFromContext(c.Request().Context())
	return c.JSON(http.StatusOK, ResolveCapabilities(access, h.discountPct))
}

// NotFoundHandler is the catch-all for unknown routes and slugs.
func NotFoundHandler(c echo.Context) error {
	return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
}
