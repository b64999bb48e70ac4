package report

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/labguide/labguide/internal/platform/auth"
	"github.com/labguide/labguide/internal/platform/blobstore"
	"github.com/labguide/labguide/internal/tenant"
	"github.com/labguide/labguide/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the report CRUD surface on the given group. The
// same handler serves both /api/v1 and the clinic-scoped /c/:slug group;
// in the latter the resolved clinic ends up on the report row.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/reports", h.Upload)
	g.GET("/reports", h.List)
	g.GET("/reports/:id", h.Get)
	g.GET("/reports/:id/file", h.DownloadFile)
	g.DELETE("/reports/:id", h.Delete)
}

func (h *Handler) Upload(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	if userID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "sign in required")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
	}
	defer src.Close()

	observations, err := ParseObservations(c.FormValue("observations"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ranges, err := ParseFunctionalRanges(c.FormValue("functional_ranges"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	in := UploadInput{
		UserID:           userID,
		FileName:         file.Filename,
		ContentType:      file.Header.Get("Content-Type"),
		Content:          src,
		Observations:     observations,
		FunctionalRanges: ranges,
	}
	if clinic := tenant.ClinicFromContext(c.Request().Context()); clinic != nil {
		in.ClinicID = &clinic.ID
		in.ClinicSlug = clinic.Slug
	}

	rep, err := h.svc.Upload(c.Request().Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, blobstore.ErrInvalidContentType),
			errors.Is(err, blobstore.ErrFileTooLarge),
			errors.Is(err, blobstore.ErrMissingFileName):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case rep != nil && rep.Status == StatusFailed:
			// The row exists in its terminal failed state; surface the
			// remote failure but give the caller the report to inspect.
			return c.JSON(http.StatusBadGateway, rep)
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, rep)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rep, err := h.svc.Get(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return reportError(err)
	}
	return c.JSON(http.StatusOK, rep)
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

func (h *Handler) DownloadFile(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rc, meta, err := h.svc.DownloadFile(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return reportError(err)
	}
	defer rc.Close()

	c.Response().Header().Set("Content-Disposition", `attachment; filename="`+meta.FileName+`"`)
	return c.Stream(http.StatusOK, meta.ContentType, rc)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context())); err != nil {
		return reportError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func reportError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, blobstore.ErrBlobNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "not your report")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
