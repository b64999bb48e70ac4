package tenant

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

type contextKey string

const clinicKey contextKey = "clinic"

// ResolverMiddleware resolves the :slug route param to a clinic and stashes
// it in the request context. An unknown slug is a hard 404 with no
// clinic-branded payload; downstream handlers never see a half-resolved
// tenant.
func ResolverMiddleware(svc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			slug := c.Param("slug")
			if slug == "" {
				return echo.NewHTTPError(http.StatusNotFound, "clinic not found")
			}

			clinic, err := svc.Resolve(c.Request().Context(), slug)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					return echo.NewHTTPError(http.StatusNotFound, "clinic not found")
				}
				return echo.NewHTTPError(http.StatusServiceUnavailable, "clinic lookup failed")
			}

			ctx := context.WithValue(c.Request().Context(), clinicKey, clinic)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("clinic_slug", clinic.Slug)

			return next(c)
		}
	}
}

// WithClinic returns a context carrying the clinic, as ResolverMiddleware
// does for a request. Exposed for tests and non-HTTP callers.
func WithClinic(ctx context.Context, clinic *Clinic) context.Context {
	return context.WithValue(ctx, clinicKey, clinic)
}

// ClinicFromContext returns the resolved clinic, or nil in public mode.
func ClinicFromContext(ctx context.Context) *Clinic {
	clinic, _ := ctx.Value(clinicKey).(*Clinic)
	return clinic
}

// AccessFromContext derives the access variant for the current request.
func AccessFromContext(ctx context.Context) AccessContext {
	if clinic := ClinicFromContext(ctx); clinic != nil {
		return ClinicAccess(clinic)
	}
	return PublicAccess()
}
