package db

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	ClinicSlugKey contextKey = "clinic_slug"
	DBConnKey     contextKey = "db_conn"
)

// Schema names are derived from clinic slugs; hyphens in slugs become
// underscores and everything else must already be alphanumeric.
var schemaSlugPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// SchemaForClinic maps a clinic slug to its Postgres schema name.
func SchemaForClinic(slug string) string {
	return "clinic_" + strings.ReplaceAll(slug, "-", "_")
}

// ClinicSchemaMiddleware pins each request's database connection to the
// clinic's schema. The slug comes from the tenant resolver (echo context),
// the X-Clinic-Slug header, or the configured default, in that order. The
// scoped connection rides the request context so repositories pick it up
// via ConnFromContext.
func ClinicSchemaMiddleware(pool *pgxpool.Pool, defaultSlug string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			slug := extractClinicSlug(c, defaultSlug)

			if !schemaSlugPattern.MatchString(slug) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid clinic identifier")
			}

			ctx := c.Request().Context()
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
			}
			// The search_path must not leak into whatever request gets
			// this connection next. A connection that cannot be reset is
			// discarded instead of returned to the pool.
			defer func() {
				if rerr := resetSearchPath(context.Background(), conn); rerr != nil {
					conn.Conn().Close(context.Background())
				}
				conn.Release()
			}()

			schema := SchemaForClinic(slug)
			_, err = conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s, shared, public", schema))
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "clinic scope failed")
			}

			ctx = context.WithValue(ctx, ClinicSlugKey, slug)
			ctx = context.WithValue(ctx, DBConnKey, conn)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// resetSearchPath returns a connection's schema scope to the session
// default before it goes back to the pool.
func resetSearchPath(ctx context.Context, conn execer) error {
	_, err := conn.Exec(ctx, "SET search_path TO DEFAULT")
	return err
}

func extractClinicSlug(c echo.Context, defaultSlug string) string {
	// 1. Resolved tenant from the slug route group
	if slug, ok := c.Get("clinic_slug").(string); ok && slug != "" {
		return slug
	}

	// 2. Explicit header (API clients, tests)
	if slug := c.Request().Header.Get("X-Clinic-Slug"); slug != "" {
		return slug
	}

	return defaultSlug
}

// ConnFromContext retrieves the clinic-scoped connection, if any.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// ClinicSlugFromContext retrieves the request's clinic slug.
func ClinicSlugFromContext(ctx context.Context) string {
	slug, _ := ctx.Value(ClinicSlugKey).(string)
	return slug
}

// CreateClinicSchema creates the schema for a new clinic and optionally
// runs migrations into it.
func CreateClinicSchema(ctx context.Context, pool *pgxpool.Pool, slug string, migrationsDir string) error {
	if !schemaSlugPattern.MatchString(slug) {
		return fmt.Errorf("invalid clinic slug: %s", slug)
	}

	schema := SchemaForClinic(slug)

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema))
	if err != nil {
		return fmt.Errorf("create schema %s: %w", schema, err)
	}

	if migrationsDir != "" {
		migrator := NewMigrator(pool, migrationsDir)
		if _, err := migrator.Up(ctx, schema); err != nil {
			return fmt.Errorf("run migrations for %s: %w", schema, err)
		}
	}

	return nil
}
