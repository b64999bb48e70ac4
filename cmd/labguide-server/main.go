package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/labguide/labguide/internal/analysis"
	"github.com/labguide/labguide/internal/catalog"
	"github.com/labguide/labguide/internal/config"
	"github.com/labguide/labguide/internal/dispensary"
	"github.com/labguide/labguide/internal/domain/order"
	"github.com/labguide/labguide/internal/domain/profile"
	"github.com/labguide/labguide/internal/domain/report"
	"github.com/labguide/labguide/internal/payments"
	"github.com/labguide/labguide/internal/platform/auth"
	"github.com/labguide/labguide/internal/platform/blobstore"
	"github.com/labguide/labguide/internal/platform/db"
	"github.com/labguide/labguide/internal/platform/middleware"
	"github.com/labguide/labguide/internal/platform/telemetry"
	"github.com/labguide/labguide/internal/pricing"
	"github.com/labguide/labguide/internal/tenant"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "labguide-server",
		Short: "Lab report portal API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(clinicCmd())
	rootCmd.AddCommand(catalogCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "clinic_default", "Target schema for migrations")
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", "clinic_default", "Target schema for migrations")
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func clinicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clinic",
		Short: "Manage clinics",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a clinic and create its schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			slug, _ := cmd.Flags().GetString("slug")
			name, _ := cmd.Flags().GetString("name")
			dir, _ := cmd.Flags().GetString("dir")
			if slug == "" || name == "" {
				return fmt.Errorf("--slug and --name are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := tenant.NewService(tenant.NewRepoPG(pool))
			clinic := &tenant.Clinic{Slug: slug, Name: name}
			if err := svc.Create(ctx, clinic); err != nil {
				return err
			}

			fmt.Printf("Creating clinic schema: %s\n", db.SchemaForClinic(slug))
			if err := db.CreateClinicSchema(ctx, pool, slug, dir); err != nil {
				return err
			}
			fmt.Printf("Clinic %q created with id %s.\n", slug, clinic.ID)
			return nil
		},
	}
	createCmd.Flags().String("slug", "", "Clinic slug (lowercase, hyphenated)")
	createCmd.Flags().String("name", "", "Clinic display name")
	createCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(createCmd)

	return cmd
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Catalog utilities",
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the catalog file and print priced panels",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			if path == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				path = cfg.CatalogPath
			}

			cat, err := catalog.Load(path)
			if err != nil {
				return fmt.Errorf("catalog invalid: %w", err)
			}

			engine := pricing.NewEngine(cat)
			priced, err := engine.PriceAll()
			if err != nil {
				return fmt.Errorf("pricing failed: %w", err)
			}

			fmt.Printf("Catalog OK: %d panels, currency %s\n", len(priced), cat.Currency())
			for _, pp := range priced {
				degraded := ""
				if pp.Breakdown.Degraded {
					degraded = " (degraded to default markup)"
				}
				fmt.Printf("  %-30s %8.2f%s\n", pp.Panel.ID, float64(pp.PriceCents)/100, degraded)
			}
			return nil
		},
	}
	validateCmd.Flags().String("file", "", "Catalog file (defaults to CATALOG_PATH)")
	cmd.AddCommand(validateCmd)

	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// The catalog is part of the deployment; a malformed catalog is a
	// refusal to start, not a degraded boot.
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("catalog failed validation")
	}
	engine := pricing.NewEngine(cat)
	logger.Info().Int("panels", len(cat.Panels())).Str("currency", cat.Currency()).Msg("catalog loaded")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	metrics := telemetry.New()

	// Outbound clients
	analysisClient := analysis.NewClient(cfg.AnalysisURL, cfg.AnalysisAPIKey)
	checkoutClient := payments.NewClient(cfg.CheckoutURL, cfg.CheckoutAPIKey)
	dispensaryClient := dispensary.NewClient(cfg.DispensaryURL, cfg.DispensaryKey)

	// Stores and services
	blobs := blobstore.NewInMemoryBlobStore(middleware.ParseSize(cfg.MaxUploadSize))
	tenantSvc := tenant.NewService(tenant.NewRepoPG(pool))
	profileSvc := profile.NewService(profile.NewRepoPG(pool), dispensaryClient)
	reportSvc := report.NewService(report.NewRepoPG(pool), blobs, analysisClient, profileSvc, metrics)
	orderSvc := order.NewService(order.NewRepoPG(pool), engine, checkoutClient, cat.Currency(), metrics)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(metrics.Middleware())
	e.Use(middleware.BodyLimit(cfg.MaxUploadSize))
	e.Use(middleware.RequestTimeout(2 * time.Minute))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Clinic-Slug"},
	}))

	// Auth
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.JWTIssuer,
			SigningKey: []byte(cfg.JWTSigningKey),
		}))
	}

	// Health and metrics
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	// Direct-to-consumer surface
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(db.ClinicSchemaMiddleware(pool, cfg.DefaultClinic))

	// Clinic-scoped surface: the resolver runs before the schema
	// middleware so requests land in the clinic's schema.
	tenantGroup := e.Group("/c/:slug", tenant.ResolverMiddleware(tenantSvc))
	tenantGroup.Use(middleware.RateLimit(rateLimitCfg))
	tenantGroup.Use(db.ClinicSchemaMiddleware(pool, cfg.DefaultClinic))

	// Handlers
	pricingHandler := pricing.NewHandler(engine, cfg.DispensaryDiscountPct)
	pricingHandler.RegisterRoutes(apiV1)
	pricingHandler.RegisterRoutes(tenantGroup)

	tenantHandler := tenant.NewHandler(tenantSvc, cfg.DispensaryDiscountPct)
	tenantHandler.RegisterRoutes(apiV1, tenantGroup)

	profileHandler := profile.NewHandler(profileSvc)
	profileHandler.RegisterRoutes(apiV1)

	reportHandler := report.NewHandler(reportSvc)
	reportHandler.RegisterRoutes(apiV1)
	reportHandler.RegisterRoutes(tenantGroup)

	orderHandler := order.NewHandler(orderSvc)
	orderHandler.RegisterRoutes(apiV1)
	orderHandler.RegisterRoutes(tenantGroup)

	// Unknown routes get the same JSON 404 as unknown slugs.
	e.RouteNotFound("/*", tenant.NotFoundHandler)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
