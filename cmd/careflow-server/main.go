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

	"github.com/careflow/careflow/internal/config"
	"github.com/careflow/careflow/internal/domain/checklist"
	"github.com/careflow/careflow/internal/domain/lifecycle"
	"github.com/careflow/careflow/internal/domain/patient"
	"github.com/careflow/careflow/internal/domain/timeline"
	"github.com/careflow/careflow/internal/platform/apperr"
	"github.com/careflow/careflow/internal/platform/db"
	"github.com/careflow/careflow/internal/platform/identity"
	"github.com/careflow/careflow/internal/platform/metrics"
	"github.com/careflow/careflow/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "careflow-server",
		Short: "Patient flow tracking API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
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
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s).\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

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
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the default stage-transition rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := checklist.NewRepo(pool)
			for _, rule := range defaultRules() {
				if err := repo.Create(ctx, rule); err != nil {
					return fmt.Errorf("seed rule %s -> %s: %w", rule.FromStage, rule.ToStage, err)
				}
				fmt.Printf("seeded %s -> %s\n", rule.FromStage, rule.ToStage)
			}
			return nil
		},
	}
}

// defaultRules is the standard surgical-admission flow. Create upserts, so
// re-seeding is safe.
func defaultRules() []*checklist.Rule {
	return []*checklist.Rule{
		{
			FromStage:       "onboarding",
			ToStage:         "pre-procedure",
			RequiredOnEntry: []string{"consent_signed", "insurance_verified"},
			RequiredOnExit:  []string{},
		},
		{
			FromStage:       "pre-procedure",
			ToStage:         "in-procedure",
			RequiredOnEntry: []string{"anesthesia_cleared", "site_marked"},
			RequiredOnExit:  []string{"vitals_recorded"},
		},
		{
			FromStage:       "in-procedure",
			ToStage:         "post-procedure",
			RequiredOnEntry: []string{"recovery_bed_assigned"},
			RequiredOnExit:  []string{"operative_notes_signed"},
		},
		{
			// Return to the operating room is a legal, if uncommon, move.
			FromStage:       "post-procedure",
			ToStage:         "in-procedure",
			RequiredOnEntry: []string{"reoperation_consent"},
			RequiredOnExit:  []string{},
		},
		{
			FromStage:       "post-procedure",
			ToStage:         "discharge-pending",
			RequiredOnEntry: []string{"discharge_summary_drafted"},
			RequiredOnExit:  []string{"pain_score_recorded"},
		},
		{
			FromStage:       "discharge-pending",
			ToStage:         "discharged",
			RequiredOnEntry: []string{},
			RequiredOnExit:  []string{"prescriptions_issued", "followup_scheduled"},
		},
	}
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

	ctx := context.Background()
	pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Repositories and services
	patientRepo := patient.NewRepo(pool)
	entryRepo := timeline.NewRepo(pool)
	ruleRepo := checklist.NewRepo(pool)

	registry := checklist.NewRegistry()
	if err := registry.Load(ctx, ruleRepo); err != nil {
		logger.Fatal().Err(err).Msg("failed to load transition rules")
	}
	logger.Info().Int("rules", registry.Len()).Msg("transition rules loaded")

	patientSvc := patient.NewService(patientRepo)
	timelineSvc := timeline.NewService(entryRepo)
	checklistSvc := checklist.NewService(ruleRepo, registry)
	lifecycleSvc := lifecycle.NewService(
		pool, patientRepo, entryRepo, registry,
		cfg.InitialStage, cfg.TransitionRetries, logger,
	)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(e, logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Actor-ID"},
	}))
	e.Use(identity.Middleware(identity.Config{
		Secret:      cfg.IdentityJWTSecret,
		AllowHeader: cfg.IsDev(),
	}))
	e.Use(metrics.Middleware())
	e.Use(middleware.RequestTimeout(time.Duration(cfg.RequestTimeoutSecs) * time.Second))

	// Routes
	apiV1 := e.Group("/api/v1")
	lifecycle.NewHandler(lifecycleSvc).RegisterRoutes(apiV1)
	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	timeline.NewHandler(timelineSvc).RegisterRoutes(apiV1)
	checklist.NewHandler(checklistSvc).RegisterRoutes(apiV1)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", metrics.Handler())

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
