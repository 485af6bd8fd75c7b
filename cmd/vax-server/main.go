package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/schoolvax/schoolvax/internal/config"
	"github.com/schoolvax/schoolvax/internal/domain/attendance"
	"github.com/schoolvax/schoolvax/internal/domain/consent"
	"github.com/schoolvax/schoolvax/internal/domain/matching"
	"github.com/schoolvax/schoolvax/internal/domain/patient"
	"github.com/schoolvax/schoolvax/internal/domain/programme"
	"github.com/schoolvax/schoolvax/internal/domain/status"
	"github.com/schoolvax/schoolvax/internal/domain/triage"
	"github.com/schoolvax/schoolvax/internal/domain/vaccination"
	"github.com/schoolvax/schoolvax/internal/platform/auth"
	"github.com/schoolvax/schoolvax/internal/platform/db"
	"github.com/schoolvax/schoolvax/internal/platform/middleware"
)

// gateChecker is the slice of the status service that the vaccination gate
// adapter needs. It is an interface so the conversion can be tested without
// standing up the full status pipeline.
type gateChecker interface {
	Check(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear, sessionID uuid.UUID) (status.Gate, error)
}

// statusGate adapts the status service to the vaccination.Gate interface,
// avoiding a direct import cycle between the two domains. The checker is
// assigned after the status service is constructed because the status
// service itself reads vaccination records.
type statusGate struct {
	checker gateChecker
}

func (g *statusGate) Check(ctx context.Context, patientID uuid.UUID, t programme.Type, year programme.AcademicYear, sessionID uuid.UUID) (vaccination.GateResult, error) {
	if g.checker == nil {
		return vaccination.GateResult{}, fmt.Errorf("status gate not initialised")
	}
	gate, err := g.checker.Check(ctx, patientID, t, year, sessionID)
	if err != nil {
		return vaccination.GateResult{}, err
	}
	return vaccination.GateResult{
		Allowed:            gate.Allowed,
		Reason:             gate.Reason,
		PermittedMethods:   gate.PermittedMethods,
		AdmissibleVariants: gate.AdmissibleVariants,
		AcademicYear:       year,
	}, nil
}

type patientGetter interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// patientYearGroups adapts the patient service to status.PatientSource.
type patientYearGroups struct {
	patients patientGetter
}

func (p *patientYearGroups) YearGroup(ctx context.Context, patientID uuid.UUID) (*int, error) {
	pt, err := p.patients.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return pt.YearGroup, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "vax-server",
		Short: "School vaccination programme API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(orgCmd())

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

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
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
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
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
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				state := "pending"
				appliedAt := ""
				if s.Applied {
					state = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, state, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	// migrate down - keep as warning
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Restore from a backup or write a forward migration instead.")
			return nil
		},
	})

	return cmd
}

func orgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage organisations",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new organisation",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			odsCode, _ := cmd.Flags().GetString("ods-code")
			if name == "" {
				return fmt.Errorf("--name is required")
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

			org, err := db.CreateOrganisation(ctx, pool, name, odsCode)
			if err != nil {
				return err
			}
			fmt.Printf("Organisation created: %s (%s)\n", org.Name, org.ID)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Organisation name")
	createCmd.Flags().String("ods-code", "", "ODS organisation code")
	cmd.AddCommand(createCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered organisations",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			orgs, err := db.ListOrganisations(ctx, pool)
			if err != nil {
				return err
			}
			fmt.Printf("%-38s %-30s %s\n", "ID", "NAME", "ODS CODE")
			for _, o := range orgs {
				fmt.Printf("%-38s %-30s %s\n", o.ID, o.Name, o.ODSCode)
			}
			return nil
		},
	}
	cmd.AddCommand(listCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.SanitizeWithLogger(logger))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(cfg.DevOrgID))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}

	// Audit middleware
	e.Use(middleware.Audit(logger))

	// API group
	apiV1 := e.Group("/api/v1")

	// Rate limiting middleware
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// -- Register Domain Handlers --

	// Patient domain
	patientRepo := patient.NewRepoPG(pool)
	parentRepo := patient.NewParentRepoPG(pool)
	moveRepo := patient.NewSchoolMoveRepoPG(pool)
	patientSvc := patient.NewService(patientRepo, parentRepo, moveRepo)
	patientHandler := patient.NewHandler(patientSvc)
	patientHandler.RegisterRoutes(apiV1)

	// Consent domain
	consentRepo := consent.NewRepoPG(pool)
	consentSvc := consent.NewService(consentRepo)
	consentHandler := consent.NewHandler(consentSvc)
	consentHandler.RegisterRoutes(apiV1)

	// Triage domain
	triageRepo := triage.NewRepoPG(pool)
	triageSvc := triage.NewService(triageRepo, consentSvc)
	triageHandler := triage.NewHandler(triageSvc)
	triageHandler.RegisterRoutes(apiV1)

	// Vaccination domain. Its pre-administration gate is the status service,
	// which in turn reads vaccination records, so the gate is wired through
	// an adapter whose checker is assigned once the status service exists.
	gate := &statusGate{}
	sessionRepo := vaccination.NewSessionRepoPG(pool)
	recordRepo := vaccination.NewRecordRepoPG(pool)
	batchRepo := vaccination.NewDefaultBatchRepoPG(pool)
	vaccinationSvc := vaccination.NewService(pool, sessionRepo, recordRepo, batchRepo, gate)
	vaccinationHandler := vaccination.NewHandler(vaccinationSvc)
	vaccinationHandler.RegisterRoutes(apiV1)

	// Attendance domain
	attendanceRepo := attendance.NewRepoPG(pool)
	attendanceSvc := attendance.NewService(attendanceRepo, vaccinationSvc)
	attendanceHandler := attendance.NewHandler(attendanceSvc)
	attendanceHandler.RegisterRoutes(apiV1)

	// Status domain
	statusSvc := status.NewService(consentSvc, triageSvc, attendanceSvc, vaccinationSvc, &patientYearGroups{patients: patientSvc})
	gate.checker = statusSvc
	statusHandler := status.NewHandler(statusSvc)
	statusHandler.RegisterRoutes(apiV1)

	// Matching domain
	formRepo := matching.NewRepoPG(pool)
	matchingSvc := matching.NewService(pool, formRepo, patientSvc, consentSvc)
	matchingHandler := matching.NewHandler(matchingSvc)
	matchingHandler.RegisterRoutes(apiV1)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
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
