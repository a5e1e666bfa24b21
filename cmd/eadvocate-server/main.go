package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/eadvocate/eadvocate/internal/config"
	"github.com/eadvocate/eadvocate/internal/domain/job"
	"github.com/eadvocate/eadvocate/internal/domain/patient"
	"github.com/eadvocate/eadvocate/internal/domain/professional"
	"github.com/eadvocate/eadvocate/internal/domain/rfc"
	"github.com/eadvocate/eadvocate/internal/domain/watchlist"
	"github.com/eadvocate/eadvocate/internal/platform/auth"
	"github.com/eadvocate/eadvocate/internal/platform/db"
	"github.com/eadvocate/eadvocate/internal/platform/events"
	"github.com/eadvocate/eadvocate/internal/platform/middleware"
	"github.com/eadvocate/eadvocate/migrations"
)

// JobCreatorAdapter adapts job.Service to rfc.JobCreator, keeping the rfc
// package free of a dependency on jobs.
type JobCreatorAdapter struct {
	svc *job.Service
}

func NewJobCreatorAdapter(svc *job.Service) *JobCreatorAdapter {
	return &JobCreatorAdapter{svc: svc}
}

// CreateJobFromProposal implements rfc.JobCreator.
func (a *JobCreatorAdapter) CreateJobFromProposal(ctx context.Context, r *rfc.RequestForCare, p *rfc.Proposal) (uuid.UUID, error) {
	j, _, err := a.svc.CreateFromProposal(ctx, jobFromProposal(r, p))
	if err != nil {
		return uuid.Nil, err
	}
	return j.ID, nil
}

func jobFromProposal(r *rfc.RequestForCare, p *rfc.Proposal) *job.Job {
	return &job.Job{
		ProposalID:       p.ID,
		RequestForCareID: r.ID,
		ClientID:         r.ClientID,
		ProfessionalID:   p.UserID,
		PatientID:        r.PatientID,
		Title:            r.Name,
		PayRange:         p.PayRange,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "eadvocate-server",
		Short: "eAdvocate care request API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(schemaCmd())

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

// openPool loads config and connects to the database for the CLI commands.
func openPool(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, "", cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

// newMigrator reads migrations from dir, or from the set embedded in the
// binary when dir is empty.
func newMigrator(pool *pgxpool.Pool, dir string) *db.Migrator {
	if dir == "" {
		return db.NewMigratorFS(pool, embeddedMigrations())
	}
	return db.NewMigrator(pool, dir)
}

func embeddedMigrations() fs.FS {
	return migrations.FS
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
			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			schema := flagOr(cmd, "schema", cfg.DBSchema)
			dir := flagOr(cmd, "dir", cfg.MigrationsDir)
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := newMigrator(pool, dir).Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "", "Target schema (default DB_SCHEMA)")
	upCmd.Flags().String("dir", "", "Migrations directory (default MIGRATIONS_DIR; \"embedded\" uses the built-in set)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			schema := flagOr(cmd, "schema", cfg.DBSchema)
			dir := flagOr(cmd, "dir", cfg.MigrationsDir)
			statuses, err := newMigrator(pool, dir).Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatuses(os.Stdout, schema, statuses)
			return nil
		},
	}
	statusCmd.Flags().String("schema", "", "Target schema (default DB_SCHEMA)")
	statusCmd.Flags().String("dir", "", "Migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

// flagOr returns the flag value, falling back to def when unset. The value
// "embedded" selects the migrations compiled into the binary.
func flagOr(cmd *cobra.Command, name, def string) string {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		v = def
	}
	if v == "embedded" {
		return ""
	}
	return v
}

func printStatuses(w io.Writer, schema string, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "Migration status for schema: %s\n", schema)
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func schemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage database schemas",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a schema and apply all migrations to it",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			if !db.ValidSchema(name) {
				return fmt.Errorf("invalid schema name: %s", name)
			}

			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Printf("Creating schema: %s\n", name)
			if err := db.CreateSchema(ctx, pool, name, ""); err != nil {
				return err
			}
			count, err := newMigrator(pool, flagOr(cmd, "dir", cfg.MigrationsDir)).Up(ctx, name)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Schema created; applied %d migration(s).\n", count)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Schema name (alphanumeric and underscores)")
	createCmd.Flags().String("dir", "", "Migrations directory (default MIGRATIONS_DIR)")

	cmd.AddCommand(createCmd)
	return cmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func newPublisher(cfg *config.Config, logger zerolog.Logger) (events.Publisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NewLogPublisher(logger), func() {}
	}
	pub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing lifecycle events to kafka")
	return pub, func() {
		if err := pub.Close(); err != nil {
			logger.Error().Err(err).Msg("closing kafka writer")
		}
	}
}

func newRateLimiter(ctx context.Context, cfg *config.Config, rl middleware.RateLimitConfig, logger zerolog.Logger) (middleware.Limiter, func()) {
	if cfg.RedisURL == "" {
		return middleware.NewMemoryLimiter(rl), func() {}
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid REDIS_URL, falling back to in-memory rate limiting")
		return middleware.NewMemoryLimiter(rl), func() {}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable; rate limiter will fail open until it recovers")
	}
	return middleware.NewRedisLimiter(client, rl.BurstSize, time.Second, "ratelimit:"), func() {
		client.Close()
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBSchema, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Str("schema", cfg.DBSchema).Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, auth.DevUserIDHeader, auth.DevRoleHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(db.PoolCheck(pool)))

	var authMW echo.MiddlewareFunc
	if cfg.IsDev() && cfg.AuthIssuer == "" && cfg.AuthSigningKey == "" {
		logger.Warn().Msg("development auth: trusting X-User-ID / X-User-Role headers")
		authMW = auth.DevAuthMiddleware()
	} else {
		authMW = auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: cfg.SigningKey(),
		})
	}

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	limiter, closeLimiter := newRateLimiter(ctx, cfg, rateLimitCfg, logger)
	defer closeLimiter()

	apiV1 := e.Group("/api/v1", authMW)
	apiV1.Use(middleware.RateLimitWith(limiter, rateLimitCfg))
	apiV1.Use(middleware.Audit(logger, nil))

	publisher, closePublisher := newPublisher(cfg, logger)
	defer closePublisher()

	// Repositories and services
	tx := db.NewTransactor(pool)

	patientSvc := patient.NewService(patient.NewRepoPG(pool))
	professionalSvc := professional.NewService(professional.NewRepoPG(pool))
	watchSvc := watchlist.NewService(watchlist.NewRepoPG(pool), professionalSvc)
	jobSvc := job.NewService(job.NewRepoPG(pool))

	rfcSvc := rfc.NewService(tx, rfc.NewRFCRepoPG(pool), rfc.NewProposalRepoPG(pool),
		patientSvc, watchSvc, professionalSvc, NewJobCreatorAdapter(jobSvc))
	rfcSvc.SetPublisher(publisher, logger)

	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	professional.NewHandler(professionalSvc).RegisterRoutes(apiV1)
	watchlist.NewHandler(watchSvc).RegisterRoutes(apiV1)
	job.NewHandler(jobSvc).RegisterRoutes(apiV1)
	rfc.NewHandler(rfcSvc).RegisterRoutes(apiV1)

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
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
