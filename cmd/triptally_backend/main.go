package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/triptally/triptally_backend/internal/adapters/database/pgsql"
	portssvc "github.com/triptally/triptally_backend/internal/core/ports/services"
	"github.com/triptally/triptally_backend/internal/core/services"
	"github.com/triptally/triptally_backend/internal/dto"
	"github.com/triptally/triptally_backend/internal/handlers"
	"github.com/triptally/triptally_backend/internal/middleware"
	"github.com/triptally/triptally_backend/pkg/config"
	"github.com/triptally/triptally_backend/pkg/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.IsProduction)
	slog.SetDefault(logger)

	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.DBConnectTimeout)
	defer cancel()
	dbPool, err := database.NewPgxPool(connectCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("Database connection pool established")

	if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		dto.RegisterCustomValidations(v)
	}

	r := gin.New()
	r.Use(
		middleware.StructuredLoggingMiddleware(logger),
		gin.Recovery(),
		cors.Default(),
		middleware.Metrics(),
		middleware.RequestTimeout(cfg.RequestTimeout),
	)
	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid rate limit", slog.String("error", err.Error()))
		os.Exit(1)
	}
	limiterInstance := limiter.New(memory.NewStore(), rate)

	container := buildServices(dbPool, cfg)
	handlers.RegisterRoutes(r, cfg, container, limiterInstance)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger returns a JSON logger in production and a colorized tint logger
// for local development.
func newLogger(isProduction bool) *slog.Logger {
	if isProduction {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug}))
}

// buildServices wires repositories and services into the container the HTTP
// layer consumes.
func buildServices(dbPool *pgxpool.Pool, cfg *config.Config) *portssvc.ServiceContainer {
	expenseRepo := pgsql.NewPgxExpenseRepository(dbPool)
	settlementRepo := pgsql.NewPgxSettlementRepository(dbPool)
	membershipRepo := pgsql.NewPgxMembershipRepository(dbPool)
	currencyRepo := pgsql.NewPgxCurrencyRepository(dbPool)

	membershipSvc := services.NewMembershipService(membershipRepo)
	currencySvc := services.NewCurrencyService(currencyRepo)
	expenseSvc := services.NewExpenseService(expenseRepo, membershipSvc, currencySvc)
	balanceSvc := services.NewBalanceService(expenseRepo, settlementRepo, membershipSvc)
	settlementSvc := services.NewSettlementService(
		settlementRepo, expenseRepo, membershipSvc, currencySvc,
		services.TrustPolicy(cfg.SettlementTrustPolicy),
	)

	return &portssvc.ServiceContainer{
		Expense:    expenseSvc,
		Balance:    balanceSvc,
		Settlement: settlementSvc,
		Currency:   currencySvc,
		Membership: membershipSvc,
	}
}

// runMigrations applies pending schema migrations over a temporary
// database/sql connection using the pgx stdlib driver.
func runMigrations(databaseURL string, logger *slog.Logger) error {
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer migrationDB.Close()

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply")
	} else {
		logger.Info("Database migrations applied")
	}
	return nil
}
