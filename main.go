package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/sellsignal/intent-engine/pkg/config"
	"github.com/sellsignal/intent-engine/pkg/database"
	"github.com/sellsignal/intent-engine/pkg/handlers"
	"github.com/sellsignal/intent-engine/pkg/logging"
	"github.com/sellsignal/intent-engine/pkg/middleware"
	"github.com/sellsignal/intent-engine/pkg/registry"
	"github.com/sellsignal/intent-engine/pkg/repositories"
	"github.com/sellsignal/intent-engine/pkg/scoring"
	"github.com/sellsignal/intent-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("registry", cfg.Registry.BaseURL),
		zap.String("weights_path", cfg.WeightsPath))

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Migrations run over database/sql; the pgx pool handles everything else.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	migrationDB.Close() //nolint:errcheck

	weights, err := scoring.LoadWeightTable(cfg.WeightsPath)
	if err != nil {
		logger.Fatal("Failed to load weight table", zap.Error(err))
	}
	logger.Info("Weight table loaded",
		zap.Int("version", weights.Version()),
		zap.Int("signal_types", weights.Len()))

	registryClient := registry.NewClient(cfg.Registry.BaseURL, cfg.Registry.Timeout(), logger)

	signalRepo := repositories.NewSignalRepository(db)
	dedupRepo := repositories.NewDedupRepository(db)
	scoreRepo := repositories.NewScoreRepository(db)
	rejectionRepo := repositories.NewRejectionRepository(db)

	scoringService := services.NewScoringService(signalRepo, scoreRepo, weights, logger)
	errorSink := services.NewErrorSinkService(rejectionRepo, cfg.Intake.ErrorSinkTimeout(), logger)
	intakeService := services.NewIntakeService(
		signalRepo, dedupRepo, scoringService, errorSink,
		registryClient, weights, cfg.Intake.StorageTimeout(), logger)

	mux := http.NewServeMux()
	handlers.NewSignalHandler(intakeService, logger).RegisterRoutes(mux)
	handlers.NewScoreHandler(scoringService, logger).RegisterRoutes(mux)
	handlers.NewHealthHandler(cfg, weights.Version(), logger).RegisterRoutes(mux)

	addr := net.JoinHostPort(cfg.BindAddr, cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting intent-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
