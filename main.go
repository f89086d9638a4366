package main

import (
	"context"
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/hausradar/dedup-engine/pkg/config"
	"github.com/hausradar/dedup-engine/pkg/database"
	"github.com/hausradar/dedup-engine/pkg/handlers"
	"github.com/hausradar/dedup-engine/pkg/logging"
	"github.com/hausradar/dedup-engine/pkg/middleware"
	"github.com/hausradar/dedup-engine/pkg/repositories"
	"github.com/hausradar/dedup-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := buildLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.Float64("min_confidence", cfg.Dedup.MinConfidence),
		zap.Int("workers", cfg.Dedup.Workers),
		zap.Int("batch_limit", cfg.Dedup.BatchLimit))

	ctx := context.Background()
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("Failed to close migration connection", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis",
			zap.String("error", logging.SanitizeError(err)))
	}
	if redisClient == nil {
		logger.Info("Redis not configured, using in-process scan lock")
	} else {
		defer func() { _ = redisClient.Close() }()
	}

	// Repositories
	propertyRepo := repositories.NewPropertyRepository(db)
	hashRepo := repositories.NewMediaHashRepository(db)
	groupRepo := repositories.NewGroupRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	// Services
	evaluator := services.NewMatchEvaluator()
	groupService := services.NewGroupService(groupRepo, logger)
	scanLock := services.NewScanLock(redisClient, cfg.Dedup.ScanTimeout())
	scanService := services.NewScanService(propertyRepo, hashRepo, evaluator, groupService, scanLock, cfg.Dedup, logger)
	reviewService := services.NewReviewService(db, groupRepo, auditRepo, logger)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	dedupHandler := handlers.NewDedupHandler(scanService, groupService, reviewService, logger)
	dedupHandler.RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting dedup-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func buildLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
