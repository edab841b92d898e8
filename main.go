package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/ignitedata-ai/catalog-engine/pkg/config"
	"github.com/ignitedata-ai/catalog-engine/pkg/crypto"
	"github.com/ignitedata-ai/catalog-engine/pkg/database"
	"github.com/ignitedata-ai/catalog-engine/pkg/extractors"
	"github.com/ignitedata-ai/catalog-engine/pkg/handlers"
	"github.com/ignitedata-ai/catalog-engine/pkg/logging"
	"github.com/ignitedata-ai/catalog-engine/pkg/middleware"
	"github.com/ignitedata-ai/catalog-engine/pkg/repositories"
	"github.com/ignitedata-ai/catalog-engine/pkg/services"

	// Extractor registrations.
	_ "github.com/ignitedata-ai/catalog-engine/pkg/extractors/databricks"
	_ "github.com/ignitedata-ai/catalog-engine/pkg/extractors/mysql"
	_ "github.com/ignitedata-ai/catalog-engine/pkg/extractors/sqlserver"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("database", cfg.Database.Database),
		zap.String("database_host", cfg.Database.Host))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: int32(cfg.Database.MaxConnections),
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, "migrations", logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	encryptor, err := crypto.NewCredentialEncryptor(cfg.CredentialsKey)
	if err != nil {
		logger.Fatal("Failed to initialize credential encryptor", zap.Error(err))
	}

	assetRepo := repositories.NewAssetRepository()
	runRepo := repositories.NewConnectorRunRepository()
	dsRepo := repositories.NewDataSourceRepository()

	factory := extractors.NewExtractorFactory()
	scopes := database.NewTenantScopeProvider(db)

	reconciler := services.NewReconcilerService(assetRepo, logger)
	dsService := services.NewDataSourceService(dsRepo, factory, encryptor, logger)
	syncService := services.NewSyncService(
		dsRepo, runRepo, reconciler, factory, encryptor,
		services.NewRunGate(), scopes, cfg.Sync, logger)

	mux := http.NewServeMux()
	withTenant := database.WithTenantContext(db, logger)

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewDataSourceHandler(dsService, logger).RegisterRoutes(mux, withTenant)
	handlers.NewSyncHandler(syncService, runRepo, logger).RegisterRoutes(mux, withTenant)

	addr := cfg.BindAddr + ":" + cfg.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting catalog-engine",
			zap.String("addr", addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
