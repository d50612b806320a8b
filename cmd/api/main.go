package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/linemaint/internal/api"
	"github.com/timmy/linemaint/internal/api/middleware"
	"github.com/timmy/linemaint/internal/config"
	"github.com/timmy/linemaint/internal/logger"
	"github.com/timmy/linemaint/internal/repository"
	"github.com/timmy/linemaint/internal/service"
	"github.com/timmy/linemaint/internal/storage"
)

func main() {
	// Initialize logger first so config errors are logged the same way
	envCfg := logger.LoadFromEnv()
	envCfg.ServiceName = "linemaint-api"
	appLogger := logger.NewFromEnv(envCfg)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	reportRepo := repository.NewFailureReportRepository(db)

	// Initialize storage (supports local files, R2, S3)
	ctx := context.Background()
	objectStorage, err := storage.NewStorage(cfg.GetStorageConfig())
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}
	if b, ok := objectStorage.(interface{ EnsureBucket(context.Context) error }); ok {
		if err := b.EnsureBucket(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
		}
	}

	// Initialize services
	photoService := service.NewPhotoService(objectStorage, appLogger, &service.PhotoConfig{
		MaxFileSize:       cfg.Upload.MaxFileSize,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
	})
	maintenanceService := service.NewMaintenanceService(reportRepo, photoService, appLogger, nil)

	// Setup router
	router := api.SetupRouter(maintenanceService, photoService, appLogger, api.RouterConfig{
		Mode: cfg.Server.Mode,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		MaxUploadSize: photoService.MaxFileSize(),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port":    cfg.Server.Port,
			"mode":    cfg.Server.Mode,
			"storage": cfg.Storage.Type,
			"db":      cfg.Database.Driver,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	appLogger.Info("Server exited")
}
