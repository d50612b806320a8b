package api

import (
	"github.com/gin-gonic/gin"

	"github.com/timmy/linemaint/internal/api/handler"
	"github.com/timmy/linemaint/internal/api/middleware"
	"github.com/timmy/linemaint/internal/logger"
	"github.com/timmy/linemaint/internal/service"
)

// RouterConfig holds HTTP layer settings.
type RouterConfig struct {
	Mode string
	CORS middleware.CORSConfig
	// MaxUploadSize bounds the multipart memory buffer for photo uploads.
	MaxUploadSize int64
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	maintenanceService *service.MaintenanceService,
	photoService *service.PhotoService,
	log *logger.Logger,
	cfg RouterConfig,
) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	if cfg.MaxUploadSize > 0 {
		// one extra MiB for the multipart envelope
		r.MaxMultipartMemory = cfg.MaxUploadSize + 1<<20
	}

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.CORS))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	reportHandler := handler.NewFailureReportHandler(maintenanceService)
	photoHandler := handler.NewPhotoHandler(photoService)
	adminHandler := handler.NewAdminHandler(maintenanceService, log)

	r.NoRoute(handler.NoRoute)
	r.NoMethod(handler.NoMethod)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	maintenance := v1.Group("/maintenance")
	{
		maintenance.GET("/health", healthHandler.MaintenanceHealth)
		maintenance.GET("/stats", adminHandler.Stats)

		// Failure reports
		maintenance.POST("/failure-reports", reportHandler.Create)
		maintenance.GET("/failure-reports", reportHandler.List)
		maintenance.GET("/failure-reports/:id", reportHandler.Get)
		maintenance.PATCH("/failure-reports/:id", reportHandler.Update)
		maintenance.DELETE("/failure-reports/:id", reportHandler.Delete)
		maintenance.POST("/failure-reports/:id/worker-arrived", reportHandler.MarkWorkerArrived)
		maintenance.POST("/failure-reports/:id/close", reportHandler.Close)
		maintenance.POST("/failure-reports/:id/photos", reportHandler.UploadPhoto)

		// Stored evidence
		maintenance.GET("/photos/*key", photoHandler.Serve)
	}

	return r
}
