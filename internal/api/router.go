package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/AustinCai/ai-spam-killer/internal/api/handlers"
	"github.com/AustinCai/ai-spam-killer/internal/api/middleware"
	"github.com/AustinCai/ai-spam-killer/internal/config"
	"github.com/AustinCai/ai-spam-killer/internal/services"
)

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, *middleware.APIKeyManager, error) {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigins},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	apiKeyManager, err := middleware.NewAPIKeyManager(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}

	logService := services.NewLogServiceWithLevel(db, cfg.LogLevel)
	scanService := services.NewScanService(db, logService, cfg.Workers)
	sessions := services.NewSessionManager()

	systemHandler := handlers.NewSystemHandler(cfg, sessions, scanService, logService)
	scanHandler := handlers.NewScanHandler(db, cfg, sessions, scanService, logService)
	archiveHandler := handlers.NewArchiveHandler(sessions, scanService)

	// Health check endpoint (no auth required)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	api := router.Group("/api")
	{
		api.Use(middleware.APIKeyMiddleware(apiKeyManager))

		api.GET("/status", systemHandler.GetStatus)
		api.POST("/authenticate", systemHandler.Authenticate)

		api.POST("/scan", scanHandler.StartScan)
		api.GET("/scan/status", scanHandler.GetScanStatus)
		api.GET("/results", scanHandler.GetResults)

		api.POST("/archive", archiveHandler.Archive)
	}

	return router, apiKeyManager, nil
}
