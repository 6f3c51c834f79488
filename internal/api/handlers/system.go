package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AustinCai/ai-spam-killer/internal/config"
	"github.com/AustinCai/ai-spam-killer/internal/database/models"
	"github.com/AustinCai/ai-spam-killer/internal/services"
)

// SystemHandler handles status and authentication requests
type SystemHandler struct {
	cfg         *config.Config
	sessions    *services.SessionManager
	scanService *services.ScanService
	logService  *services.LogService
}

// NewSystemHandler creates a new SystemHandler instance
func NewSystemHandler(cfg *config.Config, sessions *services.SessionManager, scanService *services.ScanService, logService *services.LogService) *SystemHandler {
	return &SystemHandler{
		cfg:         cfg,
		sessions:    sessions,
		scanService: scanService,
		logService:  logService,
	}
}

// GetStatus returns authentication and scan state
func (h *SystemHandler) GetStatus(c *gin.Context) {
	status := h.scanService.Status()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"authenticated": h.sessions.Authenticated(),
			"ai_configured": h.cfg.AIAPIKey != "",
			"scanning":      status.Scanning,
		},
	})
}

// Authenticate establishes the Gmail session used by scan and archive
func (h *SystemHandler) Authenticate(c *gin.Context) {
	if h.sessions.Authenticated() {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    gin.H{"message": "Already authenticated"},
		})
		return
	}

	session, err := services.NewSession(c.Request.Context(), h.cfg)
	if err != nil {
		h.logService.LogError(models.LogModuleAPI, "authenticate_failed", err.Error(), nil)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "AUTH_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	h.sessions.Set(session)
	h.logService.LogInfo(models.LogModuleAPI, "authenticated", "Gmail session established", nil)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"message": "Authentication successful"},
	})
}
