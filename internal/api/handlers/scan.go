package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/AustinCai/ai-spam-killer/internal/config"
	"github.com/AustinCai/ai-spam-killer/internal/database/models"
	"github.com/AustinCai/ai-spam-killer/internal/services"
)

// ScanHandler handles scan lifecycle requests
type ScanHandler struct {
	db          *gorm.DB
	cfg         *config.Config
	sessions    *services.SessionManager
	scanService *services.ScanService
	logService  *services.LogService
}

// NewScanHandler creates a new ScanHandler instance
func NewScanHandler(db *gorm.DB, cfg *config.Config, sessions *services.SessionManager, scanService *services.ScanService, logService *services.LogService) *ScanHandler {
	return &ScanHandler{
		db:          db,
		cfg:         cfg,
		sessions:    sessions,
		scanService: scanService,
		logService:  logService,
	}
}

// StartScanRequest represents the request to start a scan
type StartScanRequest struct {
	MaxEmails int64 `json:"max_emails"`
	DryRun    *bool `json:"dry_run"`
}

// StartScan kicks off a background scan over recent inbox messages
func (h *ScanHandler) StartScan(c *gin.Context) {
	session, err := h.sessions.Current()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_AUTHENTICATED",
				"message": "Authenticate before starting a scan",
			},
		})
		return
	}

	var req StartScanRequest
	// An empty body means defaults.
	_ = c.ShouldBindJSON(&req)

	opts := services.ScanOptions{
		MaxEmails:  h.cfg.MaxEmails,
		WindowDays: h.cfg.ScanWindowDays,
		DryRun:     true,
	}
	if req.MaxEmails > 0 {
		opts.MaxEmails = req.MaxEmails
	}
	if req.DryRun != nil {
		opts.DryRun = *req.DryRun
	}

	if h.scanService.Status().Scanning {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "SCAN_IN_PROGRESS",
				"message": "A scan is already in progress",
			},
		})
		return
	}

	go func() {
		if err := h.scanService.Scan(context.Background(), session, opts); err != nil {
			if errors.Is(err, services.ErrScanInProgress) {
				return
			}
			log.Printf("[API] scan failed: %v", err)
			h.logService.LogError(models.LogModuleAPI, "scan_failed", err.Error(), nil)
		}
	}()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"message": "Scan started"},
	})
}

// GetScanStatus returns progress of the running or last completed scan
func (h *ScanHandler) GetScanStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.scanService.Status(),
	})
}

// ResultResponse represents one persisted scan result
type ResultResponse struct {
	EmailID          string   `json:"email_id"`
	Subject          string   `json:"subject"`
	Sender           string   `json:"sender"`
	BodyPreview      string   `json:"body_preview"`
	IsSpam           bool     `json:"is_spam"`
	Reason           string   `json:"reason"`
	UnsubscribeLinks []string `json:"unsubscribe_links"`
	Archived         bool     `json:"archived"`
	UnsubscribeCount int      `json:"unsubscribe_count"`
}

// GetResults returns the persisted results of the most recent scan
func (h *ScanHandler) GetResults(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var scan models.Scan
	err := h.db.Order("id DESC").First(&scan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"data":    gin.H{"results": []ResultResponse{}},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve results",
			},
		})
		return
	}

	var rows []models.EmailResult
	if err := h.db.Where("scan_id = ?", scan.ID).
		Order("order_index ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve results",
			},
		})
		return
	}

	results := make([]ResultResponse, 0, len(rows))
	for _, row := range rows {
		var links []string
		if row.UnsubscribeLinks != "" {
			json.Unmarshal([]byte(row.UnsubscribeLinks), &links)
		}
		results = append(results, ResultResponse{
			EmailID:          row.MessageID,
			Subject:          row.Subject,
			Sender:           row.Sender,
			BodyPreview:      row.BodyPreview,
			IsSpam:           row.IsSpam,
			Reason:           row.Reason,
			UnsubscribeLinks: links,
			Archived:         row.Archived,
			UnsubscribeCount: row.UnsubscribeCount,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"scan_id":    scan.ID,
			"status":     scan.Status,
			"total":      scan.Total,
			"spam_count": scan.SpamCount,
			"results":    results,
		},
	})
}
