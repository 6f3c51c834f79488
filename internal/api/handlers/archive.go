package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AustinCai/ai-spam-killer/internal/services"
)

// ArchiveHandler handles archive-and-unsubscribe requests
type ArchiveHandler struct {
	sessions    *services.SessionManager
	scanService *services.ScanService
}

// NewArchiveHandler creates a new ArchiveHandler instance
func NewArchiveHandler(sessions *services.SessionManager, scanService *services.ScanService) *ArchiveHandler {
	return &ArchiveHandler{
		sessions:    sessions,
		scanService: scanService,
	}
}

// ArchiveRequest represents the request to archive one message
type ArchiveRequest struct {
	EmailID          string   `json:"email_id" binding:"required"`
	UnsubscribeLinks []string `json:"unsubscribe_links"`
	DoUnsubscribe    bool     `json:"do_unsubscribe"`
}

// Archive removes a message from the inbox, optionally attempting its
// unsubscribe links first
func (h *ArchiveHandler) Archive(c *gin.Context) {
	session, err := h.sessions.Current()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_AUTHENTICATED",
				"message": "Authenticate before archiving",
			},
		})
		return
	}

	var req ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "email_id is required",
			},
		})
		return
	}

	unsubscribed, err := h.scanService.ArchiveEmail(c.Request.Context(), session, req.EmailID, req.UnsubscribeLinks, req.DoUnsubscribe)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ARCHIVE_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"email_id":            req.EmailID,
			"archived":            true,
			"unsubscribe_success": unsubscribed,
		},
	})
}
