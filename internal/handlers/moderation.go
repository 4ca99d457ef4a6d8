package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spot-service/internal/moderation"
)

// ModerationHandler manages block and report endpoints.
type ModerationHandler struct {
	ledger *moderation.Ledger
}

// NewModerationHandler builds a ModerationHandler.
func NewModerationHandler(ledger *moderation.Ledger) *ModerationHandler {
	return &ModerationHandler{ledger: ledger}
}

// BlockUser adds a user to the caller's block list.
func (h *ModerationHandler) BlockUser(c *gin.Context) {
	userID := c.GetString("userID")
	targetID := c.Param("user_id")

	if targetID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot block yourself"})
		return
	}

	if err := h.ledger.BlockUser(c.Request.Context(), userID, targetID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not block user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "blocked"})
}

// ListBlockedUsers returns the caller's block list.
func (h *ModerationHandler) ListBlockedUsers(c *gin.Context) {
	userID := c.GetString("userID")

	blocked, err := h.ledger.BlockedUsers(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load blocked users"})
		return
	}
	if blocked == nil {
		blocked = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"blocked_users": blocked})
}

// ReportContent appends a report for the moderation queue.
func (h *ModerationHandler) ReportContent(c *gin.Context) {
	var req struct {
		ContentID string `json:"content_id" binding:"required"`
		Type      string `json:"type" binding:"required"`
		Reason    string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	if err := h.ledger.Report(c.Request.Context(), userID, req.ContentID, req.Type, req.Reason); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not submit report"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "reported"})
}
