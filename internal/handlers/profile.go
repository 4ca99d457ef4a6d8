package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spot-service/internal/models"
	"spot-service/internal/profile"
)

// ProfileHandler manages the authenticated user's profile endpoints.
type ProfileHandler struct {
	profiles *profile.Store
}

// NewProfileHandler builds a ProfileHandler.
func NewProfileHandler(profiles *profile.Store) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetProfile returns the caller's profile plus the derived level fields.
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	userID := c.GetString("userID")

	p, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":  p,
		"level":    profile.Level(p.Points),
		"progress": profile.ProgressToNextLevel(p.Points),
	})
}

// UpdateProfile saves the caller's editable profile fields. Counters and
// moderation sets are not writable here.
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name     string   `json:"name"`
		Bio      string   `json:"bio"`
		Location string   `json:"location"`
		Avatar   string   `json:"avatar"`
		Tags     []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	err := h.profiles.Save(c.Request.Context(), userID, models.Profile{
		Name:         req.Name,
		Bio:          req.Bio,
		HomeLocation: req.Location,
		Avatar:       req.Avatar,
		Tags:         req.Tags,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// ResetProfileCounters zeroes the caller's gamification counters. This is
// the account-reset flow, not part of sign-out.
func (h *ProfileHandler) ResetProfileCounters(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.profiles.ResetCounters(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reset counters"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
