package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"spot-service/internal/directory"
	"spot-service/internal/models"
)

// SpotHandler manages the shared spot catalog endpoints.
type SpotHandler struct {
	directory *directory.Directory
}

// NewSpotHandler builds a SpotHandler.
func NewSpotHandler(d *directory.Directory) *SpotHandler {
	return &SpotHandler{directory: d}
}

// ListSpots returns the spots visible to the authenticated user.
func (h *SpotHandler) ListSpots(c *gin.Context) {
	userID := c.GetString("userID")

	spots, err := h.directory.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load spots"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"spots": spots})
}

// AddSpot creates a new spot in the shared catalog.
func (h *SpotHandler) AddSpot(c *gin.Context) {
	var req struct {
		Name      string  `json:"name" binding:"required"`
		Category  string  `json:"category" binding:"required"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Status    string  `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	spot, err := h.directory.Add(c.Request.Context(), userID, models.Location{
		Name:          req.Name,
		Category:      req.Category,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		CurrentStatus: models.LocationStatus(req.Status),
	})
	switch {
	case errors.Is(err, directory.ErrInvalidSpot), errors.Is(err, directory.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create spot"})
		return
	}

	c.JSON(http.StatusCreated, spot)
}

// UpdateSpotStatus sets a spot's crowd status.
func (h *SpotHandler) UpdateSpotStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	spot, err := h.directory.UpdateStatus(c.Request.Context(), userID, c.Param("spot_id"), models.LocationStatus(req.Status))
	switch {
	case errors.Is(err, directory.ErrSpotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "spot not found"})
		return
	case errors.Is(err, directory.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "status not allowed for this spot"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"spot_id":     spot.ID,
		"status":      spot.CurrentStatus,
		"last_update": spot.LastUpdate.Format(time.RFC3339Nano),
	})
}

// DeleteSpot removes a spot from the catalog for all users. Only the spot's
// creator may delete it.
func (h *SpotHandler) DeleteSpot(c *gin.Context) {
	userID := c.GetString("userID")

	spot, err := h.directory.Get(c.Request.Context(), c.Param("spot_id"))
	switch {
	case errors.Is(err, directory.ErrSpotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "spot not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load spot"})
		return
	}
	if spot.CreatedBy != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the creator can delete a spot"})
		return
	}

	err = h.directory.Delete(c.Request.Context(), spot.ID)
	switch {
	case errors.Is(err, directory.ErrSpotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "spot not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete spot"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// HideSpot hides a spot from the authenticated user's own feed.
func (h *SpotHandler) HideSpot(c *gin.Context) {
	userID := c.GetString("userID")
	if err := h.directory.Hide(c.Request.Context(), userID, c.Param("spot_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hide spot"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "hidden"})
}

// UnhideSpot restores a previously hidden spot to the user's feed.
func (h *SpotHandler) UnhideSpot(c *gin.Context) {
	userID := c.GetString("userID")
	if err := h.directory.Unhide(c.Request.Context(), userID, c.Param("spot_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not unhide spot"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "visible"})
}
