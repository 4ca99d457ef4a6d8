package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"spot-service/internal/directory"
	"spot-service/internal/models"
	"spot-service/internal/plans"
	"spot-service/internal/profile"
)

// PlanHandler manages meetup plan endpoints.
type PlanHandler struct {
	registry  *plans.Registry
	directory *directory.Directory
	profiles  *profile.Store
}

// NewPlanHandler builds a PlanHandler.
func NewPlanHandler(registry *plans.Registry, d *directory.Directory, profiles *profile.Store) *PlanHandler {
	return &PlanHandler{registry: registry, directory: d, profiles: profiles}
}

// ListPlans returns the plans at one location, soonest first.
func (h *PlanHandler) ListPlans(c *gin.Context) {
	locationID := c.Param("location_id")
	if locationID == "" {
		locationID = c.Query("location_id")
	}
	if locationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "location_id is required"})
		return
	}

	planList, err := h.registry.ListForLocation(c.Request.Context(), locationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load plans"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"plans": planList})
}

// CreatePlan creates a plan hosted by the authenticated user. Host and
// location names are captured as snapshots at creation time.
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req struct {
		LocationID      string    `json:"location_id" binding:"required"`
		Title           string    `json:"title" binding:"required"`
		StartTime       time.Time `json:"start_time" binding:"required"`
		EndTime         time.Time `json:"end_time" binding:"required"`
		MaxParticipants int       `json:"max_participants" binding:"required"`
		AllowInvites    bool      `json:"allow_invites"`
		Tag             string    `json:"tag"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")

	spot, err := h.directory.Get(c.Request.Context(), req.LocationID)
	if errors.Is(err, directory.ErrSpotNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "location not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load location"})
		return
	}

	hostName := ""
	if p, err := h.profiles.Get(c.Request.Context(), userID); err == nil {
		hostName = p.Name
	}

	plan, err := h.registry.Create(c.Request.Context(), models.Plan{
		HostID:          userID,
		HostName:        hostName,
		LocationID:      spot.ID,
		LocationName:    spot.Name,
		Title:           req.Title,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
		AllowInvites:    req.AllowInvites,
		Tag:             req.Tag,
	})
	switch {
	case errors.Is(err, plans.ErrInvalidPlan):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create plan"})
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// GetPlan returns one plan.
func (h *PlanHandler) GetPlan(c *gin.Context) {
	plan, err := h.registry.Get(c.Request.Context(), c.Param("plan_id"))
	switch {
	case errors.Is(err, plans.ErrPlanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load plan"})
		return
	}

	c.JSON(http.StatusOK, plan)
}

// JoinPlan adds the authenticated user to the plan's participants.
func (h *PlanHandler) JoinPlan(c *gin.Context) {
	userID := c.GetString("userID")

	err := h.registry.Join(c.Request.Context(), c.Param("plan_id"), userID)
	switch {
	case errors.Is(err, plans.ErrPlanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
		return
	case errors.Is(err, plans.ErrPlanFull):
		c.JSON(http.StatusConflict, gin.H{"error": "plan is full"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not join plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "joined"})
}

// LeavePlan removes the authenticated user from the plan's participants.
func (h *PlanHandler) LeavePlan(c *gin.Context) {
	userID := c.GetString("userID")

	err := h.registry.Leave(c.Request.Context(), c.Param("plan_id"), userID)
	switch {
	case errors.Is(err, plans.ErrPlanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not leave plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

// DeletePlan removes a plan. Only the host may delete it.
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	userID := c.GetString("userID")

	plan, err := h.registry.Get(c.Request.Context(), c.Param("plan_id"))
	switch {
	case errors.Is(err, plans.ErrPlanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load plan"})
		return
	}
	if plan.HostID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the host can delete a plan"})
		return
	}

	if err := h.registry.Delete(c.Request.Context(), plan.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
