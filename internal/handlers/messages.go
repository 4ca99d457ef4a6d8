package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"spot-service/internal/chat"
	"spot-service/internal/imaging"
	"spot-service/internal/plans"
	"spot-service/internal/profile"
)

// MessageHandler manages plan chat endpoints.
type MessageHandler struct {
	channel  *chat.Channel
	registry *plans.Registry
	profiles *profile.Store
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(channel *chat.Channel, registry *plans.Registry, profiles *profile.Store) *MessageHandler {
	return &MessageHandler{channel: channel, registry: registry, profiles: profiles}
}

// GetPlanMessages returns the plan's chat history filtered for the user.
func (h *MessageHandler) GetPlanMessages(c *gin.Context) {
	planID := c.Param("plan_id")
	userID := c.GetString("userID")

	if !h.requireMembership(c, planID, userID) {
		return
	}

	msgs, err := h.channel.History(c.Request.Context(), planID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostPlanMessage appends a text or image message to the plan's chat. Image
// payloads are sent base64 encoded and are compressed server side to fit the
// inline size cap.
func (h *MessageHandler) PostPlanMessage(c *gin.Context) {
	var req struct {
		Text        string `json:"text"`
		ImageBase64 string `json:"image_base64"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Text == "" && req.ImageBase64 == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text or image_base64 is required"})
		return
	}

	planID := c.Param("plan_id")
	userID := c.GetString("userID")

	if !h.requireMembership(c, planID, userID) {
		return
	}

	senderName := ""
	if p, err := h.profiles.Get(c.Request.Context(), userID); err == nil {
		senderName = p.Name
	}

	if req.ImageBase64 != "" {
		raw, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "image_base64 is not valid base64"})
			return
		}

		msg, err := h.channel.SendImage(c.Request.Context(), planID, userID, senderName, raw)
		switch {
		case errors.Is(err, imaging.ErrImageTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
			return
		case err != nil:
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not process image"})
			return
		}
		c.JSON(http.StatusCreated, msg)
		return
	}

	msg, err := h.channel.SendText(c.Request.Context(), planID, userID, senderName, req.Text)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message text is empty"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not send message"})
		return
	}

	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) requireMembership(c *gin.Context, planID, userID string) bool {
	plan, err := h.registry.Get(c.Request.Context(), planID)
	switch {
	case errors.Is(err, plans.ErrPlanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
		return false
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return false
	}
	if !plan.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a plan participant"})
		return false
	}
	return true
}
