package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"spot-service/internal/chat"
	"spot-service/internal/models"
	"spot-service/internal/observability"
	"spot-service/internal/plans"
	"spot-service/internal/rabbitmq"
	"spot-service/internal/session"
)

// ChatWebSocketHandler streams one plan's chat history to a participant.
type ChatWebSocketHandler struct {
	channel   *chat.Channel
	registry  *plans.Registry
	verifier  *session.Verifier
	publisher rabbitmq.Publisher
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler.
func NewChatWebSocketHandler(channel *chat.Channel, registry *plans.Registry, verifier *session.Verifier, publisher rabbitmq.Publisher) *ChatWebSocketHandler {
	return &ChatWebSocketHandler{channel: channel, registry: registry, verifier: verifier, publisher: publisher}
}

// Handle upgrades the connection and streams chat snapshots until the peer
// disconnects. Only plan participants may connect.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	planID := c.Param("plan_id")

	ctx, span := otel.Tracer("spot-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := authenticate(c, h.verifier)
	if !ok {
		return
	}

	plan, err := h.registry.Get(ctx, planID)
	if err != nil || !plan.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for plan chat"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	life := lifecycle{
		publisher:  h.publisher,
		routingKey: "ws_events.chats",
		kind:       "chat",
		resourceID: planID,
		info: ConnInfo{
			ConnID:      newConnID(),
			UserID:      userID,
			DeviceID:    observability.DeviceIDFromRequest(c.Request),
			IP:          observability.IPFromRequest(c.Request),
			RequestID:   observability.RequestIDFromRequest(c.Request),
			TraceID:     span.SpanContext().TraceID().String(),
			ConnectedAt: time.Now(),
		},
	}
	life.connected(ctx)

	snapshots, cancel := h.channel.Subscribe(planID, userID)

	go func() {
		for messages := range snapshots {
			if err := conn.WriteJSON(models.ChatEvent{Type: "snapshot", Messages: messages}); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() {
			cancel()
			conn.Close()
		}()
		reason := drainUntilClose(ctx, conn, life)
		life.disconnected(ctx, reason)
	}()
}
