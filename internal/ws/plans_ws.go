package ws

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"spot-service/internal/models"
	"spot-service/internal/observability"
	"spot-service/internal/plans"
	"spot-service/internal/rabbitmq"
	"spot-service/internal/session"
)

// PlanWebSocketHandler streams the plan list for one location.
type PlanWebSocketHandler struct {
	registry  *plans.Registry
	verifier  *session.Verifier
	publisher rabbitmq.Publisher
}

// NewPlanWebSocketHandler constructs a PlanWebSocketHandler.
func NewPlanWebSocketHandler(registry *plans.Registry, verifier *session.Verifier, publisher rabbitmq.Publisher) *PlanWebSocketHandler {
	return &PlanWebSocketHandler{registry: registry, verifier: verifier, publisher: publisher}
}

// Handle upgrades the connection and streams plan snapshots for the location
// until the peer disconnects.
func (h *PlanWebSocketHandler) Handle(c *gin.Context) {
	locationID := c.Param("location_id")

	ctx, span := otel.Tracer("spot-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := authenticate(c, h.verifier)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	life := lifecycle{
		publisher:  h.publisher,
		routingKey: "ws_events.plans",
		kind:       "plans",
		resourceID: locationID,
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

	snapshots, cancel := h.registry.Subscribe(locationID)

	go func() {
		for planList := range snapshots {
			if err := conn.WriteJSON(models.PlanEvent{Type: "snapshot", Plans: planList}); err != nil {
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
