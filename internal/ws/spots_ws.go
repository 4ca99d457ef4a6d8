package ws

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"spot-service/internal/directory"
	"spot-service/internal/models"
	"spot-service/internal/observability"
	"spot-service/internal/rabbitmq"
	"spot-service/internal/session"
)

// SpotWebSocketHandler streams the viewer's visible spot list. Every catalog
// change, and every change to the viewer's hide and block lists, produces a
// fresh full snapshot frame.
type SpotWebSocketHandler struct {
	directory *directory.Directory
	verifier  *session.Verifier
	sessions  *session.Sessions
	publisher rabbitmq.Publisher
}

// NewSpotWebSocketHandler constructs a SpotWebSocketHandler.
func NewSpotWebSocketHandler(d *directory.Directory, verifier *session.Verifier, sessions *session.Sessions, publisher rabbitmq.Publisher) *SpotWebSocketHandler {
	return &SpotWebSocketHandler{directory: d, verifier: verifier, sessions: sessions, publisher: publisher}
}

// Handle upgrades the connection and streams spot snapshots until the peer
// disconnects.
func (h *SpotWebSocketHandler) Handle(c *gin.Context) {
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
		routingKey: "ws_events.spots",
		kind:       "spots",
		resourceID: "catalog",
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
	h.sessions.SignedIn(userID)

	snapshots, cancel := h.directory.Subscribe(userID)

	go func() {
		for spots := range snapshots {
			if err := conn.WriteJSON(models.SpotEvent{Type: "snapshot", Spots: spots}); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() {
			cancel()
			conn.Close()
			h.sessions.SignedOut(userID)
		}()
		reason := drainUntilClose(ctx, conn, life)
		life.disconnected(ctx, reason)
	}()
}
