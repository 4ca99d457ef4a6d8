package ws

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"spot-service/internal/observability"
	"spot-service/internal/rabbitmq"
	"spot-service/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// tokenFromRequest accepts the bearer token from the Authorization header or,
// for browser clients that cannot set headers on websocket dials, from the
// token query parameter.
func tokenFromRequest(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}

func authenticate(c *gin.Context, verifier *session.Verifier) (string, bool) {
	userID, err := verifier.Verify(tokenFromRequest(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return "", false
	}
	return userID, true
}

// lifecycle records one websocket connection's metrics and lifecycle events.
type lifecycle struct {
	publisher  rabbitmq.Publisher
	routingKey string
	kind       string
	resourceID string
	info       ConnInfo
}

func (l lifecycle) connected(ctx context.Context) {
	observability.IncWSActive(l.kind)
	observability.IncWSEvent(l.kind, "ws_connect")
	l.publish(ctx, "ws_connect", "")
}

func (l lifecycle) disconnected(ctx context.Context, reason string) {
	observability.DecWSActive(l.kind)
	observability.IncWSEvent(l.kind, "ws_disconnect")
	l.publish(ctx, "ws_disconnect", reason)
}

func (l lifecycle) errored(ctx context.Context, reason string) {
	observability.IncWSEvent(l.kind, "ws_error")
	l.publish(ctx, "ws_error", reason)
}

func (l lifecycle) publish(ctx context.Context, event, reason string) {
	if l.publisher == nil {
		return
	}

	envelope := observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"kind":        l.kind,
				"resource_id": l.resourceID,
				"event":       event,
				"conn_id":     l.info.ConnID,
				"duration_ms": time.Since(l.info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   l.info.UserID,
				"device_id": l.info.DeviceID,
				"ip":        l.info.IP,
			},
		},
	}
	if err := l.publisher.Publish(ctx, l.routingKey, envelope, observability.BuildHeaders(l.info.RequestID, l.info.TraceID)); err != nil {
		observability.IncAMQPPublishError()
	}
}

// drainUntilClose blocks reading the connection until the peer closes it,
// reporting abnormal closures through the lifecycle.
func drainUntilClose(ctx context.Context, conn *websocket.Conn, life lifecycle) string {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			reason := err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				life.errored(ctx, reason)
			}
			return reason
		}
	}
}
