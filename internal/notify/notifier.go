package notify

import (
	"context"
	"log"
	"time"

	"spot-service/internal/models"
	"spot-service/internal/observability"
	"spot-service/internal/rabbitmq"
)

// Notifier delivers user-facing notifications for spot status changes.
type Notifier interface {
	Deliver(ctx context.Context, change models.StatusChange)
}

type Envelope struct {
	SchemaVersion int                 `json:"schema_version"`
	EventType     string              `json:"event_type"`
	OccurredAt    string              `json:"occurred_at"`
	Change        models.StatusChange `json:"change"`
}

type AMQPNotifier struct {
	publisher  rabbitmq.Publisher
	routingKey string
}

func NewAMQPNotifier(publisher rabbitmq.Publisher, routingKey string) *AMQPNotifier {
	return &AMQPNotifier{publisher: publisher, routingKey: routingKey}
}

func (n *AMQPNotifier) Deliver(ctx context.Context, change models.StatusChange) {
	if n == nil || n.publisher == nil {
		return
	}

	envelope := Envelope{
		SchemaVersion: 1,
		EventType:     "status_change",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Change:        change,
	}
	headers := map[string]string{
		"event_type":     "status_change",
		"schema_version": "1",
		"spot_id":        change.SpotID,
	}
	if err := n.publisher.Publish(ctx, n.routingKey, envelope, headers); err != nil {
		observability.IncAMQPPublishError()
		log.Printf("notify publish failed spot_id=%s: %v", change.SpotID, err)
	}
}
