package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/peermeet/peermeet/internal/domain"
	"github.com/peermeet/peermeet/internal/infrastructure/contracts"
	"github.com/peermeet/peermeet/internal/infrastructure/messaging"
	"github.com/rabbitmq/amqp091-go"
)

// routing key -> audit event type
var auditEventTypes = map[string]domain.MeetingEventType{
	contracts.EventMeetingCreated:   domain.EventMeetingCreated,
	contracts.EventUserSignedIn:     domain.EventUserSignedIn,
	contracts.EventPeerEntered:      domain.EventPeerEntered,
	contracts.EventPeerDisconnected: domain.EventPeerDisconnected,
	contracts.EventMeetingFull:      domain.EventMeetingFull,
}

type meetingConsumer struct {
	rabbitmq  *messaging.RabbitMQ
	auditRepo domain.MeetingAuditRepository
}

func NewMeetingConsumer(rabbitmq *messaging.RabbitMQ, auditRepo domain.MeetingAuditRepository) *meetingConsumer {
	return &meetingConsumer{
		rabbitmq:  rabbitmq,
		auditRepo: auditRepo,
	}
}

// Listen drains the meetings queue and turns lifecycle events into audit
// log records. Blocks until the channel closes.
func (c *meetingConsumer) Listen() error {
	return c.rabbitmq.ConsumeMessages(messaging.MeetingsQueue, func(ctx context.Context, msg amqp091.Delivery) error {
		var message contracts.AmqpMessage
		if err := json.Unmarshal(msg.Body, &message); err != nil {
			log.Printf("Failed to unmarshal message: %v", err)
			return err
		}

		var payload messaging.MeetingEventData
		if err := json.Unmarshal(message.Data, &payload); err != nil {
			log.Printf("Failed to unmarshal event data: %v", err)
			return err
		}

		eventType, ok := auditEventTypes[msg.RoutingKey]
		if !ok {
			log.Printf("Unknown meeting event routing key %q, dropping", msg.RoutingKey)
			return nil
		}

		metadata := map[string]any{}
		if payload.Username != "" {
			metadata["username"] = payload.Username
		}
		if payload.PeerID != "" {
			metadata["peer_id"] = payload.PeerID
		}

		return c.auditRepo.Log(ctx, domain.NewMeetingAuditLog(payload.MeetingID, eventType, metadata))
	})
}
