package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/peermeet/peermeet/internal/infrastructure/contracts"
	"github.com/peermeet/peermeet/internal/infrastructure/messaging"
)

// MeetingPublisher emits meeting lifecycle events onto the broker. A nil
// publisher is a no-op so the broker stays optional in deployments without
// RabbitMQ.
type MeetingPublisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewMeetingPublisher(rabbitmq *messaging.RabbitMQ) *MeetingPublisher {
	return &MeetingPublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *MeetingPublisher) publish(ctx context.Context, routingKey string, data messaging.MeetingEventData) error {
	if p == nil || p.rabbitmq == nil {
		return nil
	}

	eventJSON, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, routingKey, contracts.AmqpMessage{
		MeetingID: data.MeetingID,
		Data:      eventJSON,
	})
}

func (p *MeetingPublisher) PublishMeetingCreated(ctx context.Context, meetingID, username string) error {
	return p.publish(ctx, contracts.EventMeetingCreated, messaging.MeetingEventData{
		MeetingID: meetingID,
		Username:  username,
		Timestamp: time.Now().UTC(),
	})
}

func (p *MeetingPublisher) PublishUserSignedIn(ctx context.Context, meetingID, username string) error {
	return p.publish(ctx, contracts.EventUserSignedIn, messaging.MeetingEventData{
		MeetingID: meetingID,
		Username:  username,
		Timestamp: time.Now().UTC(),
	})
}

func (p *MeetingPublisher) PublishPeerEntered(ctx context.Context, meetingID, username, peerID string) error {
	return p.publish(ctx, contracts.EventPeerEntered, messaging.MeetingEventData{
		MeetingID: meetingID,
		Username:  username,
		PeerID:    peerID,
		Timestamp: time.Now().UTC(),
	})
}

func (p *MeetingPublisher) PublishPeerDisconnected(ctx context.Context, meetingID, peerID string) error {
	return p.publish(ctx, contracts.EventPeerDisconnected, messaging.MeetingEventData{
		MeetingID: meetingID,
		PeerID:    peerID,
		Timestamp: time.Now().UTC(),
	})
}

func (p *MeetingPublisher) PublishMeetingFull(ctx context.Context, meetingID string) error {
	return p.publish(ctx, contracts.EventMeetingFull, messaging.MeetingEventData{
		MeetingID: meetingID,
		Timestamp: time.Now().UTC(),
	})
}
