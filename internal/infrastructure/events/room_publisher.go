package events

import (
	"context"
	"encoding/json"

	"github.com/hilthontt/roomsync/internal/infrastructure/contracts"
)

// RoomPublisher announces membership and delivery events to the rest of
// the system. Publishing never affects the realtime path.
type RoomPublisher interface {
	PublishMemberJoined(ctx context.Context, data contracts.RoomEventData) error
	PublishMemberLeft(ctx context.Context, data contracts.RoomEventData) error
	PublishMessageSent(ctx context.Context, data contracts.RoomEventData) error
}

// Broker is the part of messaging.RabbitMQ the publisher needs.
type Broker interface {
	PublishMessage(ctx context.Context, routingKey string, message contracts.AmqpMessage) error
}

type roomPublisher struct {
	broker Broker
}

func NewRoomPublisher(broker Broker) RoomPublisher {
	return &roomPublisher{
		broker: broker,
	}
}

func (p *roomPublisher) publish(ctx context.Context, routingKey string, data contracts.RoomEventData) error {
	roomEventJSON, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return p.broker.PublishMessage(ctx, routingKey, contracts.AmqpMessage{
		ActorID: data.ParticipantID,
		Data:    roomEventJSON,
	})
}

func (p *roomPublisher) PublishMemberJoined(ctx context.Context, data contracts.RoomEventData) error {
	return p.publish(ctx, contracts.EventMemberJoined, data)
}

func (p *roomPublisher) PublishMemberLeft(ctx context.Context, data contracts.RoomEventData) error {
	return p.publish(ctx, contracts.EventMemberLeft, data)
}

func (p *roomPublisher) PublishMessageSent(ctx context.Context, data contracts.RoomEventData) error {
	return p.publish(ctx, contracts.EventMessageSent, data)
}

type nopPublisher struct{}

// NewNopPublisher is wired when no broker is configured.
func NewNopPublisher() RoomPublisher { return nopPublisher{} }

func (nopPublisher) PublishMemberJoined(context.Context, contracts.RoomEventData) error { return nil }
func (nopPublisher) PublishMemberLeft(context.Context, contracts.RoomEventData) error   { return nil }
func (nopPublisher) PublishMessageSent(context.Context, contracts.RoomEventData) error  { return nil }
