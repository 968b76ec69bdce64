package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hilthontt/roomsync/internal/domain"
	"github.com/hilthontt/roomsync/internal/infrastructure/contracts"
	"github.com/hilthontt/roomsync/internal/infrastructure/logging"
	"github.com/hilthontt/roomsync/internal/infrastructure/messaging"
	"github.com/rabbitmq/amqp091-go"
)

// RoomConsumer turns room events into audit log entries.
type RoomConsumer struct {
	rabbitmq *messaging.RabbitMQ
	audit    domain.RoomAuditRepository
	logger   logging.Logger
}

func NewRoomConsumer(rabbitmq *messaging.RabbitMQ, audit domain.RoomAuditRepository, logger logging.Logger) *RoomConsumer {
	return &RoomConsumer{
		rabbitmq: rabbitmq,
		audit:    audit,
		logger:   logger,
	}
}

func (c *RoomConsumer) Listen(ctx context.Context) error {
	return c.rabbitmq.ConsumeMessages(ctx, messaging.RoomsQueue, c.handle)
}

func (c *RoomConsumer) handle(ctx context.Context, msg amqp091.Delivery) error {
	entry, err := AuditLogFor(msg.RoutingKey, msg.Body)
	if err != nil {
		c.logger.Error(logging.RabbitMQ, logging.Consume, "failed to decode room event", map[logging.ExtraKey]any{
			logging.Reason:       msg.RoutingKey,
			logging.ErrorMessage: err.Error(),
		})
		return err
	}

	if err := c.audit.Log(ctx, entry); err != nil {
		c.logger.Error(logging.MongoDB, logging.Audit, "failed to write audit log", map[logging.ExtraKey]any{
			logging.RoomID:       entry.RoomID,
			logging.ErrorMessage: err.Error(),
		})
		return err
	}

	return nil
}

// AuditLogFor decodes an AMQP body published under routingKey.
func AuditLogFor(routingKey string, body []byte) (*domain.RoomAuditLog, error) {
	var message contracts.AmqpMessage
	if err := json.Unmarshal(body, &message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	var data contracts.RoomEventData
	if err := json.Unmarshal(message.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room event: %w", err)
	}

	var entry *domain.RoomAuditLog
	switch routingKey {
	case contracts.EventMemberJoined:
		entry = domain.NewMemberJoinedLog(data.RoomID, data.ConnectionID, data.ParticipantID, data.MemberCount)
	case contracts.EventMemberLeft:
		entry = domain.NewMemberLeftLog(data.RoomID, data.ConnectionID, data.ParticipantID, data.Reason)
	case contracts.EventMessageSent:
		entry = domain.NewMessageSentLog(data.RoomID, data.MessageID, data.ParticipantID, data.Recipients)
	default:
		return nil, fmt.Errorf("unknown routing key %q", routingKey)
	}

	if !data.OccurredAt.IsZero() {
		entry.Timestamp = data.OccurredAt
	}

	return entry, nil
}
