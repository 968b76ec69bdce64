package contracts

import "time"

// AmqpMessage is the message structure for AMQP.
type AmqpMessage struct {
	ActorID string `json:"actorId"`
	Data    []byte `json:"data"`
}

// Routing keys
const (
	EventMessageSent  = "message.sent"
	EventMemberJoined = "member.joined"
	EventMemberLeft   = "member.left"
)

// RoomEventData is the payload of every room routing key.
type RoomEventData struct {
	RoomID        string    `json:"roomId"`
	ConnectionID  string    `json:"connectionId"`
	ParticipantID string    `json:"participantId,omitempty"`
	MessageID     string    `json:"messageId,omitempty"`
	MemberCount   int       `json:"memberCount,omitempty"`
	Recipients    int       `json:"recipients,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}
