package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RoomEventType string

const (
	EventMemberJoined    RoomEventType = "member_joined"
	EventMemberLeft      RoomEventType = "member_left"
	EventMessageSent     RoomEventType = "message_sent"
	EventPolicyViolation RoomEventType = "policy_violation"
)

type RoomAuditLog struct {
	ID        string         `bson:"_id" json:"id"`
	RoomID    string         `bson:"room_id" json:"roomId"`
	EventType RoomEventType  `bson:"event_type" json:"eventType"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type RoomAuditRepository interface {
	Log(ctx context.Context, log *RoomAuditLog) error
	GetByRoomID(ctx context.Context, roomID string, limit int) ([]RoomAuditLog, error)
	GetByEventType(ctx context.Context, eventType RoomEventType, from, to time.Time) ([]RoomAuditLog, error)
	EnsureIndexes(ctx context.Context) error
}

func newAuditLog(roomID string, eventType RoomEventType, metadata map[string]any) *RoomAuditLog {
	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
}

func NewMemberJoinedLog(roomID, connectionID, participantID string, memberCount int) *RoomAuditLog {
	return newAuditLog(roomID, EventMemberJoined, map[string]any{
		"connection_id":  connectionID,
		"participant_id": participantID,
		"member_count":   memberCount,
	})
}

func NewMemberLeftLog(roomID, connectionID, participantID, reason string) *RoomAuditLog {
	return newAuditLog(roomID, EventMemberLeft, map[string]any{
		"connection_id":  connectionID,
		"participant_id": participantID,
		"reason":         reason,
	})
}

func NewMessageSentLog(roomID, messageID, senderID string, recipients int) *RoomAuditLog {
	return newAuditLog(roomID, EventMessageSent, map[string]any{
		"message_id": messageID,
		"sender_id":  senderID,
		"recipients": recipients,
	})
}
