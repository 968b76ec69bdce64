package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/roomsync/internal/domain"
	"github.com/hilthontt/roomsync/internal/infrastructure/contracts"
	"github.com/hilthontt/roomsync/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBroker struct {
	mu       sync.Mutex
	keys     []string
	messages []contracts.AmqpMessage
}

func (b *recordingBroker) PublishMessage(_ context.Context, routingKey string, message contracts.AmqpMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = append(b.keys, routingKey)
	b.messages = append(b.messages, message)
	return nil
}

func (b *recordingBroker) snapshot() ([]string, []contracts.AmqpMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.keys...), append([]contracts.AmqpMessage(nil), b.messages...)
}

func TestRoomPublisher_RoundTripsThroughAuditLog(t *testing.T) {
	broker := &recordingBroker{}
	publisher := NewRoomPublisher(broker)

	occurred := time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, publisher.PublishMemberJoined(context.Background(), contracts.RoomEventData{
		RoomID:        "room-1",
		ConnectionID:  "conn-1",
		ParticipantID: "alice",
		MemberCount:   2,
		OccurredAt:    occurred,
	}))

	keys, messages := broker.snapshot()
	require.Equal(t, []string{contracts.EventMemberJoined}, keys)
	assert.Equal(t, "alice", messages[0].ActorID)

	body, err := json.Marshal(messages[0])
	require.NoError(t, err)

	entry, err := AuditLogFor(keys[0], body)
	require.NoError(t, err)
	assert.Equal(t, domain.EventMemberJoined, entry.EventType)
	assert.Equal(t, "room-1", entry.RoomID)
	assert.Equal(t, occurred, entry.Timestamp)
	assert.Equal(t, 2, entry.Metadata["member_count"])
}

func TestAuditLogFor_UnknownKey(t *testing.T) {
	body, _ := json.Marshal(contracts.AmqpMessage{Data: []byte(`{}`)})

	_, err := AuditLogFor("room.exploded", body)
	assert.Error(t, err)

	_, err = AuditLogFor(contracts.EventMemberLeft, []byte("not json"))
	assert.Error(t, err)
}

func TestAsyncPublisher_DrainsOnClose(t *testing.T) {
	broker := &recordingBroker{}
	async := NewAsyncPublisher(NewRoomPublisher(broker), 16, logging.NewNopLogger())

	for i := 0; i < 5; i++ {
		require.NoError(t, async.PublishMessageSent(context.Background(), contracts.RoomEventData{RoomID: "room-1"}))
	}
	require.NoError(t, async.PublishMemberLeft(context.Background(), contracts.RoomEventData{RoomID: "room-1"}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, async.Close(ctx))

	keys, _ := broker.snapshot()
	assert.Len(t, keys, 6)
	assert.Equal(t, contracts.EventMemberLeft, keys[5])

	err := async.PublishMemberJoined(context.Background(), contracts.RoomEventData{})
	assert.ErrorIs(t, err, ErrPublisherClosed)
}
