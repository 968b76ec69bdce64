package sdk

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hilthontt/roomsync/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedHistory(chatID string, n int) *memoryHistory {
	h := &memoryHistory{}
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		h.messages = append(h.messages, protocol.Message{
			ID: fmt.Sprintf("seed-%02d", i), ChatID: chatID, SenderID: "old", Content: "x", CreatedAt: ts, UpdatedAt: ts,
		})
	}
	return h
}

func TestChatSession_SendAndPaginate(t *testing.T) {
	ls := newLiveServer(t, nil)
	history := seedHistory("c1", 16)
	ctx := context.Background()

	live := make(chan protocol.Message, 4)
	alice := NewChatSession(ls.agent(t, "alice", Options{}), history, "c1", ChatOptions{
		SenderName: "Alice",
		OnMessage:  func(m protocol.Message) { live <- m },
	})
	bob := NewChatSession(ls.agent(t, "bob", Options{}), history, "c1", ChatOptions{SenderName: "Bob"})

	require.NoError(t, alice.Open(ctx))
	require.NoError(t, bob.Open(ctx))

	assert.Len(t, alice.Messages(), 15)
	assert.True(t, alice.HasMore())

	sent, err := bob.Send(ctx, "  hello alice ")
	require.NoError(t, err)
	assert.Equal(t, "hello alice", sent.Content)
	assert.Equal(t, "bob", sent.SenderID)

	select {
	case m := <-live:
		assert.Equal(t, sent.ID, m.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("alice got nothing")
	}

	bobMsgs := bob.Messages()
	assert.Equal(t, sent.ID, bobMsgs[len(bobMsgs)-1].ID)
	assert.Len(t, bobMsgs, 16)

	older, err := alice.LoadOlder(ctx)
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, "seed-00", older[0].ID)
	assert.False(t, alice.HasMore())
	assert.Len(t, alice.Messages(), 17)

	_, err = bob.Send(ctx, "   ")
	assert.Error(t, err)

	require.NoError(t, alice.Close())
	assert.Empty(t, alice.agent.Joined())
}

func TestChatSession_SendWhileDisconnectedStillStores(t *testing.T) {
	ls := newLiveServer(t, nil)
	history := &memoryHistory{}
	agent := ls.agent(t, "alice", Options{})
	chat := NewChatSession(agent, history, "c1", ChatOptions{})
	require.NoError(t, chat.Open(context.Background()))
	require.NoError(t, agent.Close())

	stored, err := chat.Send(context.Background(), "offline")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NotEmpty(t, stored.ID)
	assert.Len(t, history.messages, 1)
	assert.Len(t, chat.Messages(), 1)
}
