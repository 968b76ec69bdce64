package sdk

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hilthontt/roomsync/internal/infrastructure/ws"
	"github.com/hilthontt/roomsync/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLive_RelayBetweenAgents(t *testing.T) {
	ls := newLiveServer(t, nil)
	ctx := context.Background()

	alice := ls.agent(t, "alice", Options{})
	bob := ls.agent(t, "bob", Options{})
	for _, a := range []*Agent{alice, bob} {
		_, err := a.Connect(ctx)
		require.NoError(t, err)
		require.NoError(t, a.JoinChat(ctx, "r1"))
	}

	toAlice := make(chan protocol.Message, 4)
	toBob := make(chan protocol.Message, 4)
	alice.OnMessage(func(m protocol.Message) { toAlice <- m })
	bob.OnMessage(func(m protocol.Message) { toBob <- m })

	msg := protocol.NewMessage("r1", "bob", "Bob", "hello", false)
	require.NoError(t, bob.SendMessage("r1", msg))

	select {
	case got := <-toAlice:
		assert.Equal(t, msg.ID, got.ID)
		assert.Equal(t, "bob", got.SenderID)
	case <-time.After(2 * time.Second):
		t.Fatal("alice got nothing")
	}

	reply := protocol.NewMessage("r1", "alice", "Alice", "hi bob", false)
	require.NoError(t, alice.SendMessage("r1", reply))
	select {
	case got := <-toBob:
		assert.Equal(t, reply.ID, got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("bob got nothing")
	}
	assert.Empty(t, toAlice)
}

func TestLive_JoinRejectedByServer(t *testing.T) {
	ls := newLiveServer(t, nil)
	a := ls.agent(t, "alice", Options{})
	_, err := a.Connect(context.Background())
	require.NoError(t, err)

	err = a.JoinChat(context.Background(), "has spaces")
	var joinErr *JoinError
	require.ErrorAs(t, err, &joinErr)
	assert.Equal(t, ws.ReasonInvalidRoom, joinErr.Reason)
	assert.Empty(t, a.Joined())
}

func TestLive_ReconnectRestoresMembership(t *testing.T) {
	var closeR2 atomic.Bool
	ls := newLiveServer(t, func(_ context.Context, _, room string) error {
		if room == "r2" && closeR2.Load() {
			return &ws.PolicyError{Reason: "room closed"}
		}
		return nil
	})

	failed := make(chan string, 4)
	a := ls.agent(t, "alice", Options{
		OnRejoinFailure: func(room string, _ error) { failed <- room },
	})
	ctx := context.Background()
	_, err := a.Connect(ctx)
	require.NoError(t, err)
	require.NoError(t, a.JoinChat(ctx, "r1"))
	require.NoError(t, a.JoinChat(ctx, "r2"))
	require.Equal(t, 2, ls.hub.Registry().Stats().Memberships)

	closeR2.Store(true)
	ls.dropAll()

	select {
	case room := <-failed:
		assert.Equal(t, "r2", room)
	case <-time.After(3 * time.Second):
		t.Fatal("no rejoin failure reported")
	}

	require.Eventually(t, func() bool {
		stats := ls.hub.Registry().Stats()
		return a.State() == Connected && stats.Connections == 1 && stats.Memberships == 1
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"r1"}, a.Joined())
	assert.Len(t, ls.hub.Registry().MembersOf("r1"), 1)
	assert.Empty(t, ls.hub.Registry().MembersOf("r2"))
}
