package ws

import (
	"context"
	"sync"

	"github.com/hilthontt/roomsync/internal/infrastructure/contracts"
	"github.com/hilthontt/roomsync/pkg/protocol"
)

type fakeRecipient struct {
	id       string
	capacity int

	mu       sync.Mutex
	received []*protocol.Envelope
}

func newFakeRecipient(id string, capacity int) *fakeRecipient {
	return &fakeRecipient{id: id, capacity: capacity}
}

func (f *fakeRecipient) ID() string { return f.id }

func (f *fakeRecipient) Enqueue(env *protocol.Envelope) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.received) >= f.capacity {
		return false
	}
	f.received = append(f.received, env)
	return true
}

func (f *fakeRecipient) envelopes() []*protocol.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*protocol.Envelope(nil), f.received...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) record(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, key)
	return nil
}

func (p *recordingPublisher) PublishMemberJoined(_ context.Context, d contracts.RoomEventData) error {
	return p.record(contracts.EventMemberJoined + ":" + d.RoomID)
}

func (p *recordingPublisher) PublishMemberLeft(_ context.Context, d contracts.RoomEventData) error {
	return p.record(contracts.EventMemberLeft + ":" + d.RoomID)
}

func (p *recordingPublisher) PublishMessageSent(_ context.Context, d contracts.RoomEventData) error {
	return p.record(contracts.EventMessageSent + ":" + d.RoomID)
}

func (p *recordingPublisher) recorded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}
