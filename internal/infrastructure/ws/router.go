package ws

import (
	"sync"

	"github.com/hilthontt/roomsync/internal/infrastructure/logging"
	"github.com/hilthontt/roomsync/internal/infrastructure/metrics"
	"github.com/hilthontt/roomsync/pkg/protocol"
)

// Recipient is anything that can receive outbound envelopes.
type Recipient interface {
	ID() string
	// Enqueue must not block. It reports false when the envelope could
	// not be queued.
	Enqueue(env *protocol.Envelope) bool
}

// BroadcastRouter fans a message out to the members of a room.
type BroadcastRouter struct {
	registry RoomRegistry
	logger   logging.Logger

	mu         sync.RWMutex
	recipients map[string]Recipient
}

func NewBroadcastRouter(registry RoomRegistry, logger logging.Logger) *BroadcastRouter {
	return &BroadcastRouter{
		registry:   registry,
		logger:     logger,
		recipients: make(map[string]Recipient),
	}
}

func (r *BroadcastRouter) Register(rcpt Recipient) {
	r.mu.Lock()
	r.recipients[rcpt.ID()] = rcpt
	r.mu.Unlock()
}

func (r *BroadcastRouter) Unregister(id string) {
	r.mu.Lock()
	delete(r.recipients, id)
	r.mu.Unlock()
}

// Deliver hands msg once to every member of room except exclude and
// returns how many recipients accepted it. Slow or vanished recipients
// miss the message; there is no retry.
func (r *BroadcastRouter) Deliver(room string, msg protocol.Message, exclude string) int {
	members := r.registry.MembersOf(room)
	if len(members) == 0 {
		return 0
	}

	env := protocol.NewDelivered(room, msg)

	r.mu.RLock()
	targets := make([]Recipient, 0, len(members))
	for _, id := range members {
		if id == exclude {
			continue
		}
		if rcpt, ok := r.recipients[id]; ok {
			targets = append(targets, rcpt)
		}
	}
	r.mu.RUnlock()

	delivered := 0
	for _, rcpt := range targets {
		if rcpt.Enqueue(env) {
			delivered++
			continue
		}
		metrics.DeliveriesTotal.WithLabelValues("dropped").Inc()
		r.logger.Warn(logging.Realtime, logging.Delivery, "recipient buffer full, dropping message", map[logging.ExtraKey]any{
			logging.ConnectionID: rcpt.ID(),
			logging.RoomID:       room,
			logging.MessageID:    msg.ID,
		})
	}
	metrics.DeliveriesTotal.WithLabelValues("delivered").Add(float64(delivered))

	return delivered
}
