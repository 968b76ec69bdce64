package ws

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hilthontt/roomsync/internal/infrastructure/events"
	"github.com/hilthontt/roomsync/internal/infrastructure/logging"
	"github.com/hilthontt/roomsync/internal/infrastructure/metrics"
	"github.com/hilthontt/roomsync/pkg/protocol"
)

type HubConfig struct {
	Peer    PeerConfig
	Session SessionConfig
	// InboundBuffer bounds frames waiting for the hub loop.
	InboundBuffer int
}

type HubDeps struct {
	Registry  RoomRegistry
	Publisher events.RoomPublisher
	Policy    JoinPolicy
	Logger    logging.Logger
}

// hubEvent is either an inbound envelope or, when env is nil, the end of
// the peer's connection. Both travel on one channel so a peer's last frames
// are handled before its disconnect.
type hubEvent struct {
	peer   *Peer
	env    *protocol.Envelope
	reason string
}

// Hub runs every session on a single loop goroutine, so registry changes
// and deliveries happen in the order the loop handles events.
type Hub struct {
	cfg       HubConfig
	registry  RoomRegistry
	router    *BroadcastRouter
	publisher events.RoomPublisher
	policy    JoinPolicy
	logger    logging.Logger

	register chan *Peer
	events   chan hubEvent
	done     chan struct{}

	// owned by the loop
	sessions map[string]*Session
	peers    map[string]*Peer

	connections atomic.Int64
}

func NewHub(cfg HubConfig, deps HubDeps) *Hub {
	if cfg.InboundBuffer <= 0 {
		cfg.InboundBuffer = 256
	}
	if deps.Registry == nil {
		deps.Registry = NewRoomRegistry()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NewNopPublisher()
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}

	return &Hub{
		cfg:       cfg,
		registry:  deps.Registry,
		router:    NewBroadcastRouter(deps.Registry, deps.Logger),
		publisher: deps.Publisher,
		policy:    deps.Policy,
		logger:    deps.Logger,
		register:  make(chan *Peer),
		events:    make(chan hubEvent, cfg.InboundBuffer),
		done:      make(chan struct{}),
		sessions:  make(map[string]*Session),
		peers:     make(map[string]*Peer),
	}
}

func (h *Hub) Registry() RoomRegistry { return h.registry }

func (h *Hub) Router() *BroadcastRouter { return h.router }

// Connections returns the number of registered connections.
func (h *Hub) Connections() int { return int(h.connections.Load()) }

// Done is closed once Run has returned and every peer was closed.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case p := <-h.register:
			h.open(p)

		case ev := <-h.events:
			if ev.env == nil {
				h.close(ctx, ev.peer, ev.reason)
				continue
			}
			session, ok := h.sessions[ev.peer.id]
			if !ok {
				continue
			}
			if reply := session.Handle(ctx, ev.env); reply != nil {
				ev.peer.Enqueue(reply)
			}

		case <-ctx.Done():
			for _, p := range h.peers {
				h.close(context.Background(), p, "server shutdown")
			}
			h.logger.Info(logging.Realtime, logging.Shutdown, "hub stopped", nil)
			return
		}
	}
}

func (h *Hub) open(p *Peer) {
	h.peers[p.id] = p
	h.sessions[p.id] = NewSession(p.id, p.participantID, h.cfg.Session, SessionDeps{
		Registry:  h.registry,
		Router:    h.router,
		Publisher: h.publisher,
		Policy:    h.policy,
		Logger:    h.logger,
	})
	h.router.Register(p)
	h.connections.Add(1)
	metrics.ConnectionsActive.Inc()

	h.logger.Info(logging.Realtime, logging.Connect, "connection opened", map[logging.ExtraKey]any{
		logging.ConnectionID:  p.id,
		logging.ParticipantID: p.participantID,
	})
}

func (h *Hub) close(ctx context.Context, p *Peer, reason string) {
	session, ok := h.sessions[p.id]
	if !ok {
		return
	}

	session.OnDisconnect(ctx, reason)
	h.router.Unregister(p.id)
	delete(h.sessions, p.id)
	delete(h.peers, p.id)
	h.connections.Add(-1)
	metrics.ConnectionsActive.Dec()

	if reason == "server shutdown" {
		p.CloseWith(websocket.CloseGoingAway, reason)
	} else {
		p.Close()
	}
}

// Serve runs one upgraded connection until it ends. It blocks.
func (h *Hub) Serve(conn *websocket.Conn, participantID string) {
	peer := NewPeer(conn, uuid.NewString(), participantID, h.cfg.Peer, h.logger)

	select {
	case h.register <- peer:
	case <-h.done:
		peer.CloseWith(websocket.CloseGoingAway, "server shutdown")
		return
	}

	go peer.writePump()
	peer.readPump(h)
}

func (h *Hub) dispatch(p *Peer, env *protocol.Envelope) bool {
	select {
	case h.events <- hubEvent{peer: p, env: env}:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) disconnect(p *Peer, reason string) {
	select {
	case h.events <- hubEvent{peer: p, reason: reason}:
	case <-h.done:
	}
}
