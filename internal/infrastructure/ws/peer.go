package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/roomsync/internal/infrastructure/logging"
	"github.com/hilthontt/roomsync/pkg/protocol"
)

type PeerConfig struct {
	SendBuffer      int
	MaxMessageBytes int64
	PingPeriod      time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
}

func (c PeerConfig) withDefaults() PeerConfig {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 32768
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		c.PingPeriod = c.PongWait * 9 / 10
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	return c
}

// Peer owns one websocket connection: a read pump feeding the hub and a
// write pump draining the outbound queue.
type Peer struct {
	id            string
	participantID string
	conn          *connWrapper
	send          chan *protocol.Envelope
	cfg           PeerConfig
	logger        logging.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

func NewPeer(conn *websocket.Conn, id, participantID string, cfg PeerConfig, logger logging.Logger) *Peer {
	cfg = cfg.withDefaults()
	return &Peer{
		id:            id,
		participantID: participantID,
		conn:          newConnWrapper(conn),
		send:          make(chan *protocol.Envelope, cfg.SendBuffer), // buffered so one slow client never stalls the hub
		cfg:           cfg,
		logger:        logger,
		closed:        make(chan struct{}),
	}
}

func (p *Peer) ID() string { return p.id }

func (p *Peer) ParticipantID() string { return p.participantID }

func (p *Peer) Enqueue(env *protocol.Envelope) bool {
	select {
	case <-p.closed:
		return false
	default:
	}

	select {
	case p.send <- env:
		return true
	default:
		return false
	}
}

func (p *Peer) Close() {
	p.CloseWith(websocket.CloseNormalClosure, "")
}

func (p *Peer) CloseWith(code int, text string) {
	p.closeOnce.Do(func() {
		close(p.closed)
		_ = p.conn.CloseWith(code, text, time.Now().Add(p.cfg.WriteWait))
	})
}

func (p *Peer) IsClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

// readPump decodes inbound frames and forwards them to the hub until the
// connection fails. It then asks the hub to disconnect the peer.
func (p *Peer) readPump(h *Hub) {
	reason := "connection closed"
	defer func() {
		h.disconnect(p, reason)
	}()

	ws := p.conn.conn
	ws.SetReadLimit(p.cfg.MaxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(p.cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(p.cfg.PongWait))
	})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			switch {
			case p.IsClosed():
				reason = "server closed"
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				reason = "client closed"
			default:
				reason = err.Error()
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					p.logger.Warn(logging.Realtime, logging.Disconnect, "ws read error", map[logging.ExtraKey]any{
						logging.ConnectionID: p.id,
						logging.ErrorMessage: err.Error(),
					})
				}
			}
			return
		}

		if len(raw) == 0 {
			continue
		}

		var env protocol.Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			p.Enqueue(protocol.NewError(protocol.BadRequest, "malformed_frame", "frame is not a valid envelope", false))
			continue
		}

		if !h.dispatch(p, &env) {
			reason = "server shutting down"
			return
		}
	}
}

func (p *Peer) writePump() {
	ticker := time.NewTicker(p.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		p.Close()
	}()

	for {
		select {
		case env := <-p.send:
			if err := p.conn.WriteJSON(env, time.Now().Add(p.cfg.WriteWait)); err != nil {
				p.logger.Warn(logging.Realtime, logging.Delivery, "ws write error", map[logging.ExtraKey]any{
					logging.ConnectionID: p.id,
					logging.ErrorMessage: err.Error(),
				})
				return
			}

		case <-ticker.C:
			if err := p.conn.Ping(time.Now().Add(p.cfg.WriteWait)); err != nil {
				return
			}

		case <-p.closed:
			return
		}
	}
}
