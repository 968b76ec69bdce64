package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/roomsync/pkg/protocol"
)

// Conn is one live transport session with the server.
type Conn interface {
	// ReadEnvelope blocks for the next frame. Any error ends the session.
	ReadEnvelope() (*protocol.Envelope, error)
	WriteEnvelope(env *protocol.Envelope) error
	Close() error
}

type Transport interface {
	Dial(ctx context.Context) (Conn, error)
}

// WebSocketTransport dials the server's /api/ws endpoint.
type WebSocketTransport struct {
	URL           string
	ParticipantID string
	Dialer        *websocket.Dialer
	Header        http.Header
	WriteWait     time.Duration
}

func NewWebSocketTransport(rawURL, participantID string) *WebSocketTransport {
	return &WebSocketTransport{
		URL:           rawURL,
		ParticipantID: participantID,
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		WriteWait: 10 * time.Second,
	}
}

func (t *WebSocketTransport) Dial(ctx context.Context) (Conn, error) {
	u, err := url.Parse(t.URL)
	if err != nil {
		return nil, fmt.Errorf("sdk: parse url: %w", err)
	}
	if t.ParticipantID != "" {
		q := u.Query()
		q.Set("participantId", t.ParticipantID)
		u.RawQuery = q.Encode()
	}

	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), t.Header)
	if err != nil {
		return nil, fmt.Errorf("sdk: dial %s: %w", u.Host, err)
	}
	return &wsConn{conn: conn, writeWait: t.WriteWait}, nil
}

type wsConn struct {
	conn      *websocket.Conn
	writeWait time.Duration
	mu        sync.Mutex
}

func (c *wsConn) ReadEnvelope() (*protocol.Envelope, error) {
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		var env protocol.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}
		return &env, nil
	}
}

func (c *wsConn) WriteEnvelope(env *protocol.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeWait > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	}
	return c.conn.WriteJSON(env)
}

func (c *wsConn) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}
