package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// connWrapper serializes writes; gorilla allows one concurrent writer.
type connWrapper struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

func newConnWrapper(c *websocket.Conn) *connWrapper {
	return &connWrapper{conn: c}
}

func (w *connWrapper) WriteJSON(v any, deadline time.Time) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	_ = w.conn.SetWriteDeadline(deadline)
	return w.conn.WriteJSON(v)
}

func (w *connWrapper) Ping(deadline time.Time) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	_ = w.conn.SetWriteDeadline(deadline)
	return w.conn.WriteMessage(websocket.PingMessage, nil)
}

// CloseWith skips the mutex: WriteControl and Close may run concurrently
// with a pending write, and closing unblocks it.
func (w *connWrapper) CloseWith(code int, text string, deadline time.Time) error {
	_ = w.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
	return w.conn.Close()
}
