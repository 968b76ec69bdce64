package sdk

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/roomsync/internal/infrastructure/ws"
	"github.com/hilthontt/roomsync/pkg/protocol"
)

// pipeConn is an in-memory Conn; the test plays the server on the other end.
type pipeConn struct {
	in     chan *protocol.Envelope
	out    chan *protocol.Envelope
	closed chan struct{}
	once   sync.Once
}

func newPipeConn() *pipeConn {
	return &pipeConn{
		in:     make(chan *protocol.Envelope, 64),
		out:    make(chan *protocol.Envelope, 64),
		closed: make(chan struct{}),
	}
}

func (c *pipeConn) ReadEnvelope() (*protocol.Envelope, error) {
	select {
	case env := <-c.in:
		return env, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *pipeConn) WriteEnvelope(env *protocol.Envelope) error {
	select {
	case <-c.closed:
		return io.ErrClosedPipe
	default:
	}
	select {
	case c.out <- env:
		return nil
	case <-c.closed:
		return io.ErrClosedPipe
	}
}

func (c *pipeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

type pipeTransport struct {
	mu    sync.Mutex
	dials int
	fail  bool
	delay time.Duration
	conns chan *pipeConn
}

func newPipeTransport() *pipeTransport {
	return &pipeTransport{conns: make(chan *pipeConn, 16)}
}

func (t *pipeTransport) Dial(ctx context.Context) (Conn, error) {
	t.mu.Lock()
	t.dials++
	fail, delay := t.fail, t.delay
	t.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("connection refused")
	}

	c := newPipeConn()
	t.conns <- c
	return c, nil
}

func (t *pipeTransport) setFail(fail bool) {
	t.mu.Lock()
	t.fail = fail
	t.mu.Unlock()
}

func (t *pipeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func (t *pipeTransport) next(tb testing.TB) *pipeConn {
	tb.Helper()
	select {
	case c := <-t.conns:
		return c
	case <-time.After(2 * time.Second):
		tb.Fatal("no dial")
		return nil
	}
}

// fakeServer answers joins on a pipeConn and records every frame.
type fakeServer struct {
	conn   *pipeConn
	refuse func(room string) string

	mu   sync.Mutex
	seen []*protocol.Envelope
}

func serve(c *pipeConn, refuse func(room string) string) *fakeServer {
	s := &fakeServer{conn: c, refuse: refuse}
	go func() {
		for {
			select {
			case env := <-c.out:
				s.mu.Lock()
				s.seen = append(s.seen, env)
				s.mu.Unlock()
				if env.Event != protocol.JoinRoom {
					continue
				}
				ack := protocol.AckOK()
				if s.refuse != nil {
					if reason := s.refuse(env.Room); reason != "" {
						ack = protocol.AckFailed(reason)
					}
				}
				c.in <- protocol.NewAck(env.Ref, env.Room, ack)
			case <-c.closed:
				return
			}
		}
	}()
	return s
}

func (s *fakeServer) frames(event string) []*protocol.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*protocol.Envelope
	for _, env := range s.seen {
		if env.Event == event {
			out = append(out, env)
		}
	}
	return out
}

// liveServer runs a real hub behind an httptest server and can drop every
// open connection from the server side.
type liveServer struct {
	hub    *ws.Hub
	server *httptest.Server

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newLiveServer(t *testing.T, policy ws.JoinPolicy) *liveServer {
	t.Helper()

	ls := &liveServer{hub: ws.NewHub(ws.HubConfig{}, ws.HubDeps{Policy: policy})}
	ctx, cancel := context.WithCancel(context.Background())
	go ls.hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	ls.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ls.mu.Lock()
		ls.conns = append(ls.conns, conn)
		ls.mu.Unlock()
		ls.hub.Serve(conn, r.URL.Query().Get("participantId"))
	}))

	t.Cleanup(func() {
		cancel()
		<-ls.hub.Done()
		ls.server.Close()
	})
	return ls
}

func (ls *liveServer) url() string {
	return "ws" + strings.TrimPrefix(ls.server.URL, "http") + "/api/ws"
}

func (ls *liveServer) dropAll() {
	ls.mu.Lock()
	conns := ls.conns
	ls.conns = nil
	ls.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

func (ls *liveServer) agent(t *testing.T, participant string, opts Options) *Agent {
	t.Helper()
	opts.ParticipantID = participant
	if opts.RetryDelay == 0 {
		opts.RetryDelay = 20 * time.Millisecond
	}
	a := NewAgent(NewWebSocketTransport(ls.url(), participant), opts)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// memoryHistory is a History backed by a slice.
type memoryHistory struct {
	mu       sync.Mutex
	messages []protocol.Message
}

func (h *memoryHistory) FetchMessages(_ context.Context, chatID string, q protocol.Query) (protocol.Page, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	q = q.Normalize(100)

	var rows []protocol.Message
	for _, m := range h.messages {
		if m.ChatID == chatID && q.Admits(m) {
			rows = append(rows, m)
		}
	}
	protocol.SortNewestFirst(rows)
	if len(rows) > q.Limit+1 {
		rows = rows[:q.Limit+1]
	}
	return protocol.NewPage(rows, q.Limit), nil
}

func (h *memoryHistory) AppendMessage(_ context.Context, chatID string, msg protocol.Message) (protocol.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	msg.ChatID = chatID
	h.messages = append(h.messages, msg)
	return msg, nil
}

func messageFrom(sender, id string) protocol.Message {
	return protocol.Message{ID: id, ChatID: "r1", SenderID: sender, Content: id, CreatedAt: protocol.Now()}
}
