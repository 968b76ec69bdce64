// Package sdk is the roomsync client: a reconnecting realtime agent, an HTTP
// history client and a facade tying both to a chat timeline.
package sdk

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hilthontt/roomsync/pkg/protocol"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotConnected      = errors.New("sdk: not connected")
	ErrNotJoined         = errors.New("sdk: room not joined")
	ErrAttemptsExhausted = errors.New("sdk: connect attempts exhausted")
	ErrTransportLost     = errors.New("sdk: transport lost")
	ErrClosed            = errors.New("sdk: agent closed")
)

// JoinError is returned when the server refuses a join.
type JoinError struct {
	Room   string
	Reason string
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("sdk: join %s rejected: %s", e.Room, e.Reason)
}

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

type Options struct {
	// ParticipantID identifies this client's own messages so their echoes
	// are not handed to subscribers.
	ParticipantID string
	// MaxAttempts bounds dials per connect or reconnect sequence.
	MaxAttempts int
	// RetryDelay is the constant pause between dials when BackOff is nil.
	RetryDelay  time.Duration
	BackOff     func() backoff.BackOff
	JoinTimeout time.Duration
	Logger      *zap.Logger

	// Callbacks run on agent goroutines and must not block.
	OnStateChange   func(State)
	OnRejoinFailure func(room string, err error)
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.BackOff == nil {
		delay := o.RetryDelay
		o.BackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(delay) }
	}
	if o.JoinTimeout <= 0 {
		o.JoinTimeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

type ackResult struct {
	ack protocol.Ack
	err error
}

// attempt is one connect or reconnect sequence. Every Connect caller that
// arrives while it runs waits on the same done channel.
type attempt struct {
	done chan struct{}
	conn Conn
	err  error
}

// Agent keeps one realtime connection alive and remembers the rooms joined
// through it, so a reconnect can restore them.
type Agent struct {
	opts      Options
	transport Transport
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	conn      Conn
	attempt   *attempt
	pending   map[string]chan ackResult
	closed    bool
	exhausted bool

	joined mapset.Set[string]
	refSeq atomic.Uint64

	subMu  sync.RWMutex
	subs   map[uint64]func(protocol.Message)
	subSeq uint64
}

func NewAgent(transport Transport, opts Options) *Agent {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Agent{
		opts:      opts,
		transport: transport,
		logger:    opts.Logger.With(zap.String("participant_id", opts.ParticipantID)),
		ctx:       ctx,
		cancel:    cancel,
		pending:   make(map[string]chan ackResult),
		joined:    mapset.NewSet[string](),
		subs:      make(map[uint64]func(protocol.Message)),
	}
}

func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Exhausted reports whether the last connect sequence ran out of attempts.
func (a *Agent) Exhausted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.exhausted
}

// Joined returns the rooms the agent will restore after a reconnect.
func (a *Agent) Joined() []string {
	rooms := a.joined.ToSlice()
	sort.Strings(rooms)
	return rooms
}

// Connect returns the live connection, dialing if needed. Concurrent
// callers share one dial sequence. ctx only bounds the wait; the sequence
// itself runs until it succeeds, exhausts its attempts or the agent closes.
func (a *Agent) Connect(ctx context.Context) (Conn, error) {
	a.mu.Lock()
	switch {
	case a.closed:
		a.mu.Unlock()
		return nil, ErrClosed
	case a.state == Connected:
		conn := a.conn
		a.mu.Unlock()
		return conn, nil
	}
	if a.state == Disconnected {
		a.startLocked(Connecting)
	}
	att := a.attempt
	a.mu.Unlock()

	select {
	case <-att.done:
		return att.conn, att.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// startLocked begins a dial sequence. Caller holds a.mu.
func (a *Agent) startLocked(state State) {
	a.state = state
	att := &attempt{done: make(chan struct{})}
	a.attempt = att
	go a.establish(att, state)
}

// establish dials until connected, then replays remembered rooms. State
// callbacks for the sequence are made from here so they arrive in order.
func (a *Agent) establish(att *attempt, state State) {
	a.notify(state)
	for {
		conn, err := backoff.Retry(a.ctx, func() (Conn, error) {
			return a.transport.Dial(a.ctx)
		},
			backoff.WithBackOff(a.opts.BackOff()),
			backoff.WithMaxTries(uint(a.opts.MaxAttempts)),
			backoff.WithNotify(func(err error, next time.Duration) {
				a.logger.Warn("dial failed", zap.Error(err), zap.Duration("retry_in", next))
			}),
		)
		if err != nil {
			a.finish(att, nil, err)
			return
		}

		a.mu.Lock()
		if a.closed {
			a.mu.Unlock()
			_ = conn.Close()
			a.finish(att, nil, ErrClosed)
			return
		}
		a.conn = conn
		a.mu.Unlock()

		go a.readLoop(conn)

		if err := a.rejoin(conn); err != nil {
			if a.ctx.Err() != nil {
				a.finish(att, nil, ErrClosed)
				return
			}
			a.logger.Warn("transport lost while rejoining, dialing again", zap.Error(err))
			continue
		}

		if a.finish(att, conn, nil) {
			return
		}
	}
}

// finish settles att. It reports false when conn was lost before the agent
// could mark it connected, in which case att stays open.
func (a *Agent) finish(att *attempt, conn Conn, err error) bool {
	a.mu.Lock()
	if conn != nil && a.conn != conn {
		a.mu.Unlock()
		return false
	}

	if err != nil {
		if a.closed || a.ctx.Err() != nil {
			err = ErrClosed
		} else {
			a.exhausted = true
			a.joined.Clear()
			err = fmt.Errorf("%w: %v", ErrAttemptsExhausted, err)
			a.logger.Error("giving up on connection", zap.Error(err))
		}
		a.state = Disconnected
	} else {
		a.exhausted = false
		a.state = Connected
	}
	state := a.state
	att.conn, att.err = conn, err
	a.attempt = nil
	close(att.done)
	a.mu.Unlock()

	a.notify(state)
	return true
}

// rejoin replays a join for every remembered room. Refused rooms are
// forgotten and reported; only a transport loss fails the replay.
func (a *Agent) rejoin(conn Conn) error {
	rooms := a.joined.ToSlice()
	if len(rooms) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(a.ctx)
	for _, room := range rooms {
		g.Go(func() error {
			ack, err := a.requestJoin(ctx, conn, room)
			switch {
			case errors.Is(err, ErrTransportLost):
				return err
			case err != nil && ctx.Err() != nil:
				return ctx.Err()
			case err != nil:
				a.forget(room, err)
			case !ack.OK:
				a.forget(room, &JoinError{Room: room, Reason: ack.Reason})
			case !a.joined.Contains(room):
				// Left while the join was in flight; the server may have
				// seen the leave first.
				if err := conn.WriteEnvelope(protocol.NewLeaveRequest(room)); err != nil {
					return fmt.Errorf("%w: %v", ErrTransportLost, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	a.logger.Info("rooms restored", zap.Strings("rooms", a.Joined()))
	return nil
}

func (a *Agent) forget(room string, err error) {
	a.joined.Remove(room)
	a.logger.Warn("rejoin failed", zap.String("room", room), zap.Error(err))
	if a.opts.OnRejoinFailure != nil {
		a.opts.OnRejoinFailure(room, err)
	}
}

func (a *Agent) readLoop(conn Conn) {
	for {
		env, err := conn.ReadEnvelope()
		if err != nil {
			a.lost(conn, err)
			return
		}
		a.handle(env)
	}
}

func (a *Agent) handle(env *protocol.Envelope) {
	switch env.Event {
	case protocol.AckEvent:
		if env.Ack == nil {
			return
		}
		a.mu.Lock()
		ch, ok := a.pending[env.Ref]
		delete(a.pending, env.Ref)
		a.mu.Unlock()
		// acks nobody waits for any more are dropped
		if ok {
			ch <- ackResult{ack: *env.Ack}
		}

	case protocol.MessageDelivered:
		if env.Message == nil {
			return
		}
		if a.opts.ParticipantID != "" && env.Message.SenderID == a.opts.ParticipantID {
			return
		}
		a.subMu.RLock()
		handlers := make([]func(protocol.Message), 0, len(a.subs))
		for _, h := range a.subs {
			handlers = append(handlers, h)
		}
		a.subMu.RUnlock()
		for _, h := range handlers {
			h(*env.Message)
		}

	default:
		if env.Error != nil {
			a.logger.Warn("server error", zap.String("event", env.Event),
				zap.String("code", env.Error.Code), zap.String("message", env.Error.Message))
		}
	}
}

// lost handles the end of conn. A connected agent starts reconnecting; an
// agent in the middle of a dial sequence lets that sequence notice.
func (a *Agent) lost(conn Conn, cause error) {
	a.mu.Lock()
	if a.conn != conn {
		a.mu.Unlock()
		return
	}
	a.conn = nil
	a.failPendingLocked(ErrTransportLost)

	reconnect := !a.closed && a.state == Connected
	if reconnect {
		a.startLocked(Reconnecting)
	}
	a.mu.Unlock()

	if reconnect {
		a.logger.Warn("transport lost, reconnecting", zap.Error(cause))
	}
}

func (a *Agent) failPendingLocked(err error) {
	for ref, ch := range a.pending {
		ch <- ackResult{err: err}
		delete(a.pending, ref)
	}
}

func (a *Agent) notify(state State) {
	if a.opts.OnStateChange != nil {
		a.opts.OnStateChange(state)
	}
}

func (a *Agent) requestJoin(ctx context.Context, conn Conn, room string) (protocol.Ack, error) {
	ref := strconv.FormatUint(a.refSeq.Add(1), 10)
	ch := make(chan ackResult, 1)

	a.mu.Lock()
	if a.conn != conn {
		a.mu.Unlock()
		return protocol.Ack{}, ErrTransportLost
	}
	a.pending[ref] = ch
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		delete(a.pending, ref)
		a.mu.Unlock()
	}()

	if err := conn.WriteEnvelope(protocol.NewJoinRequest(ref, room)); err != nil {
		return protocol.Ack{}, fmt.Errorf("%w: %v", ErrTransportLost, err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.opts.JoinTimeout)
	defer cancel()

	select {
	case res := <-ch:
		return res.ack, res.err
	case <-ctx.Done():
		return protocol.Ack{}, ctx.Err()
	}
}

// JoinChat joins room and waits for the server's answer. It fails with
// ErrNotConnected at once unless the agent is connected.
func (a *Agent) JoinChat(ctx context.Context, room string) error {
	a.mu.Lock()
	if a.state != Connected {
		a.mu.Unlock()
		return ErrNotConnected
	}
	conn := a.conn
	a.mu.Unlock()

	ack, err := a.requestJoin(ctx, conn, room)
	if err != nil {
		return fmt.Errorf("sdk: join %s: %w", room, err)
	}
	if !ack.OK {
		return &JoinError{Room: room, Reason: ack.Reason}
	}

	a.joined.Add(room)
	a.logger.Debug("joined room", zap.String("room", room))
	return nil
}

// LeaveChat forgets room and tells the server whenever a connection exists,
// including while joins are being replayed after a reconnect. The server
// does not answer leaves.
func (a *Agent) LeaveChat(room string) error {
	a.joined.Remove(room)

	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.WriteEnvelope(protocol.NewLeaveRequest(room))
}

// SendMessage relays msg to the other members of room. Persisting it is
// the caller's job. Nothing is sent unless the agent is connected and has
// joined room.
func (a *Agent) SendMessage(room string, msg protocol.Message) error {
	a.mu.Lock()
	conn := a.conn
	connected := a.state == Connected
	a.mu.Unlock()

	if !connected || conn == nil {
		a.logger.Error("send while not connected", zap.String("room", room), zap.String("message_id", msg.ID))
		return ErrNotConnected
	}
	if !a.joined.Contains(room) {
		a.logger.Error("send to room not joined", zap.String("room", room), zap.String("message_id", msg.ID))
		return ErrNotJoined
	}

	if msg.ChatID == "" {
		msg.ChatID = room
	}
	if msg.SenderID == "" {
		msg.SenderID = a.opts.ParticipantID
	}
	if err := conn.WriteEnvelope(protocol.NewSendRequest(room, msg)); err != nil {
		return fmt.Errorf("sdk: send: %w", err)
	}
	return nil
}

// OnMessage subscribes handler to messages delivered by other participants.
// Handlers run on the read goroutine. The returned func unsubscribes.
func (a *Agent) OnMessage(handler func(protocol.Message)) func() {
	a.subMu.Lock()
	a.subSeq++
	id := a.subSeq
	a.subs[id] = handler
	a.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.subMu.Lock()
			delete(a.subs, id)
			a.subMu.Unlock()
		})
	}
}

// Close disconnects for good. Remembered rooms are dropped and the agent
// cannot be reconnected.
func (a *Agent) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.cancel()
	conn := a.conn
	a.conn = nil
	a.failPendingLocked(ErrClosed)
	a.joined.Clear()
	prev := a.state
	a.state = Disconnected
	a.mu.Unlock()

	if prev != Disconnected {
		a.notify(Disconnected)
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}
