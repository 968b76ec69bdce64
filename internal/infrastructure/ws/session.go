package ws

import (
	"context"
	"errors"
	"time"

	"github.com/hilthontt/roomsync/internal/infrastructure/contracts"
	"github.com/hilthontt/roomsync/internal/infrastructure/events"
	"github.com/hilthontt/roomsync/internal/infrastructure/logging"
	"github.com/hilthontt/roomsync/internal/infrastructure/metrics"
	"github.com/hilthontt/roomsync/internal/infrastructure/validate"
	"github.com/hilthontt/roomsync/pkg/protocol"
	"golang.org/x/time/rate"
)

// Reasons carried in failed acks and rejection metrics.
const (
	ReasonInvalidRoom  = "invalid room"
	ReasonNotMember    = "not a member of room"
	ReasonRoomMismatch = "message chat does not match room"
	ReasonNoMessage    = "missing message"
	ReasonRateLimited  = "rate limited"
	ReasonForbidden    = "forbidden"
)

// JoinPolicy decides whether a participant may join a room. A nil policy
// admits everyone.
type JoinPolicy func(ctx context.Context, participantID, room string) error

type SessionConfig struct {
	RoomIDMaxLength    int
	MaxEventsPerSecond float64
	Burst              int
}

// Session is the server-side state of one live connection. Its methods are
// called from the hub loop only.
type Session struct {
	ID            string
	ParticipantID string

	registry     RoomRegistry
	router       *BroadcastRouter
	publisher    events.RoomPublisher
	policy       JoinPolicy
	validateRoom validate.Validator
	limiter      *rate.Limiter
	logger       logging.Logger
}

type SessionDeps struct {
	Registry  RoomRegistry
	Router    *BroadcastRouter
	Publisher events.RoomPublisher
	Policy    JoinPolicy
	Logger    logging.Logger
}

func NewSession(id, participantID string, cfg SessionConfig, deps SessionDeps) *Session {
	if cfg.RoomIDMaxLength <= 0 {
		cfg.RoomIDMaxLength = 128
	}

	limit := rate.Inf
	if cfg.MaxEventsPerSecond > 0 {
		limit = rate.Limit(cfg.MaxEventsPerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NewNopPublisher()
	}

	return &Session{
		ID:            id,
		ParticipantID: participantID,
		registry:      deps.Registry,
		router:        deps.Router,
		publisher:     publisher,
		policy:        deps.Policy,
		validateRoom:  validate.Field("room", validate.Required(), validate.MaxLength(cfg.RoomIDMaxLength), validate.NoSpaces()),
		limiter:       rate.NewLimiter(limit, cfg.Burst),
		logger:        deps.Logger,
	}
}

func (s *Session) extra(room string) map[logging.ExtraKey]any {
	return map[logging.ExtraKey]any{
		logging.ConnectionID:  s.ID,
		logging.ParticipantID: s.ParticipantID,
		logging.RoomID:        room,
	}
}

// Handle dispatches one inbound envelope and returns the reply to send
// back to this connection, if any.
func (s *Session) Handle(ctx context.Context, env *protocol.Envelope) *protocol.Envelope {
	if !s.limiter.Allow() {
		metrics.InboundRateLimited.Inc()
		if env.Event == protocol.JoinRoom {
			return protocol.NewAck(env.Ref, env.Room, protocol.AckFailed(ReasonRateLimited))
		}
		return protocol.NewError(protocol.RateLimited, "rate_limited", "too many events, slow down", true)
	}

	switch env.Event {
	case protocol.JoinRoom:
		return protocol.NewAck(env.Ref, env.Room, s.OnJoinRequest(ctx, env.Room))
	case protocol.LeaveRoom:
		s.OnLeaveRequest(ctx, env.Room)
		return nil
	case protocol.SendMessage:
		if env.Message == nil {
			s.reject(env.Room, ReasonNoMessage)
			return nil
		}
		s.OnSendRequest(ctx, env.Room, *env.Message)
		return nil
	default:
		return protocol.NewError(protocol.BadRequest, "unknown_event", "unknown event "+env.Event, false)
	}
}

// OnJoinRequest adds the connection to room. Joining a room the
// connection is already in succeeds again.
func (s *Session) OnJoinRequest(ctx context.Context, room string) protocol.Ack {
	if err := s.validateRoom(room); err != nil {
		metrics.JoinsTotal.WithLabelValues("rejected").Inc()
		s.logger.Warn(logging.Validation, logging.Join, err.Error(), s.extra(room))
		return protocol.AckFailed(ReasonInvalidRoom)
	}

	if s.policy != nil {
		if err := s.policy(ctx, s.ParticipantID, room); err != nil {
			metrics.JoinsTotal.WithLabelValues("rejected").Inc()
			extra := s.extra(room)
			extra[logging.ErrorMessage] = err.Error()
			s.logger.Warn(logging.Security, logging.Join, "join refused by policy", extra)

			reason := ReasonForbidden
			var pe *PolicyError
			if errors.As(err, &pe) {
				reason = pe.Reason
			}
			return protocol.AckFailed(reason)
		}
	}

	count := s.registry.Join(room, s.ID)
	metrics.JoinsTotal.WithLabelValues("ok").Inc()
	s.logger.Info(logging.Realtime, logging.Join, "joined room", s.extra(room))

	_ = s.publisher.PublishMemberJoined(ctx, contracts.RoomEventData{
		RoomID:        room,
		ConnectionID:  s.ID,
		ParticipantID: s.ParticipantID,
		MemberCount:   count,
		OccurredAt:    time.Now().UTC(),
	})

	return protocol.AckOK()
}

// OnLeaveRequest removes the connection from room. Leaving a room the
// connection is not in does nothing.
func (s *Session) OnLeaveRequest(ctx context.Context, room string) {
	if !s.registry.Leave(room, s.ID) {
		return
	}

	s.logger.Info(logging.Realtime, logging.Leave, "left room", s.extra(room))
	_ = s.publisher.PublishMemberLeft(ctx, contracts.RoomEventData{
		RoomID:        room,
		ConnectionID:  s.ID,
		ParticipantID: s.ParticipantID,
		Reason:        "leave",
		OccurredAt:    time.Now().UTC(),
	})
}

// OnSendRequest relays msg to the other members of room and returns how
// many accepted it. Sends from non-members are dropped.
func (s *Session) OnSendRequest(ctx context.Context, room string, msg protocol.Message) int {
	if !s.registry.IsMember(room, s.ID) {
		s.reject(room, ReasonNotMember)
		return 0
	}
	if msg.ChatID != "" && msg.ChatID != room {
		s.reject(room, ReasonRoomMismatch)
		return 0
	}
	msg.ChatID = room

	delivered := s.router.Deliver(room, msg, s.ID)

	extra := s.extra(room)
	extra[logging.MessageID] = msg.ID
	extra[logging.Recipients] = delivered
	s.logger.Debug(logging.Realtime, logging.Send, "message relayed", extra)

	_ = s.publisher.PublishMessageSent(ctx, contracts.RoomEventData{
		RoomID:        room,
		ConnectionID:  s.ID,
		ParticipantID: s.ParticipantID,
		MessageID:     msg.ID,
		Recipients:    delivered,
		OccurredAt:    time.Now().UTC(),
	})

	return delivered
}

func (s *Session) reject(room, reason string) {
	metrics.SendRejectedTotal.WithLabelValues(reason).Inc()
	extra := s.extra(room)
	extra[logging.Reason] = reason
	s.logger.Warn(logging.Security, logging.PolicyViolation, "send dropped", extra)
}

// OnDisconnect removes the connection from every room it joined and
// returns those rooms.
func (s *Session) OnDisconnect(ctx context.Context, reason string) []string {
	rooms := s.registry.Purge(s.ID)

	extra := s.extra("")
	extra[logging.Rooms] = rooms
	extra[logging.Reason] = reason
	s.logger.Info(logging.Realtime, logging.Disconnect, "connection closed", extra)

	now := time.Now().UTC()
	for _, room := range rooms {
		_ = s.publisher.PublishMemberLeft(ctx, contracts.RoomEventData{
			RoomID:        room,
			ConnectionID:  s.ID,
			ParticipantID: s.ParticipantID,
			Reason:        reason,
			OccurredAt:    now,
		})
	}

	return rooms
}

// PolicyError lets a JoinPolicy choose the reason shown to the client.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string { return e.Reason }
