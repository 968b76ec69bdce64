package sdk

import (
	"context"
	"fmt"
	"strings"

	"github.com/hilthontt/roomsync/pkg/protocol"
	"github.com/hilthontt/roomsync/pkg/timeline"
)

// History is the persistence side of a chat. HistoryClient implements it.
type History interface {
	timeline.Source
	AppendMessage(ctx context.Context, chatID string, msg protocol.Message) (protocol.Message, error)
}

type ChatOptions struct {
	SenderName string
	PageSize   int
	// OnMessage is called for every live message the timeline accepted.
	OnMessage func(protocol.Message)
}

// ChatSession is one open chat: its room membership, its timeline and the
// send path through the store and the agent.
type ChatSession struct {
	agent    *Agent
	history  History
	timeline *timeline.Timeline
	chatID   string
	opts     ChatOptions

	unsubscribe func()
}

func NewChatSession(agent *Agent, history History, chatID string, opts ChatOptions) *ChatSession {
	if opts.PageSize <= 0 {
		opts.PageSize = protocol.DefaultPageSize
	}
	return &ChatSession{
		agent:    agent,
		history:  history,
		timeline: timeline.New(chatID, history),
		chatID:   chatID,
		opts:     opts,
	}
}

func (s *ChatSession) Timeline() *timeline.Timeline { return s.timeline }

// Open connects if needed, joins the chat's room and loads the newest page.
// Live messages are collected from before the join so none fall between
// the join and the history load.
func (s *ChatSession) Open(ctx context.Context) error {
	if _, err := s.agent.Connect(ctx); err != nil {
		return err
	}

	s.unsubscribe = s.agent.OnMessage(func(m protocol.Message) {
		if m.ChatID != s.chatID {
			return
		}
		if s.timeline.AppendLive(m) && s.opts.OnMessage != nil {
			s.opts.OnMessage(m)
		}
	})

	if err := s.agent.JoinChat(ctx, s.chatID); err != nil {
		s.unsubscribe()
		return err
	}

	if _, err := s.timeline.LoadInitial(ctx, s.opts.PageSize); err != nil {
		s.unsubscribe()
		_ = s.agent.LeaveChat(s.chatID)
		return err
	}
	return nil
}

// Send stores a new message, shows it locally and relays it to the room.
// A message that was stored but could not be relayed is still returned;
// others will see it when they next load history.
func (s *ChatSession) Send(ctx context.Context, content string) (protocol.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return protocol.Message{}, fmt.Errorf("sdk: empty message")
	}

	msg := protocol.NewMessage(s.chatID, s.agent.opts.ParticipantID, s.opts.SenderName, content, false)
	stored, err := s.history.AppendMessage(ctx, s.chatID, msg)
	if err != nil {
		return protocol.Message{}, fmt.Errorf("sdk: store message: %w", err)
	}

	s.timeline.AppendLive(stored)

	if err := s.agent.SendMessage(s.chatID, stored); err != nil {
		return stored, fmt.Errorf("sdk: message %s stored but not relayed: %w", stored.ID, err)
	}
	return stored, nil
}

// LoadOlder pages further back from the oldest loaded message.
func (s *ChatSession) LoadOlder(ctx context.Context) ([]protocol.Message, error) {
	return s.timeline.LoadMore(ctx, s.opts.PageSize)
}

func (s *ChatSession) Messages() []protocol.Message { return s.timeline.Messages() }

func (s *ChatSession) HasMore() bool { return s.timeline.HasMore() }

func (s *ChatSession) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	return s.agent.LeaveChat(s.chatID)
}
