package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hilthontt/roomsync/pkg/protocol"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrChatNotFound   = errors.New("chat not found")
	ErrMessageExists  = errors.New("message id already used by another chat")
	ErrEmptyContent   = errors.New("message content is empty")
	// ErrOutsideRetention is returned by bounded stores for a message older
	// than everything they still keep.
	ErrOutsideRetention = errors.New("message is older than the retained history")
	ErrUnknownBackend = errors.New("unknown message store driver")
)

type Message = protocol.Message

// MessageStore persists chat history and serves it back in cursor pages.
// Implementations must accept concurrent calls.
type MessageStore interface {
	// AppendMessage stores msg under chatID and returns the stored copy.
	// Appending an id that already exists for the chat is a no-op that
	// returns the stored message.
	AppendMessage(ctx context.Context, chatID string, msg Message) (Message, error)
	// FetchMessages returns one page, newest first.
	FetchMessages(ctx context.Context, chatID string, q protocol.Query) (protocol.Page, error)
}

// PrepareMessage finalizes msg for storage under chatID.
func PrepareMessage(chatID string, msg Message) (Message, error) {
	if chatID == "" {
		return Message{}, ErrInvalidInput
	}
	if msg.Content == "" {
		return Message{}, ErrEmptyContent
	}

	now := protocol.Now()
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.ChatID = chatID
	msg.CreatedAt = protocol.Timestamp(msg.CreatedAt)
	msg.UpdatedAt = protocol.Timestamp(msg.UpdatedAt)
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	if msg.UpdatedAt.IsZero() {
		msg.UpdatedAt = msg.CreatedAt
	}

	return msg, nil
}
