// Package protocol holds the contracts shared by the roomsync server and its
// clients: chat messages, history pages and the websocket envelope.
package protocol

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultPageSize is used when a history request does not carry a usable limit.
const DefaultPageSize = 15

// Message is a single chat message. It is immutable once created.
type Message struct {
	ID         string    `json:"id"`
	ChatID     string    `json:"chatId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName,omitempty"`
	IsAI       bool      `json:"isAI"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewMessage builds a message with a fresh id and the current time.
func NewMessage(chatID, senderID, senderName, content string, isAI bool) Message {
	now := Now()
	return Message{
		ID:         uuid.NewString(),
		ChatID:     chatID,
		SenderID:   senderID,
		SenderName: senderName,
		IsAI:       isAI,
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Now returns the current UTC time at millisecond precision, the precision
// every message store persists.
func Now() time.Time {
	return Timestamp(time.Now())
}

// Timestamp normalizes t to UTC at millisecond precision.
func Timestamp(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Millisecond)
}

// Newer reports whether a sorts before b in the canonical store order:
// created-at descending, id descending on ties.
func Newer(a, b Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// SortNewestFirst sorts messages in place in canonical store order.
func SortNewestFirst(messages []Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return Newer(messages[i], messages[j])
	})
}

// SortChronological sorts messages in place oldest first. It is the exact
// reverse of SortNewestFirst.
func SortChronological(messages []Message) {
	sort.SliceStable(messages, func(i, j int) bool {
		return Newer(messages[j], messages[i])
	})
}
