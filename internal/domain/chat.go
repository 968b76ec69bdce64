package domain

import (
	"time"
)

// Chat is the embedded-list persistence shape: the chat record owns its
// messages.
type Chat struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewChat(id string, now time.Time) *Chat {
	return &Chat{
		ID:        id,
		Messages:  make([]Message, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Find returns the message with the given id.
func (c *Chat) Find(id string) (Message, bool) {
	for _, m := range c.Messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}
