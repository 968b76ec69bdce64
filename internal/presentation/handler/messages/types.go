package messages

import "time"

// createMessageRequest is a message as sent by a client. Server-side fields
// left empty are filled in when stored.
type createMessageRequest struct {
	ID         string    `json:"id" validate:"omitempty,max=64" example:"0b7c4a9e-2f7e-4a53-9a55-2d5c8b1d2f10"`
	ChatID     string    `json:"chatId" example:"general"`
	SenderID   string    `json:"senderId" validate:"required,max=128" example:"user-42"`
	SenderName string    `json:"senderName" validate:"max=128" example:"Ana"`
	IsAI       bool      `json:"isAI"`
	Content    string    `json:"content" validate:"required,max=4000" example:"hello"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// pageResponse documents protocol.Page for swagger.
type pageResponse struct {
	Messages []messageResponse `json:"messages"`
	HasMore  bool              `json:"hasMore"`
}

type messageResponse struct {
	ID         string    `json:"id"`
	ChatID     string    `json:"chatId"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName,omitempty"`
	IsAI       bool      `json:"isAI"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
