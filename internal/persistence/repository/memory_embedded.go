package repository

import (
	"context"
	"sync"

	"github.com/hilthontt/roomsync/internal/domain"
	"github.com/hilthontt/roomsync/pkg/protocol"
)

// Oldest messages of a chat are evicted when capacity is exceeded. Evicted
// history is gone: pages stop at the oldest retained message.
type embeddedMemoryStore struct {
	chats       map[string]*domain.Chat
	capacity    uint
	maxPageSize int
	mu          *sync.RWMutex
}

// NewEmbeddedMemoryStore keeps every chat as one record holding its message
// list.
func NewEmbeddedMemoryStore(capacity uint, maxPageSize int) domain.MessageStore {
	if capacity == 0 {
		capacity = 1000
	}
	return &embeddedMemoryStore{
		chats:       make(map[string]*domain.Chat),
		capacity:    capacity,
		maxPageSize: maxPageSize,
		mu:          &sync.RWMutex{},
	}
}

func (s *embeddedMemoryStore) AppendMessage(ctx context.Context, chatID string, msg domain.Message) (domain.Message, error) {
	msg, err := domain.PrepareMessage(chatID, msg)
	if err != nil {
		return domain.Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	chat, exists := s.chats[chatID]
	if !exists {
		chat = domain.NewChat(chatID, msg.CreatedAt)
		s.chats[chatID] = chat
	}

	if stored, ok := chat.Find(msg.ID); ok {
		return stored, nil
	}

	if len(chat.Messages) >= int(s.capacity) && !protocol.Newer(msg, oldest(chat.Messages)) {
		return domain.Message{}, domain.ErrOutsideRetention
	}

	chat.Messages = append(chat.Messages, msg)
	chat.UpdatedAt = protocol.Now()

	if len(chat.Messages) > int(s.capacity) {
		protocol.SortChronological(chat.Messages)
		excess := len(chat.Messages) - int(s.capacity)
		chat.Messages = append([]domain.Message(nil), chat.Messages[excess:]...)
	}

	return msg, nil
}

func (s *embeddedMemoryStore) FetchMessages(ctx context.Context, chatID string, q protocol.Query) (protocol.Page, error) {
	q, err := normalizeQuery(chatID, q, s.maxPageSize)
	if err != nil {
		return protocol.Page{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, exists := s.chats[chatID]
	if !exists {
		return protocol.NewPage(nil, q.Limit), nil
	}

	return paginate(chat.Messages, q), nil
}

func oldest(messages []domain.Message) domain.Message {
	first := messages[0]
	for _, m := range messages[1:] {
		if protocol.Newer(first, m) {
			first = m
		}
	}
	return first
}
