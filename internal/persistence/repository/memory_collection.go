package repository

import (
	"context"
	"sync"

	"github.com/hilthontt/roomsync/internal/domain"
	"github.com/hilthontt/roomsync/pkg/protocol"
)

type messageKey struct {
	chatID string
	id     string
}

// collectionMemoryStore keeps messages as independent documents with a
// per-chat index.
type collectionMemoryStore struct {
	documents   map[messageKey]domain.Message
	byChat      map[string][]string
	maxPageSize int
	mu          sync.RWMutex
}

func NewCollectionMemoryStore(maxPageSize int) domain.MessageStore {
	return &collectionMemoryStore{
		documents:   make(map[messageKey]domain.Message),
		byChat:      make(map[string][]string),
		maxPageSize: maxPageSize,
	}
}

func (s *collectionMemoryStore) AppendMessage(ctx context.Context, chatID string, msg domain.Message) (domain.Message, error) {
	msg, err := domain.PrepareMessage(chatID, msg)
	if err != nil {
		return domain.Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := messageKey{chatID: chatID, id: msg.ID}
	if stored, ok := s.documents[key]; ok {
		return stored, nil
	}

	s.documents[key] = msg
	s.byChat[chatID] = append(s.byChat[chatID], msg.ID)

	return msg, nil
}

func (s *collectionMemoryStore) FetchMessages(ctx context.Context, chatID string, q protocol.Query) (protocol.Page, error) {
	q, err := normalizeQuery(chatID, q, s.maxPageSize)
	if err != nil {
		return protocol.Page{}, err
	}

	s.mu.RLock()
	ids := s.byChat[chatID]
	messages := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		messages = append(messages, s.documents[messageKey{chatID: chatID, id: id}])
	}
	s.mu.RUnlock()

	return paginate(messages, q), nil
}
