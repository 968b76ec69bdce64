package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/hilthontt/roomsync/internal/domain"
	"github.com/hilthontt/roomsync/pkg/protocol"
	"github.com/redis/go-redis/v9"
)

// appendScript stores the body and indexes it in one step. It returns 0
// without writing when the id is already stored.
var appendScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 1 then
	redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
	return 1
end
return 0
`)

// redisStore keeps one sorted set of message ids per chat, scored by the
// creation time in milliseconds, next to a hash holding the message bodies.
type redisStore struct {
	client      redis.UniversalClient
	prefix      string
	maxPageSize int
}

func NewRedisStore(client redis.UniversalClient, prefix string, maxPageSize int) domain.MessageStore {
	if prefix == "" {
		prefix = "roomsync"
	}
	return &redisStore{
		client:      client,
		prefix:      prefix,
		maxPageSize: maxPageSize,
	}
}

func (s *redisStore) indexKey(chatID string) string {
	return fmt.Sprintf("%s:chat:%s:messages", s.prefix, chatID)
}

func (s *redisStore) dataKey(chatID string) string {
	return fmt.Sprintf("%s:chat:%s:message_data", s.prefix, chatID)
}

func (s *redisStore) AppendMessage(ctx context.Context, chatID string, msg domain.Message) (domain.Message, error) {
	msg, err := domain.PrepareMessage(chatID, msg)
	if err != nil {
		return domain.Message{}, err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to marshal message: %w", err)
	}

	created, err := appendScript.Run(ctx, s.client,
		[]string{s.dataKey(chatID), s.indexKey(chatID)},
		msg.ID, data, msg.CreatedAt.UnixMilli(),
	).Int()
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to store message: %w", err)
	}
	if created == 1 {
		return msg, nil
	}

	stored, err := s.get(ctx, chatID, msg.ID)
	if err != nil {
		return domain.Message{}, err
	}
	// a body written without its index entry becomes visible again
	err = s.client.ZAddNX(ctx, s.indexKey(chatID), redis.Z{
		Score:  float64(stored.CreatedAt.UnixMilli()),
		Member: stored.ID,
	}).Err()
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to index message: %w", err)
	}
	return stored, nil
}

func (s *redisStore) get(ctx context.Context, chatID, id string) (domain.Message, error) {
	raw, err := s.client.HGet(ctx, s.dataKey(chatID), id).Result()
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to load message %s: %w", id, err)
	}

	var msg domain.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return domain.Message{}, fmt.Errorf("failed to decode message %s: %w", id, err)
	}
	return msg, nil
}

func (s *redisStore) FetchMessages(ctx context.Context, chatID string, q protocol.Query) (protocol.Page, error) {
	q, err := normalizeQuery(chatID, q, s.maxPageSize)
	if err != nil {
		return protocol.Page{}, err
	}

	key := s.indexKey(chatID)
	count := int64(q.Limit + 1)

	maxScore := "+inf"
	if !q.Before.IsZero() {
		boundary := strconv.FormatInt(q.Before.UnixMilli(), 10)
		if q.BeforeID == "" {
			maxScore = "(" + boundary // exclusive
		} else {
			// Members sharing the boundary score may sit above the cursor id;
			// widen the window by their number and filter below.
			ties, err := s.client.ZCount(ctx, key, boundary, boundary).Result()
			if err != nil {
				return protocol.Page{}, fmt.Errorf("failed to count boundary messages: %w", err)
			}
			maxScore = boundary
			count += ties
		}
	}

	ids, err := s.client.ZRevRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   maxScore,
		Count: count,
	}).Result()
	if err != nil {
		return protocol.Page{}, fmt.Errorf("failed to read message index: %w", err)
	}
	if len(ids) == 0 {
		return protocol.NewPage(nil, q.Limit), nil
	}

	values, err := s.client.HMGet(ctx, s.dataKey(chatID), ids...).Result()
	if err != nil {
		return protocol.Page{}, fmt.Errorf("failed to read messages: %w", err)
	}

	rows := make([]domain.Message, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			return protocol.Page{}, fmt.Errorf("message %s is indexed but has no body", ids[i])
		}
		var msg domain.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return protocol.Page{}, fmt.Errorf("failed to decode message %s: %w", ids[i], err)
		}
		rows = append(rows, msg)
	}

	return paginate(rows, q), nil
}
