package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hilthontt/roomsync/internal/domain"
	"github.com/hilthontt/roomsync/internal/persistence/db"
	"github.com/hilthontt/roomsync/pkg/protocol"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type messageDocument struct {
	ID         string    `bson:"_id"`
	ChatID     string    `bson:"chat_id"`
	SenderID   string    `bson:"sender_id"`
	SenderName string    `bson:"sender_name,omitempty"`
	IsAI       bool      `bson:"is_ai"`
	Content    string    `bson:"content"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func newMessageDocument(m domain.Message) messageDocument {
	return messageDocument{
		ID:         m.ID,
		ChatID:     m.ChatID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		IsAI:       m.IsAI,
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func (d messageDocument) toDomain() domain.Message {
	return domain.Message{
		ID:         d.ID,
		ChatID:     d.ChatID,
		SenderID:   d.SenderID,
		SenderName: d.SenderName,
		IsAI:       d.IsAI,
		Content:    d.Content,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
}

// MongoCollectionStore is the normalized shape: one document per message.
type MongoCollectionStore struct {
	db          *mongo.Database
	maxPageSize int
}

func NewMongoCollectionStore(database *mongo.Database, maxPageSize int) *MongoCollectionStore {
	return &MongoCollectionStore{
		db:          database,
		maxPageSize: maxPageSize,
	}
}

func (s *MongoCollectionStore) AppendMessage(ctx context.Context, chatID string, msg domain.Message) (domain.Message, error) {
	msg, err := domain.PrepareMessage(chatID, msg)
	if err != nil {
		return domain.Message{}, err
	}

	collection := s.db.Collection(db.MessagesCollection)

	_, err = collection.InsertOne(ctx, newMessageDocument(msg))
	if err == nil {
		return msg, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return domain.Message{}, fmt.Errorf("failed to insert message: %w", err)
	}

	var existing messageDocument
	if err := collection.FindOne(ctx, bson.M{"_id": msg.ID}).Decode(&existing); err != nil {
		return domain.Message{}, fmt.Errorf("failed to load existing message: %w", err)
	}
	if existing.ChatID != chatID {
		return domain.Message{}, domain.ErrMessageExists
	}

	return existing.toDomain(), nil
}

func (s *MongoCollectionStore) FetchMessages(ctx context.Context, chatID string, q protocol.Query) (protocol.Page, error) {
	q, err := normalizeQuery(chatID, q, s.maxPageSize)
	if err != nil {
		return protocol.Page{}, err
	}

	collection := s.db.Collection(db.MessagesCollection)

	filter := bson.M{"chat_id": chatID}
	if !q.Before.IsZero() {
		if q.BeforeID == "" {
			filter["created_at"] = bson.M{"$lt": q.Before}
		} else {
			filter["$or"] = bson.A{
				bson.M{"created_at": bson.M{"$lt": q.Before}},
				bson.M{"created_at": q.Before, "_id": bson.M{"$lt": q.BeforeID}},
			}
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(q.Limit + 1))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return protocol.Page{}, fmt.Errorf("failed to query messages: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return protocol.Page{}, fmt.Errorf("failed to decode messages: %w", err)
	}

	rows := make([]domain.Message, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, d.toDomain())
	}

	return protocol.NewPage(rows, q.Limit), nil
}

func (s *MongoCollectionStore) EnsureIndexes(ctx context.Context) error {
	collection := s.db.Collection(db.MessagesCollection)

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "chat_id", Value: 1},
				{Key: "created_at", Value: -1},
				{Key: "_id", Value: -1},
			},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

type chatDocument struct {
	ID        string            `bson:"_id"`
	Messages  []messageDocument `bson:"messages"`
	CreatedAt time.Time         `bson:"created_at"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

// mongoEmbeddedStore is the embedded shape: a chat document owns its
// messages array.
type mongoEmbeddedStore struct {
	db          *mongo.Database
	maxPageSize int
}

func NewMongoEmbeddedStore(database *mongo.Database, maxPageSize int) domain.MessageStore {
	return &mongoEmbeddedStore{
		db:          database,
		maxPageSize: maxPageSize,
	}
}

func (s *mongoEmbeddedStore) AppendMessage(ctx context.Context, chatID string, msg domain.Message) (domain.Message, error) {
	msg, err := domain.PrepareMessage(chatID, msg)
	if err != nil {
		return domain.Message{}, err
	}

	collection := s.db.Collection(db.ChatsCollection)

	_, err = collection.UpdateOne(ctx,
		bson.M{"_id": chatID},
		bson.M{"$setOnInsert": bson.M{
			"messages":   bson.A{},
			"created_at": msg.CreatedAt,
			"updated_at": msg.CreatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return domain.Message{}, fmt.Errorf("failed to create chat: %w", err)
	}

	res, err := collection.UpdateOne(ctx,
		bson.M{"_id": chatID, "messages._id": bson.M{"$ne": msg.ID}},
		bson.M{
			"$push": bson.M{"messages": newMessageDocument(msg)},
			"$set":  bson.M{"updated_at": protocol.Now()},
		},
	)
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to append message: %w", err)
	}
	if res.MatchedCount > 0 {
		return msg, nil
	}

	chat, err := s.load(ctx, chatID)
	if err != nil {
		return domain.Message{}, err
	}
	for _, d := range chat.Messages {
		if d.ID == msg.ID {
			return d.toDomain(), nil
		}
	}

	return domain.Message{}, fmt.Errorf("message %s vanished from chat %s", msg.ID, chatID)
}

func (s *mongoEmbeddedStore) load(ctx context.Context, chatID string) (*chatDocument, error) {
	var chat chatDocument
	err := s.db.Collection(db.ChatsCollection).FindOne(ctx, bson.M{"_id": chatID}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}
	return &chat, nil
}

func (s *mongoEmbeddedStore) FetchMessages(ctx context.Context, chatID string, q protocol.Query) (protocol.Page, error) {
	q, err := normalizeQuery(chatID, q, s.maxPageSize)
	if err != nil {
		return protocol.Page{}, err
	}

	chat, err := s.load(ctx, chatID)
	if errors.Is(err, domain.ErrChatNotFound) {
		return protocol.NewPage(nil, q.Limit), nil
	}
	if err != nil {
		return protocol.Page{}, err
	}

	messages := make([]domain.Message, 0, len(chat.Messages))
	for _, d := range chat.Messages {
		messages = append(messages, d.toDomain())
	}

	return paginate(messages, q), nil
}
